package server

import (
	"bytes"
	"image"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/xob0t/GoStorefront/pkg/catalog"
	"github.com/xob0t/GoStorefront/pkg/generator"
)

const (
	minImageSize = 32
	maxImageSize = 1600
)

// handlePlaceholder draws {slug}.png with the humanized slug as its label.
// ?w= sets the square size.
func (s *Server) handlePlaceholder(w http.ResponseWriter, r *http.Request) {
	slug, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	if !ok || !catalog.ValidSlug(slug) {
		http.NotFound(w, r)
		return
	}
	size := imageSize(r.URL.Query().Get("w"), 640)
	label := cases.Title(s.opts.Locale).String(strings.NewReplacer("-", " ", "_", " ").Replace(slug))

	img, err := generator.Placeholder(generator.Config{
		Width:    size,
		Height:   size,
		Text:     label,
		FontPath: s.opts.FontPath,
	})
	if err != nil {
		s.log.Error("placeholder failed", zap.String("slug", slug), zap.Error(err))
		http.Error(w, "placeholder failed", http.StatusInternalServerError)
		return
	}
	s.writePNG(w, img)
}

// handleSwatch draws {rrggbb}.png for color attribute values.
func (s *Server) handleSwatch(w http.ResponseWriter, r *http.Request) {
	hex, ok := strings.CutSuffix(r.PathValue("file"), ".png")
	if !ok {
		http.NotFound(w, r)
		return
	}
	img, err := generator.Swatch("#"+hex, imageSize(r.URL.Query().Get("w"), 32))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writePNG(w, img)
}

func (s *Server) writePNG(w http.ResponseWriter, img image.Image) {
	var buf bytes.Buffer
	if err := generator.Encode(&buf, img); err != nil {
		s.log.Error("encode png", zap.Error(err))
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(buf.Bytes())
}

func imageSize(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return min(max(n, minImageSize), maxImageSize)
}
