package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/xob0t/GoStorefront/pkg/schema"
)

// Putter is implemented by sources that accept uploads.
type Putter interface {
	Put(ctx context.Context, slug string, body []byte) error
}

const maxUpload = 4 << 20

// NewHandler serves the catalog API from f:
//
//	GET /api/products/{slug}/schema?context=page|modal
//	PUT /api/products/{slug}/schema   (when f implements Putter)
func NewHandler(f Fetcher, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products/{slug}/schema", func(w http.ResponseWriter, r *http.Request) {
		slug := r.PathValue("slug")
		c := schema.Context(r.URL.Query().Get("context"))
		if c == "" {
			c = schema.ContextPage
		}
		if !c.Valid() {
			jsonError(w, http.StatusBadRequest, "context must be page or modal")
			return
		}

		doc, err := f.Fetch(r.Context(), slug, c)
		switch {
		case errors.Is(err, ErrNotFound):
			jsonError(w, http.StatusNotFound, "product not found")
			return
		case err != nil:
			log.Error("catalog fetch failed", zap.String("slug", slug), zap.Error(err))
			jsonError(w, http.StatusInternalServerError, "failed to load product")
			return
		}
		writeJSON(w, http.StatusOK, doc)
	})

	if p, ok := f.(Putter); ok {
		mux.HandleFunc("PUT /api/products/{slug}/schema", func(w http.ResponseWriter, r *http.Request) {
			slug := r.PathValue("slug")
			body, err := io.ReadAll(io.LimitReader(r.Body, maxUpload))
			if err != nil {
				jsonError(w, http.StatusBadRequest, "read body: "+err.Error())
				return
			}
			if err := p.Put(r.Context(), slug, body); err != nil {
				jsonError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			log.Info("document stored", zap.String("slug", slug), zap.Int("bytes", len(body)))
			w.WriteHeader(http.StatusNoContent)
		})
	}

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
