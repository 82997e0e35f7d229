// Package generator draws the placeholder and swatch images the storefront
// serves for products without photos and for color attribute values.
package generator

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Config holds parameters for a placeholder image.
type Config struct {
	Width    int    // default 640
	Height   int    // default 640
	Color    string // "#rrggbb"; empty derives a color from Text
	Text     string // drawn centered, wrapped to the width
	FontPath string // empty uses the embedded Go font
	FontSize float64
}

// Placeholder renders a solid image with Text centered on it.
func Placeholder(cfg Config) (*image.RGBA, error) {
	w := cfg.Width
	if w <= 0 {
		w = 640
	}
	h := cfg.Height
	if h <= 0 {
		h = w
	}

	bg := SeedColor(cfg.Text)
	if cfg.Color != "" {
		c, err := ParseColor(cfg.Color)
		if err != nil {
			return nil, err
		}
		bg = c
	}
	img := NewSolidImage(w, h, bg)

	if strings.TrimSpace(cfg.Text) == "" {
		return img, nil
	}
	fm, err := NewFontManager(cfg.FontPath)
	if err != nil {
		return nil, err
	}
	size := cfg.FontSize
	if size <= 0 {
		size = float64(w) / 12
	}
	face, err := fm.Face(size)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	padding := w / 10
	drawCentered(img, wrapText(cfg.Text, w-2*padding, face), face, Contrast(bg))
	return img, nil
}

// Swatch renders a square of the given color with a thin darker border.
func Swatch(hex string, size int) (*image.RGBA, error) {
	if size <= 0 {
		size = 32
	}
	c, err := ParseColor(hex)
	if err != nil {
		return nil, err
	}
	border := color.RGBA{R: c.R / 2, G: c.G / 2, B: c.B / 2, A: 255}
	img := NewSolidImage(size, size, border)
	if size > 2 {
		inner := image.Rect(1, 1, size-1, size-1)
		draw.Draw(img, inner, &image.Uniform{c}, image.Point{}, draw.Src)
	}
	return img, nil
}

// Encode writes img as PNG.
func Encode(w io.Writer, img image.Image) error {
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode PNG: %w", err)
	}
	return nil
}

// WriteFile writes img to output. Only .png is supported.
func WriteFile(output string, img image.Image) error {
	if ext := strings.ToLower(filepath.Ext(output)); ext != ".png" {
		return fmt.Errorf("unsupported format %q: use .png", ext)
	}
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create %s: %w", output, err)
	}
	if err := Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
