// fonts.go — Font loading with the embedded Go font as fallback.
package generator

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// FontManager parses a font once and hands out faces. Faces are not safe
// for concurrent use, so every render asks for its own.
type FontManager struct {
	parsed *opentype.Font
}

var (
	defaultFontOnce sync.Once
	defaultFont     *FontManager
	defaultFontErr  error
)

// DefaultFontManager returns the shared manager for the embedded Go Regular
// font.
func DefaultFontManager() (*FontManager, error) {
	defaultFontOnce.Do(func() {
		defaultFont, defaultFontErr = parseFont(goregular.TTF)
	})
	return defaultFont, defaultFontErr
}

// NewFontManager loads the font at path, or the embedded default when path is
// empty.
func NewFontManager(path string) (*FontManager, error) {
	if path == "" {
		return DefaultFontManager()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	return parseFont(data)
}

func parseFont(data []byte) (*FontManager, error) {
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &FontManager{parsed: parsed}, nil
}

// Face returns a new face at size points and 72 DPI.
func (fm *FontManager) Face(size float64) (font.Face, error) {
	face, err := opentype.NewFace(fm.parsed, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	return face, nil
}
