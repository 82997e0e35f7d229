// color.go — Color parsing, seeded colors and solid images.
package generator

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"image/draw"
	"strconv"
	"strings"
)

// ParseColor parses "#rrggbb" or "#rgb".
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid color %q: expected #rrggbb or #rgb", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// ParseHexRGBA is ParseColor with a neutral gray on error.
func ParseHexRGBA(hex string) color.RGBA {
	c, err := ParseColor(hex)
	if err != nil {
		return color.RGBA{0xcc, 0xcc, 0xcc, 0xff}
	}
	return c
}

// SeedColor derives a stable, muted background color from seed so the same
// product always gets the same placeholder.
func SeedColor(seed string) color.RGBA {
	h := fnv.New32a()
	_, _ = h.Write([]byte(seed))
	v := h.Sum32()
	// Keep channels in the 96..223 band: never black, never white.
	return color.RGBA{
		R: 96 + uint8(v&0x7f),
		G: 96 + uint8((v>>8)&0x7f),
		B: 96 + uint8((v>>16)&0x7f),
		A: 255,
	}
}

// Contrast returns black or white, whichever reads better on c.
func Contrast(c color.RGBA) color.RGBA {
	// ITU-R BT.601 luma.
	luma := 299*int(c.R) + 587*int(c.G) + 114*int(c.B)
	if luma > 140_000 {
		return color.RGBA{0x1a, 0x1a, 0x1a, 0xff}
	}
	return color.RGBA{0xff, 0xff, 0xff, 0xff}
}

// NewSolidImage creates a uniform solid-color image.
func NewSolidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{c}, image.Point{}, draw.Src)
	return img
}
