// text.go — Word wrapping and centered text drawing.
package generator

import (
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// wrapText breaks text into lines no wider than maxWidth pixels. A single
// word wider than maxWidth gets a line of its own.
func wrapText(text string, maxWidth int, face font.Face) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if maxWidth <= 0 {
		return []string{strings.Join(words, " ")}
	}

	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		candidate := current + " " + word
		if font.MeasureString(face, candidate).Ceil() > maxWidth {
			lines = append(lines, current)
			current = word
		} else {
			current = candidate
		}
	}
	return append(lines, current)
}

// drawCentered draws lines centered horizontally and vertically in img.
func drawCentered(img *image.RGBA, lines []string, face font.Face, col color.Color) {
	if len(lines) == 0 {
		return
	}
	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil()
	bounds := img.Bounds()

	top := (bounds.Dy()-lineHeight*len(lines))/2 + metrics.Ascent.Ceil()
	d := &font.Drawer{Dst: img, Src: image.NewUniform(col), Face: face}
	for i, line := range lines {
		width := font.MeasureString(face, line).Ceil()
		d.Dot = fixed.P((bounds.Dx()-width)/2, top+i*lineHeight)
		d.DrawString(line)
	}
}
