package risk

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"
)

// Image draws t as a horizontal heat strip of the given size.
func (t *Timeline) Image(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	if len(t.Risk) == 0 {
		return img
	}
	for x := 0; x < width; x++ {
		c := Color(t.Risk[x*len(t.Risk)/width])
		for y := 0; y < height; y++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

// WritePNG encodes the heat strip as PNG.
func (t *Timeline) WritePNG(w io.Writer, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("risk: invalid image size %dx%d", width, height)
	}
	return png.Encode(w, t.Image(width, height))
}

// ANSI renders t as one row of 24-bit colour blocks, resampled to width cells.
func (t *Timeline) ANSI(width int) string {
	if len(t.Risk) == 0 || width <= 0 {
		return ""
	}
	var b strings.Builder
	for x := 0; x < width; x++ {
		c := Color(t.Risk[x*len(t.Risk)/width])
		fmt.Fprintf(&b, "\x1b[48;2;%d;%d;%dm ", c.R, c.G, c.B)
	}
	b.WriteString("\x1b[0m")
	return b.String()
}
