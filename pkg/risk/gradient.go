package risk

import (
	"image/color"
	"math"
)

// GradientSize is the number of entries in the display palette.
const GradientSize = 256

// anchors run dark navy, indigo, violet, orange, yellow.
var anchors = [...]color.RGBA{
	{R: 0x0b, G: 0x10, B: 0x2e, A: 0xff},
	{R: 0x3b, G: 0x0f, B: 0x70, A: 0xff},
	{R: 0x8c, G: 0x29, B: 0x81, A: 0xff},
	{R: 0xf7, G: 0x7f, B: 0x2a, A: 0xff},
	{R: 0xfc, G: 0xf4, B: 0x5c, A: 0xff},
}

// Gradient is the palette, index 0 for risk 0 and 255 for risk 1.
var Gradient = buildGradient()

func buildGradient() [GradientSize]color.RGBA {
	var g [GradientSize]color.RGBA
	segments := float64(len(anchors) - 1)
	for i := range g {
		pos := float64(i) / (GradientSize - 1) * segments
		seg := int(pos)
		if seg >= len(anchors)-1 {
			seg = len(anchors) - 2
		}
		frac := pos - float64(seg)
		a, b := anchors[seg], anchors[seg+1]
		g[i] = color.RGBA{
			R: lerp(a.R, b.R, frac),
			G: lerp(a.G, b.G, frac),
			B: lerp(a.B, b.B, frac),
			A: 0xff,
		}
	}
	return g
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(math.Round(float64(a) + (float64(b)-float64(a))*t))
}

// Color maps a risk value to its palette entry.
func Color(risk float64) color.RGBA {
	return Gradient[int(math.Round(clamp01(risk)*(GradientSize-1)))]
}

// Colors maps every frame of t through the palette.
func (t *Timeline) Colors() []color.RGBA {
	out := make([]color.RGBA, len(t.Risk))
	for i, r := range t.Risk {
		out[i] = Color(r)
	}
	return out
}
