package palette

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Saturation and lightness shared by every generated entry.
const (
	Saturation = 1.0
	Lightness  = 0.5
)

// Palette is an ordered list of display colours.
type Palette []colorful.Color

// Hue returns the hue in degrees of entry i of a palette of count entries
// rotated from baseHue. The result is always in [0,360).
func Hue(baseHue float64, i, count int) float64 {
	if count < 1 {
		count = 1
	}
	h := math.Mod(baseHue+float64(i)*(360.0/float64(count)), 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

// Generate returns count evenly spaced, fully saturated colours starting at
// baseHue. A count below one is treated as one so the hue spacing never
// divides by zero.
func Generate(baseHue float64, count int) Palette {
	if count < 1 {
		count = 1
	}
	p := make(Palette, count)
	for i := range p {
		p[i] = colorful.Hsl(Hue(baseHue, i, count), Saturation, Lightness)
	}
	return p
}

// Floats flattens the palette into RGB triplets, the layout used for the
// uPalette uniform array.
func (p Palette) Floats() []float32 {
	out := make([]float32, 0, len(p)*3)
	for _, c := range p {
		out = append(out, float32(c.R), float32(c.G), float32(c.B))
	}
	return out
}
