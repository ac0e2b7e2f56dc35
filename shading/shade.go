package shading

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/richinsley/geezmosaic/palette"
)

// BandWidth is the brightness step between consecutive palette thresholds.
const BandWidth = 0.2

// AtlasSampler returns the glyph mask of one cell at a normalized atlas
// coordinate. Lookups never leave the cell.
type AtlasSampler interface {
	SampleCell(cell int, u, v float64) float64
	Count() int
}

// Fragment is everything the shading function needs from one pixel of one
// instance.
type Fragment struct {
	Raw    float64 // Source brightness channel at the instance's sample coordinate.
	LocalU float64 // Position inside the quad, [0,1).
	LocalV float64
}

// Brightness applies gamma correction to a raw channel value. Raw values are
// clamped to [0,1] first.
func Brightness(raw, gamma float64) float64 {
	if math.IsNaN(raw) || raw <= 0 {
		return 0
	}
	if raw > 1 {
		raw = 1
	}
	return math.Pow(raw, gamma)
}

// CellIndex maps brightness to an atlas cell in [0,count-1].
func CellIndex(brightness float64, count int) int {
	if count < 1 || math.IsNaN(brightness) {
		return 0
	}
	i := int(math.Floor(brightness * float64(count)))
	if i < 0 {
		return 0
	}
	if i >= count {
		return count - 1
	}
	return i
}

// AtlasCoord returns the atlas coordinate of quad position (localU, localV)
// inside the given cell.
func AtlasCoord(localU, localV float64, cell, count int) (u, v float64) {
	n := float64(count)
	return localU/n + float64(cell)/n, localV
}

// Band returns the index of the palette entry selected for brightness: the
// last entry i whose threshold BandWidth*i has been reached.
func Band(brightness float64, count int) int {
	band := 0
	for i := 1; i < count; i++ {
		if brightness >= BandWidth*float64(i) {
			band = i
		}
	}
	return band
}

// Blend returns the colour of the step-mix chain from p[0] through every
// later entry whose brightness threshold is reached. Each mix weight is 0 or
// 1, so the chain ends on exactly p[Band(brightness)].
func Blend(brightness float64, p palette.Palette) colorful.Color {
	if len(p) == 0 {
		return colorful.Color{}
	}
	return p[Band(brightness, len(p))]
}

// Shade evaluates one fragment: gamma-corrected brightness picks the glyph
// cell and the palette band, and the glyph mask scales the band colour.
func Shade(f Fragment, s Snapshot, atlas AtlasSampler) colorful.Color {
	b := Brightness(f.Raw, s.Gamma)
	count := atlas.Count()
	cell := CellIndex(b, count)
	u, v := AtlasCoord(clampLocal(f.LocalU), clampLocal(f.LocalV), cell, count)
	mask := atlas.SampleCell(cell, u, v)
	c := Blend(b, s.Palette)
	return colorful.Color{R: c.R * mask, G: c.G * mask, B: c.B * mask}
}

// clampLocal keeps quad coordinates inside [0,1).
func clampLocal(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	if x >= 1 {
		return math.Nextafter(1, 0)
	}
	return x
}
