package glyph

import (
	"image"
	"image/color"
	"image/draw"
	"math/rand"

	"github.com/disintegration/gift"
	"golang.org/x/image/font"
)

// Style holds the decorative options of the atlas. None of them move cell
// boundaries: every effect is rendered into the cell's own scratch image.
type Style struct {
	Glow       bool    // Stack blurred copies under glyphs with index > GlowFrom.
	GlowFrom   int     // Index threshold for Glow.
	GlowPasses int     // Number of blurred layers. Zero selects 5.
	Jitter     bool    // Random rotation and intensity per glyph.
	MaxAngle   float32 // Rotation bound in degrees for Jitter. Zero selects 8.
	Noise      float64 // Per-pixel noise amplitude in [0,1].
	Seed       int64   // Seed for Jitter and Noise.
}

// GeezStyle is the decoration used by the stylised preset.
var GeezStyle = Style{
	Glow:     true,
	GlowFrom: 50,
	Jitter:   true,
	Noise:    0.04,
	Seed:     1,
}

// apply decorates the glyph already drawn into cell.
func (s Style) apply(cell *image.RGBA, face font.Face, r rune, index int, rng *rand.Rand) {
	// Draw randomness unconditionally so that enabling one effect does not
	// change what another one produces for the same seed.
	angle := (rng.Float32()*2 - 1) * s.maxAngle()
	intensity := uint8(200 + rng.Intn(56))

	if s.Jitter {
		fillBlack(cell)
		drawGlyph(cell, face, r, intensity)
		rotate(cell, angle)
	}

	if s.Glow && index > s.GlowFrom {
		glow(cell, s.glowPasses())
	}

	if s.Noise > 0 {
		addNoise(cell, s.Noise, rng)
	}
}

func (s Style) maxAngle() float32 {
	if s.MaxAngle == 0 {
		return 8
	}
	return s.MaxAngle
}

func (s Style) glowPasses() int {
	if s.GlowPasses <= 0 {
		return 5
	}
	return s.GlowPasses
}

// rotate turns the cell content around its centre and crops the result back
// to the cell.
func rotate(cell *image.RGBA, angle float32) {
	g := gift.New(gift.Rotate(angle, color.Black, gift.LinearInterpolation))
	dst := image.NewRGBA(g.Bounds(cell.Bounds()))
	g.Draw(dst, cell)

	b := cell.Bounds()
	off := image.Pt((dst.Bounds().Dx()-b.Dx())/2, (dst.Bounds().Dy()-b.Dy())/2)
	draw.Draw(cell, b, dst, dst.Bounds().Min.Add(off), draw.Src)
}

// glow lightens the cell with progressively blurred copies of itself.
func glow(cell *image.RGBA, passes int) {
	src := image.NewRGBA(cell.Bounds())
	copy(src.Pix, cell.Pix)

	layer := image.NewRGBA(cell.Bounds())
	for j := 1; j < passes; j++ {
		gift.New(gift.GaussianBlur(float32(j))).Draw(layer, src)
		lighten(cell, layer)
	}
}

// lighten keeps the brighter of dst and src per channel.
func lighten(dst, src *image.RGBA) {
	for i := range dst.Pix {
		if src.Pix[i] > dst.Pix[i] {
			dst.Pix[i] = src.Pix[i]
		}
	}
}

func addNoise(cell *image.RGBA, amplitude float64, rng *rand.Rand) {
	for i := 0; i < len(cell.Pix); i += 4 {
		n := int((rng.Float64()*2 - 1) * amplitude * 255)
		v := int(cell.Pix[i]) + n
		if v < 0 {
			v = 0
		} else if v > 255 {
			v = 255
		}
		cell.Pix[i], cell.Pix[i+1], cell.Pix[i+2] = uint8(v), uint8(v), uint8(v)
	}
}
