package glyph

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// ErrCellSize is returned for a non-positive cell size.
var ErrCellSize = errors.New("glyph: cell size must be positive")

// DefaultCellSize matches the 64px cells of the reference strip.
const DefaultCellSize = 64

// AtlasOptions controls how a dictionary is rasterised.
type AtlasOptions struct {
	CellSize int     // Width and height of one cell in pixels.
	FontSize float64 // Face size in pixels. Zero selects 5/8 of the cell.
	Font     []byte  // TrueType/OpenType data. Nil selects Go Mono Bold.
	Style    Style
}

// Atlas is a single-row strip texture holding one glyph per cell.
// Glyphs are white on an opaque black background.
type Atlas struct {
	Image    *image.RGBA
	CellSize int
	dict     Dictionary
}

// BuildAtlas rasterises dict into a strip of dict.Len() cells.
func BuildAtlas(dict Dictionary, opts AtlasOptions) (*Atlas, error) {
	if err := dict.Validate(); err != nil {
		return nil, err
	}
	if opts.CellSize == 0 {
		opts.CellSize = DefaultCellSize
	}
	if opts.CellSize < 0 {
		return nil, ErrCellSize
	}
	if opts.FontSize <= 0 {
		opts.FontSize = float64(opts.CellSize) * 5 / 8
	}
	if opts.Font == nil {
		opts.Font = gomonobold.TTF
	}

	parsed, err := opentype.Parse(opts.Font)
	if err != nil {
		return nil, errors.Wrapf(err, "glyph: failed to parse font")
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{
		Size:    opts.FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "glyph: failed to create font face")
	}
	defer face.Close()

	cell := opts.CellSize
	a := &Atlas{
		Image:    image.NewRGBA(image.Rect(0, 0, dict.Len()*cell, cell)),
		CellSize: cell,
		dict:     dict,
	}
	draw.Draw(a.Image, a.Image.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	rng := rand.New(rand.NewSource(opts.Style.Seed))
	scratch := image.NewRGBA(image.Rect(0, 0, cell, cell))
	for i, r := range dict {
		fillBlack(scratch)
		drawGlyph(scratch, face, r, 255)
		opts.Style.apply(scratch, face, r, i, rng)
		draw.Draw(a.Image, a.CellRect(i), scratch, image.Point{}, draw.Src)
	}
	return a, nil
}

// drawGlyph draws r centred in dst with the given grey intensity.
// Anything falling outside dst is clipped.
func drawGlyph(dst *image.RGBA, face font.Face, r rune, intensity uint8) {
	cell := dst.Bounds().Dx()
	s := string(r)
	adv := font.MeasureString(face, s)
	m := face.Metrics()
	x := (cell - adv.Round()) / 2
	y := (cell + m.Ascent.Round() - m.Descent.Round()) / 2

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.RGBA{intensity, intensity, intensity, 255}),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// fillBlack resets img to opaque black.
func fillBlack(img *image.RGBA) {
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
}

// Count returns the number of cells.
func (a *Atlas) Count() int {
	return len(a.dict)
}

// Rune returns the glyph stored in cell k.
func (a *Atlas) Rune(k int) rune {
	return a.dict[k]
}

// CellRect returns the pixel rectangle of cell k: [k*size, (k+1)*size) wide
// and the full atlas height.
func (a *Atlas) CellRect(k int) image.Rectangle {
	return image.Rect(k*a.CellSize, 0, (k+1)*a.CellSize, a.CellSize)
}

// SampleCell returns the mask value of cell k at normalized atlas coordinate
// (u,v) using nearest filtering. v = 0 addresses the bottom row, matching
// texture space. Coordinates that round across either edge of the cell read
// its border texel instead of the neighbouring glyph.
func (a *Atlas) SampleCell(k int, u, v float64) float64 {
	b := a.Image.Bounds()
	k = clampInt(k, 0, a.Count()-1)
	x := clampInt(int(math.Floor(u*float64(b.Dx()))), k*a.CellSize, (k+1)*a.CellSize-1)
	y := clampInt(int(math.Floor((1-v)*float64(b.Dy()))), 0, b.Dy()-1)
	return float64(a.Image.Pix[a.Image.PixOffset(b.Min.X+x, b.Min.Y+y)]) / 255
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
