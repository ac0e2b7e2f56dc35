package software

import (
	"image"
	"testing"

	"github.com/richinsley/geezmosaic/glyph"
	"github.com/richinsley/geezmosaic/layout"
	"github.com/richinsley/geezmosaic/shading"
)

type constSource float64

func (c constSource) Sample(u, v float64) float64 { return float64(c) }

func setup(t *testing.T, dict string) (*layout.Instances, *glyph.Atlas, shading.Snapshot) {
	t.Helper()
	d, err := glyph.NewDictionary(dict)
	if err != nil {
		t.Fatal(err)
	}
	atlas, err := glyph.BuildAtlas(d, glyph.AtlasOptions{CellSize: 16})
	if err != nil {
		t.Fatal(err)
	}
	inst, err := layout.Build(layout.Grid{Rows: 8, Columns: 8, Size: 0.5})
	if err != nil {
		t.Fatal(err)
	}
	snap := shading.NewUniforms(shading.Params{BaseHue: 0, PaletteSize: 5, Gamma: 1}, 10).Snapshot()
	return inst, atlas, snap
}

func litPixels(img *image.RGBA) int {
	var n int
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] > 0 || img.Pix[i+1] > 0 || img.Pix[i+2] > 0 {
			n++
		}
	}
	return n
}

func TestBlackSourceRendersBlack(t *testing.T) {
	inst, atlas, snap := setup(t, " .:#")
	r := New(64, 48, layout.DefaultCamera)
	dst := image.NewRGBA(r.Bounds())

	r.Render(dst, inst, atlas, constSource(0), snap)

	if n := litPixels(dst); n != 0 {
		t.Fatalf("expected black frame; have %d lit pixels", n)
	}
	if dst.Pix[3] != 255 {
		t.Fatalf("expected opaque output")
	}
}

func TestBrightSourceUsesLastBand(t *testing.T) {
	inst, atlas, snap := setup(t, " #")
	r := New(96, 96, layout.DefaultCamera.Fit(2, 2, 1, 0))
	dst := image.NewRGBA(r.Bounds())

	r.Render(dst, inst, atlas, constSource(1), snap)

	if litPixels(dst) == 0 {
		t.Fatalf("expected '#' glyphs to light pixels")
	}
	// Brightness 1 selects palette[4] (hue 288°): more blue than green.
	want := snap.Palette[4]
	for i := 0; i < len(dst.Pix); i += 4 {
		if dst.Pix[i] == 0 && dst.Pix[i+1] == 0 && dst.Pix[i+2] == 0 {
			continue
		}
		if (want.B > want.G) != (dst.Pix[i+2] > dst.Pix[i+1]) {
			t.Fatalf("pixel %d has unexpected hue %v", i/4, dst.Pix[i:i+3])
		}
	}
}

func TestOutsideGridIsBlack(t *testing.T) {
	inst, atlas, snap := setup(t, " #")
	// The grid spans 4 world units; from z = 40 it covers the centre only.
	cam := layout.DefaultCamera
	cam.Eye[2] = 40
	r := New(64, 64, cam)
	dst := image.NewRGBA(r.Bounds())

	r.Render(dst, inst, atlas, constSource(1), snap)

	for _, p := range []image.Point{{0, 0}, {63, 0}, {0, 63}, {63, 63}} {
		off := dst.PixOffset(p.X, p.Y)
		if dst.Pix[off] != 0 || dst.Pix[off+1] != 0 || dst.Pix[off+2] != 0 {
			t.Fatalf("corner %v should be outside the grid", p)
		}
	}
}

func TestWorldAtCentre(t *testing.T) {
	r := New(101, 101, layout.DefaultCamera)
	x, y, ok := r.worldAt(50, 50)
	if !ok {
		t.Fatalf("centre ray should hit the plane")
	}
	if x*x+y*y > 1e-6 {
		t.Fatalf("expected centre at origin; have (%v, %v)", x, y)
	}

	// Screen x grows with world x, screen y grows against world y.
	x1, _, _ := r.worldAt(80, 50)
	_, y1, _ := r.worldAt(50, 20)
	if x1 <= 0 || y1 <= 0 {
		t.Fatalf("unexpected orientation: (%v, %v)", x1, y1)
	}
}

func TestWorkersAgree(t *testing.T) {
	inst, atlas, snap := setup(t, " .:#")
	src := constSource(0.6)

	r := New(40, 30, layout.DefaultCamera.Fit(2, 2, 4.0/3, 0.05))
	a := image.NewRGBA(r.Bounds())
	r.SetWorkers(1)
	r.Render(a, inst, atlas, src, snap)

	b := image.NewRGBA(r.Bounds())
	r.SetWorkers(7)
	r.Render(b, inst, atlas, src, snap)

	for i := range a.Pix {
		if a.Pix[i] != b.Pix[i] {
			t.Fatalf("frames differ at byte %d", i)
		}
	}
}
