package pipeline

import (
	"flag"
	"fmt"
	"image"
	"io"
	"testing"

	"github.com/richinsley/geezmosaic/glyph"
	"github.com/richinsley/geezmosaic/inputs"
	"github.com/richinsley/geezmosaic/layout"
	"github.com/richinsley/geezmosaic/options"
	"github.com/richinsley/geezmosaic/shading"
)

type fakeSource struct {
	value     float64
	destroyed bool
}

func (f *fakeSource) Kind() inputs.Kind           { return inputs.KindVideo }
func (f *fakeSource) Update() bool                { return false }
func (f *fakeSource) Frame() *image.RGBA          { return nil }
func (f *fakeSource) Sample(u, v float64) float64 { return f.value }
func (f *fakeSource) Destroy()                    { f.destroyed = true }

func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	dict, err := glyph.NewDictionary(" .#")
	if err != nil {
		t.Fatal(err)
	}
	p, err := New(Config{
		Dictionary: dict,
		Atlas:      glyph.AtlasOptions{CellSize: 8},
		Grid:       layout.Grid{Rows: 4, Columns: 3, Size: 0.1},
		Params:     shading.DefaultParams,
	})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestNew(t *testing.T) {
	p := testPipeline(t)
	if p.Atlas.Count() != 3 || p.Instances.Len() != 12 {
		t.Fatalf("unexpected atlas/instances: %d, %d", p.Atlas.Count(), p.Instances.Len())
	}
	if p.Uniforms.Capacity() != shading.MaxPaletteSize {
		t.Fatalf("expected uniform capacity %d; have %d", shading.MaxPaletteSize, p.Uniforms.Capacity())
	}
	if p.Source() == nil || p.Generation() != 1 {
		t.Fatalf("expected placeholder source attached")
	}
	if !p.Poll() {
		t.Fatalf("expected placeholder frame on first poll")
	}
	if p.Poll() {
		t.Fatalf("expected no new frame on second poll")
	}
}

func TestNewRejectsEmptyGrid(t *testing.T) {
	dict, _ := glyph.NewDictionary("#")
	if _, err := New(Config{Dictionary: dict, Grid: layout.Grid{Rows: 0, Columns: 4, Size: 1}}); err == nil {
		t.Fatalf("expected error for empty grid")
	}
	if _, err := New(Config{Grid: layout.Grid{Rows: 1, Columns: 1, Size: 1}}); err == nil {
		t.Fatalf("expected error for empty dictionary")
	}
}

func TestLoadSwapsAndDestroysOld(t *testing.T) {
	p := testPipeline(t)

	first := &fakeSource{value: 0.25}
	second := &fakeSource{value: 0.75}
	next := []*fakeSource{first, second}
	p.open = func(path string, opts inputs.Options) (inputs.Source, error) {
		src := next[0]
		next = next[1:]
		return src, nil
	}

	if err := p.Load("a.mp4"); err != nil {
		t.Fatal(err)
	}
	if p.Sample(0, 0) != 0.25 {
		t.Fatalf("expected first source attached")
	}

	if err := p.Load("b.mp4"); err != nil {
		t.Fatal(err)
	}
	if !first.destroyed {
		t.Fatalf("expected previous source destroyed")
	}
	if second.destroyed || p.Sample(0, 0) != 0.75 {
		t.Fatalf("expected second source attached and alive")
	}
	if p.Generation() != 3 {
		t.Fatalf("expected generation 3; have %d", p.Generation())
	}
}

func TestLoadFailureKeepsSource(t *testing.T) {
	p := testPipeline(t)
	current := &fakeSource{value: 0.5}
	p.Attach(current)
	gen := p.Generation()

	p.open = func(path string, opts inputs.Options) (inputs.Source, error) {
		return nil, fmt.Errorf("decode failed")
	}
	if err := p.Load("broken.png"); err == nil {
		t.Fatalf("expected load error")
	}
	if current.destroyed || p.Source() != inputs.Source(current) || p.Generation() != gen {
		t.Fatalf("failed load must keep the current source")
	}
}

func TestDestroy(t *testing.T) {
	p := testPipeline(t)
	src := &fakeSource{}
	p.Attach(src)
	p.Destroy()
	if !src.destroyed {
		t.Fatalf("expected source destroyed")
	}
	if p.Poll() {
		t.Fatalf("expected no fresh frame after destroy")
	}
	if s := p.Sample(0.5, 0.5); s != 0 {
		t.Fatalf("expected black after destroy; have %v", s)
	}
}

func TestConfigFromOptions(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	o := options.Register(fs)
	if err := fs.Parse([]string{"-preset", "geez", "-rows", "10"}); err != nil {
		t.Fatal(err)
	}
	if err := options.ApplyPreset(fs, *o.Preset); err != nil {
		t.Fatal(err)
	}

	cfg, err := ConfigFromOptions(o)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Grid.Rows != 10 || cfg.Grid.Columns != 50 {
		t.Fatalf("unexpected grid %+v", cfg.Grid)
	}
	if cfg.Dictionary.String() != glyph.GeezRamp {
		t.Fatalf("expected geez dictionary")
	}
	if !cfg.Atlas.Style.Glow || cfg.Atlas.Style.GlowFrom != 50 {
		t.Fatalf("expected glow from 50; have %+v", cfg.Atlas.Style)
	}
}

func TestPlaceholder(t *testing.T) {
	img := Placeholder(9)
	centre := img.RGBAAt(4, 4).R
	corner := img.RGBAAt(0, 0).R
	if centre != 255 || corner != 0 {
		t.Fatalf("expected bright centre and dark corner; have %d, %d", centre, corner)
	}
}

func TestCamera(t *testing.T) {
	p := testPipeline(t)

	if cam := p.Camera(640, 480, false); cam != layout.DefaultCamera {
		t.Fatalf("expected default camera without fit; have %+v", cam)
	}

	cam := p.Camera(640, 480, true)
	if cam.Eye.Z() <= 0 || cam.Eye.Z() >= layout.DefaultCamera.Eye.Z() {
		t.Fatalf("expected a 0.4x0.3 grid to pull the camera in; have eye %v", cam.Eye)
	}
}
