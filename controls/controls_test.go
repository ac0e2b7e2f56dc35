package controls

import (
	"testing"

	"github.com/richinsley/geezmosaic/shading"
)

func TestStep(t *testing.T) {
	initial := shading.DefaultParams

	tests := []struct {
		name string
		in   shading.Params
		a    Action
		want shading.Params
	}{
		{"hue up", shading.Params{BaseHue: 100, PaletteSize: 5, Gamma: 1}, HueUp, shading.Params{BaseHue: 110, PaletteSize: 5, Gamma: 1}},
		{"hue clamps low", shading.Params{BaseHue: 5, PaletteSize: 5, Gamma: 1}, HueDown, shading.Params{BaseHue: 0, PaletteSize: 5, Gamma: 1}},
		{"hue clamps high", shading.Params{BaseHue: 355, PaletteSize: 5, Gamma: 1}, HueUp, shading.Params{BaseHue: 360, PaletteSize: 5, Gamma: 1}},
		{"colors clamp low", shading.Params{PaletteSize: 1, Gamma: 1}, ColorsDown, shading.Params{PaletteSize: 1, Gamma: 1}},
		{"colors clamp high", shading.Params{PaletteSize: 10, Gamma: 1}, ColorsUp, shading.Params{PaletteSize: 10, Gamma: 1}},
		{"gamma up", shading.Params{PaletteSize: 5, Gamma: 0.9}, GammaUp, shading.Params{PaletteSize: 5, Gamma: 1}},
		{"gamma clamps low", shading.Params{PaletteSize: 5, Gamma: 0.1}, GammaDown, shading.Params{PaletteSize: 5, Gamma: 0.1}},
		{"reset", shading.Params{BaseHue: 200, PaletteSize: 2, Gamma: 4}, Reset, initial},
	}

	for _, tt := range tests {
		if have := Step(tt.in, tt.a, initial); have != tt.want {
			t.Fatalf("%s: expected %+v; have %+v", tt.name, tt.want, have)
		}
	}
}

func TestGammaStaysOnGrid(t *testing.T) {
	p := shading.Params{PaletteSize: 5, Gamma: 0.9}
	for i := 0; i < 31; i++ {
		p = Step(p, GammaUp, p)
	}
	if p.Gamma != 4 {
		t.Fatalf("expected gamma 4 after 31 steps; have %v", p.Gamma)
	}
}

func TestForRune(t *testing.T) {
	for r, want := range map[rune]Action{'+': GammaUp, '=': GammaUp, '-': GammaDown, 'r': Reset, 'R': Reset} {
		if a, ok := ForRune(r); !ok || a != want {
			t.Fatalf("ForRune(%q): expected %v; have %v, %v", r, want, a, ok)
		}
	}
	if _, ok := ForRune('x'); ok {
		t.Fatalf("expected no binding for 'x'")
	}
}

func TestApplyUpdatesUniforms(t *testing.T) {
	u := shading.NewUniforms(shading.DefaultParams, shading.MaxPaletteSize)
	c := New(u, shading.DefaultParams)

	v := u.Version()
	c.Apply(ColorsUp)
	if u.Version() != v+1 {
		t.Fatalf("expected one Update per action")
	}
	if u.Params().PaletteSize != 6 || len(u.Snapshot().Palette) != 6 {
		t.Fatalf("expected 6 colours; have %+v", u.Params())
	}

	c.Apply(Reset)
	if u.Params() != shading.DefaultParams {
		t.Fatalf("expected reset to defaults; have %+v", u.Params())
	}
}
