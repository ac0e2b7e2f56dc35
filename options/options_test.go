package options

import (
	"flag"
	"io"
	"testing"
)

func parse(t *testing.T, args ...string) (*flag.FlagSet, *MosaicOptions) {
	t.Helper()
	fs := flag.NewFlagSet("geezmosaic", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	o := Register(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return fs, o
}

func TestDefaults(t *testing.T) {
	_, o := parse(t)
	if err := o.Normalize(); err != nil {
		t.Fatal(err)
	}
	if *o.Mode != ModeWindow || *o.Rows != 50 || *o.Columns != 50 || *o.QuadSize != 0.09 {
		t.Fatalf("unexpected defaults: mode %s grid %dx%d size %v", *o.Mode, *o.Rows, *o.Columns, *o.QuadSize)
	}
	p := o.Params()
	if p.BaseHue != 0 || p.PaletteSize != 5 || p.Gamma != 0.9 {
		t.Fatalf("unexpected default params %+v", p)
	}
}

func TestGeezPreset(t *testing.T) {
	fs, o := parse(t, "-preset", "geez", "-colors", "3")
	if err := ApplyPreset(fs, *o.Preset); err != nil {
		t.Fatal(err)
	}
	if *o.Dictionary != "geez" || !*o.Glow || *o.GlowFrom != 50 || !*o.Jitter {
		t.Fatalf("geez preset not applied: dict %s glow %v jitter %v", *o.Dictionary, *o.Glow, *o.Jitter)
	}
	if *o.PaletteSize != 3 {
		t.Fatalf("explicit -colors overridden by preset: %d", *o.PaletteSize)
	}
}

func TestPortraitPreset(t *testing.T) {
	fs, o := parse(t, "-preset", "portrait", "-glow")
	if err := ApplyPreset(fs, *o.Preset); err != nil {
		t.Fatal(err)
	}
	if *o.Dictionary != "ascii" || *o.Jitter || *o.Noise != 0 {
		t.Fatalf("portrait preset not applied")
	}
	if !*o.Glow {
		t.Fatalf("explicit -glow overridden by preset")
	}
}

func TestUnknownPreset(t *testing.T) {
	fs, _ := parse(t)
	if err := ApplyPreset(fs, "mosaic"); err == nil {
		t.Fatalf("expected error for unknown preset")
	}
	if err := ApplyPreset(fs, ""); err != nil {
		t.Fatalf("empty preset should be a no-op: %v", err)
	}
}

func TestNormalize(t *testing.T) {
	_, o := parse(t, "-mode", "png", "-hue", "500", "-colors", "0", "-gamma", "-1", "-noise", "3", "-fps", "0")
	if err := o.Normalize(); err != nil {
		t.Fatal(err)
	}
	if *o.BaseHue != 360 || *o.PaletteSize != 1 || *o.Gamma != 0.1 {
		t.Fatalf("params not clamped: %v %v %v", *o.BaseHue, *o.PaletteSize, *o.Gamma)
	}
	if *o.Noise != 1 || *o.FPS != 1 {
		t.Fatalf("noise/fps not clamped: %v %v", *o.Noise, *o.FPS)
	}
	if *o.OutputFile != "mosaic.png" {
		t.Fatalf("expected default png output; have %q", *o.OutputFile)
	}
}

func TestNormalizeRejects(t *testing.T) {
	tests := [][]string{
		{"-mode", "browser"},
		{"-codec", "vp9"},
		{"-width", "0"},
	}
	for _, args := range tests {
		_, o := parse(t, args...)
		if err := o.Normalize(); err == nil {
			t.Fatalf("%v: expected error", args)
		}
	}
}

func TestFrames(t *testing.T) {
	_, o := parse(t, "-duration", "2.5", "-fps", "24")
	if n := o.Frames(); n != 60 {
		t.Fatalf("expected 60 frames; have %d", n)
	}
}
