package encoder

import (
	"flag"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"

	options "github.com/richinsley/geezmosaic/options"
)

func testOptions(t *testing.T, args ...string) *options.MosaicOptions {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	o := options.Register(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatal(err)
	}
	return o
}

func TestGetArgs(t *testing.T) {
	tests := []struct {
		args  []string
		codec string
		tag   bool
	}{
		{[]string{"-codec", "h264", "-output", "a.mp4"}, "libx264", false},
		{[]string{"-codec", "hevc", "-output", "a.MP4"}, "libx265", true},
		{[]string{"-codec", "hevc", "-output", "a.mkv"}, "libx265", false},
	}

	for _, tt := range tests {
		o := testOptions(t, append(tt.args, "-width", "320", "-height", "240", "-fps", "25")...)
		in, out := getArgs(o)

		if in["s"] != "320x240" || in["pix_fmt"] != "rgba" || in["framerate"] != "25" {
			t.Fatalf("%v: unexpected input args %v", tt.args, in)
		}
		if out["c:v"] != tt.codec {
			t.Fatalf("%v: expected codec %s; have %v", tt.args, tt.codec, out["c:v"])
		}
		if _, ok := out["tag:v"]; ok != tt.tag {
			t.Fatalf("%v: unexpected tag:v presence %v", tt.args, ok)
		}
	}
}

func TestWritePNG(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Pix[0] = 200
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	path := filepath.Join(t.TempDir(), "out.png")

	if err := WritePNG(path, img); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	decoded, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Bounds() != img.Bounds() {
		t.Fatalf("expected bounds %v; have %v", img.Bounds(), decoded.Bounds())
	}
	if r, _, _, _ := decoded.At(0, 0).RGBA(); r>>8 != 200 {
		t.Fatalf("expected red 200; have %d", r>>8)
	}
}

func TestWriteFrameSizeMismatch(t *testing.T) {
	e := &Encoder{width: 4, height: 4}
	if err := e.WriteFrame(image.NewRGBA(image.Rect(0, 0, 2, 2))); err == nil {
		t.Fatalf("expected size mismatch error")
	}
}
