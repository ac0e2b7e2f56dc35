package inputs

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"
)

// gradient is dark on the left and bright on the right; the top row is
// fully red so orientation can be checked.
func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r := uint8(x * 255 / (w - 1))
			if y == 0 {
				r = 255
			}
			img.SetRGBA(x, y, color.RGBA{R: r, G: r, B: r, A: 255})
		}
	}
	return img
}

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "source.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestOpenImage(t *testing.T) {
	path := writePNG(t, gradient(8, 4))

	src, err := Open(path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Destroy()

	if src.Kind() != KindImage {
		t.Fatalf("expected image source; have %s", src.Kind())
	}
	if size := src.Frame().Bounds().Size(); size != image.Pt(8, 4) {
		t.Fatalf("unexpected frame size %v", size)
	}
	if !src.Update() {
		t.Fatalf("expected first Update to report a frame")
	}
	if src.Update() {
		t.Fatalf("expected static image to report no further frames")
	}
}

func TestSampleOrientation(t *testing.T) {
	src, err := NewImageSource(gradient(8, 4), 0)
	if err != nil {
		t.Fatal(err)
	}

	if s := src.Sample(0, 0); s != 0 {
		t.Fatalf("bottom-left: expected 0; have %v", s)
	}
	if s := src.Sample(1, 0); s != 1 {
		t.Fatalf("bottom-right: expected 1; have %v", s)
	}
	// v = 1 addresses the top row, which is fully lit.
	if s := src.Sample(0, 1); s != 1 {
		t.Fatalf("top-left: expected 1; have %v", s)
	}
}

func TestFitSize(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{640, 480, 0, 640, 480},
		{640, 480, 1000, 640, 480},
		{640, 480, 320, 320, 240},
		{480, 640, 320, 240, 320},
		{1000, 1, 10, 10, 1},
	}
	for _, tt := range tests {
		w, h := fitSize(tt.w, tt.h, tt.max)
		if w != tt.wantW || h != tt.wantH {
			t.Fatalf("fitSize(%d, %d, %d): expected %dx%d; have %dx%d", tt.w, tt.h, tt.max, tt.wantW, tt.wantH, w, h)
		}
	}
}

func TestNewImageSourceScales(t *testing.T) {
	src, err := NewImageSource(gradient(64, 32), 16)
	if err != nil {
		t.Fatal(err)
	}
	if size := src.Frame().Bounds().Size(); size != image.Pt(16, 8) {
		t.Fatalf("expected 16x8; have %v", size)
	}
	if _, err := NewImageSource(nil, 0); err == nil {
		t.Fatalf("expected error for nil image")
	}
}

func TestKindOf(t *testing.T) {
	var pngBuf bytes.Buffer
	png.Encode(&pngBuf, gradient(2, 2))

	tests := []struct {
		name string
		head []byte
		ext  string
		want Kind
		ok   bool
	}{
		{"png bytes", pngBuf.Bytes(), "", KindImage, true},
		{"webm bytes", []byte("\x1A\x45\xDF\xA3"), "", KindVideo, true},
		{"unknown bytes, mp4 ext", []byte{0, 1, 2, 3}, ".MP4", KindVideo, true},
		{"text", []byte("hello world"), ".txt", "", false},
		{"empty, no ext", nil, "", "", false},
	}

	for _, tt := range tests {
		have, _, err := kindOf(tt.head, tt.ext)
		if (err == nil) != tt.ok {
			t.Fatalf("%s: unexpected error state %v", tt.name, err)
		}
		if have != tt.want {
			t.Fatalf("%s: expected %q; have %q", tt.name, tt.want, have)
		}
	}
}

func TestOpenRejectsText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("not a picture"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path, Options{}); err == nil {
		t.Fatalf("expected unsupported type error")
	}
}

func TestParseProbe(t *testing.T) {
	out := `{"streams":[{"codec_type":"audio"},{"codec_type":"video","width":1280,"height":720}]}`
	w, h, err := parseProbe(out)
	if err != nil || w != 1280 || h != 720 {
		t.Fatalf("expected 1280x720; have %dx%d, %v", w, h, err)
	}
	if _, _, err := parseProbe(`{"streams":[]}`); err == nil {
		t.Fatalf("expected error without video stream")
	}
}

func TestVFlip(t *testing.T) {
	img := gradient(4, 3)
	f := VFlip(img)
	if f.Pix[0] != img.Pix[2*img.Stride] || f.Pix[2*f.Stride+4] != 255 {
		t.Fatalf("rows not flipped")
	}
}

func TestDecodeStreamKeepsStdoutClear(t *testing.T) {
	var logBuf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&logBuf)
	defer log.SetOutput(prev)

	var frames bytes.Buffer
	stream := decodeStream("clip.mp4", 32, 16, Options{}, &frames)

	args := stream.GetArgs()
	index := func(arg string) int {
		for i, a := range args {
			if a == arg {
				return i
			}
		}
		return -1
	}
	input := index("-i")
	if input < 0 {
		t.Fatalf("no input in %v", args)
	}
	if i := index("-nostats"); i < 0 || i > input {
		t.Fatalf("expected -nostats before the input; have %v", args)
	}
	if i := index("-loglevel"); i < 0 || i > input || args[i+1] != "error" {
		t.Fatalf("expected -loglevel error before the input; have %v", args)
	}

	cmd := stream.Compile()
	if cmd.Stdout != io.Writer(&frames) {
		t.Fatalf("expected frames on the pipe writer")
	}
	if cmd.Stderr != io.Writer(&logBuf) {
		t.Fatalf("expected diagnostics on the log writer; have %T", cmd.Stderr)
	}
}
