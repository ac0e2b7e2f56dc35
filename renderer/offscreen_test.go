package renderer

import (
	"image"
	"testing"

	"github.com/pkg/errors"
)

func TestFlipRows(t *testing.T) {
	// Two rows of two pixels, bottom row first as GL returns them.
	pixels := []byte{
		1, 1, 1, 255, 2, 2, 2, 255,
		3, 3, 3, 255, 4, 4, 4, 255,
	}
	img := flipRows(pixels, 2, 2)

	if img.Pix[0] != 3 || img.Pix[4] != 4 {
		t.Fatalf("expected top row 3,4; have %d,%d", img.Pix[0], img.Pix[4])
	}
	if img.Pix[8] != 1 || img.Pix[12] != 2 {
		t.Fatalf("expected bottom row 1,2; have %d,%d", img.Pix[8], img.Pix[12])
	}
}

type recorder struct {
	frames int
	failAt int
}

func (r *recorder) WriteFrame(img *image.RGBA) error {
	r.frames++
	if r.frames == r.failAt {
		return errors.New("disk full")
	}
	return nil
}

func TestRunWriter(t *testing.T) {
	rec := &recorder{failAt: 2}
	frameChan := make(chan *image.RGBA, 4)
	doneChan := make(chan error, 1)

	for i := 0; i < 4; i++ {
		frameChan <- image.NewRGBA(image.Rect(0, 0, 1, 1))
	}
	close(frameChan)
	runWriter(rec, frameChan, doneChan)

	if err := <-doneChan; err == nil || err.Error() != "disk full" {
		t.Fatalf("expected first write error; have %v", err)
	}
	if rec.frames != 2 {
		t.Fatalf("expected writes to stop after the error; have %d", rec.frames)
	}
}
