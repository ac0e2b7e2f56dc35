package inputs

import (
	"image"
	"math"
)

// Kind classifies a source file by MIME type prefix.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Source is the visual the mosaic samples brightness from. Exactly one
// Source is attached to a pipeline at a time.
type Source interface {
	// Kind reports whether the source is a still image or a video.
	Kind() Kind

	// Update is polled once per frame. It returns true when a new frame is
	// available and Frame now returns it.
	Update() bool

	// Frame returns the current frame, top row first. The image stays
	// valid until the next call to Update.
	Frame() *image.RGBA

	// Sample returns the red channel of the current frame at (u, v) in
	// [0,1], with v = 0 at the bottom row.
	Sample(u, v float64) float64

	// Destroy releases the source. Video playback stops.
	Destroy()
}

// Options control how sources are decoded.
type Options struct {
	// MaxSize bounds the longest side of decoded frames. Zero keeps the
	// native size.
	MaxSize int
	// FFmpegPath overrides the ffmpeg binary used for video.
	FFmpegPath string
}

// sampleRed reads the nearest texel of img at (u, v), v = 0 at the bottom.
func sampleRed(img *image.RGBA, u, v float64) float64 {
	if img == nil {
		return 0
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	x := clampInt(int(math.Floor(u*float64(w))), 0, w-1)
	y := clampInt(int(math.Floor((1-v)*float64(h))), 0, h-1)
	return float64(img.Pix[y*img.Stride+x*4]) / 255
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

// VFlip returns a vertically flipped copy of src. Frames are stored top row
// first while GL textures start at the bottom.
func VFlip(src *image.RGBA) *image.RGBA {
	bounds := src.Bounds()
	flipped := image.NewRGBA(bounds)
	height := bounds.Dy()

	rowSize := bounds.Dx() * 4
	for y := 0; y < height; y++ {
		srcRow := src.Pix[((height-1)-y)*src.Stride:]
		dstRow := flipped.Pix[y*flipped.Stride:]
		copy(dstRow, srcRow[:rowSize])
	}
	return flipped
}
