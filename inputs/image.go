package inputs

import (
	"fmt"
	"image"
	"log"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageSource is a static picture. Its frame never changes after decode.
type ImageSource struct {
	frame   *image.RGBA
	pending bool
}

// OpenImage decodes an image file.
func OpenImage(path string, opts Options) (*ImageSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	log.Printf("Decoded %s image %s (%dx%d)", format, path, img.Bounds().Dx(), img.Bounds().Dy())
	return NewImageSource(img, opts.MaxSize)
}

// NewImageSource converts img to RGBA, scaled down so that its longest side
// is at most maxSize.
func NewImageSource(img image.Image, maxSize int) (*ImageSource, error) {
	if img == nil {
		return nil, fmt.Errorf("input image is nil")
	}
	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("input image is empty")
	}

	w, h := fitSize(b.Dx(), b.Dy(), maxSize)
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(rgba, rgba.Bounds(), img, b, draw.Src, nil)
	}
	return &ImageSource{frame: rgba, pending: true}, nil
}

// fitSize scales (w, h) down, keeping the aspect ratio, until neither side
// exceeds max. Sizes never drop below one pixel.
func fitSize(w, h, max int) (int, int) {
	if max <= 0 || (w <= max && h <= max) {
		return w, h
	}
	if w >= h {
		nh := h * max / w
		if nh < 1 {
			nh = 1
		}
		return max, nh
	}
	nw := w * max / h
	if nw < 1 {
		nw = 1
	}
	return nw, max
}

func (s *ImageSource) Kind() Kind { return KindImage }

// Update reports the decoded frame once, then never again.
func (s *ImageSource) Update() bool {
	fresh := s.pending
	s.pending = false
	return fresh
}

func (s *ImageSource) Frame() *image.RGBA { return s.frame }

func (s *ImageSource) Sample(u, v float64) float64 { return sampleRed(s.frame, u, v) }

func (s *ImageSource) Destroy() {}
