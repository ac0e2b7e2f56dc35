package renderer

import (
	"image"
	"log"
	"time"

	"github.com/pkg/errors"
	"github.com/richinsley/geezmosaic/inputs"
)

// FrameWriter consumes rendered frames, top row first.
type FrameWriter interface {
	WriteFrame(img *image.RGBA) error
}

// runWriter is the consumer. It writes frames until frameChan is closed and
// reports the first error.
func runWriter(w FrameWriter, frameChan <-chan *image.RGBA, doneChan chan<- error) {
	var firstErr error
	for frame := range frameChan {
		if firstErr != nil {
			continue
		}
		if err := w.WriteFrame(frame); err != nil {
			firstErr = err
		}
	}
	doneChan <- firstErr
}

// RunOffscreen renders frames at fps and hands them to w. Video sources are
// paced in real time so the recording follows their playback rate.
func (r *Renderer) RunOffscreen(w FrameWriter, frames, fps int) error {
	log.Printf("Recording %d frames at %d fps", frames, fps)
	frameChan := make(chan *image.RGBA, numPBOs)
	doneChan := make(chan error, 1)

	go runWriter(w, frameChan, doneChan)

	var ticker *time.Ticker
	if src := r.pipe.Source(); src != nil && src.Kind() == inputs.KindVideo {
		ticker = time.NewTicker(time.Second / time.Duration(fps))
		defer ticker.Stop()
	}

	var renderErr error
	for i := 0; i < frames; i++ {
		if ticker != nil {
			<-ticker.C
		}
		r.RenderFrame()
		frame, err := r.offscreenRenderer.ReadPixelsAsync()
		if err != nil {
			renderErr = errors.Wrapf(err, "failed to read frame %d", i)
			break
		}
		if frame != nil {
			frameChan <- frame
		}
		r.context.EndFrame()

		if fps > 0 && (i+1)%fps == 0 {
			log.Printf("Rendered %d/%d frames", i+1, frames)
		}
	}

	if renderErr == nil {
		remaining, err := r.offscreenRenderer.Drain()
		for _, frame := range remaining {
			frameChan <- frame
		}
		renderErr = err
	}

	close(frameChan)
	writeErr := <-doneChan
	if renderErr != nil {
		return renderErr
	}
	return writeErr
}

// Snapshot renders one frame and reads it back.
func (r *Renderer) Snapshot() *image.RGBA {
	r.RenderFrame()
	return r.offscreenRenderer.ReadPixels()
}
