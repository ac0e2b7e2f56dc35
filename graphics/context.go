// Package graphics defines the OpenGL context the renderer draws into.
package graphics

// Context is an OpenGL context backed by a window or an offscreen surface.
type Context interface {
	MakeCurrent()
	Shutdown()
	ShouldClose() bool
	EndFrame()
	// GetFramebufferSize returns the drawable size in pixels.
	GetFramebufferSize() (int, int)
	Time() float64
	IsGLES() bool
}

// MaxPixelRatio caps the framebuffer to window size ratio used for rendering
// on high density displays.
const MaxPixelRatio = 2.0

// RenderSize scales a window size by the display pixel ratio, capped at
// MaxPixelRatio.
func RenderSize(winWidth, winHeight int, ratio float64) (int, int) {
	if ratio <= 0 {
		ratio = 1
	}
	if ratio > MaxPixelRatio {
		ratio = MaxPixelRatio
	}
	w := int(float64(winWidth)*ratio + 0.5)
	h := int(float64(winHeight)*ratio + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
