//go:build !linux

package headless

import (
	"github.com/pkg/errors"
	"github.com/richinsley/geezmosaic/graphics"
)

// ErrUnsupported is returned on platforms without EGL.
var ErrUnsupported = errors.New("egl headless rendering is not supported on this platform")

func NewHeadless(width, height int) (graphics.Context, error) {
	return nil, ErrUnsupported
}
