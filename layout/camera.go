package layout

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a perspective camera looking at the origin down -z.
type Camera struct {
	FovY float32 // Vertical field of view in degrees.
	Eye  mgl32.Vec3
	Near float32
	Far  float32
}

// DefaultCamera frames a 50x50 grid of 0.09 quads: 25° field of view from z = 10.
var DefaultCamera = Camera{
	FovY: 25,
	Eye:  mgl32.Vec3{0, 0, 10},
	Near: 0.1,
	Far:  100,
}

// Aspect returns width/height, or 1 for degenerate sizes.
func Aspect(width, height int) float32 {
	if width <= 0 || height <= 0 {
		return 1
	}
	return float32(width) / float32(height)
}

// View returns the view matrix.
func (c Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
}

// Projection returns the projection matrix for the given aspect ratio.
func (c Camera) Projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FovY), aspect, c.Near, c.Far)
}

// ViewProj returns projection × view.
func (c Camera) ViewProj(aspect float32) mgl32.Mat4 {
	return c.Projection(aspect).Mul4(c.View())
}

// Fit moves the eye along z until a rectangle of the given half extents,
// centred at the origin, fills the view with margin as a fraction of the
// view left free on each side.
func (c Camera) Fit(halfW, halfH, aspect, margin float32) Camera {
	tanHalf := float32(math.Tan(float64(mgl32.DegToRad(c.FovY) / 2)))
	if tanHalf <= 0 || aspect <= 0 {
		return c
	}
	scale := 1 - 2*margin
	if scale <= 0 {
		scale = 1
	}
	dy := halfH / (tanHalf * scale)
	dx := halfW / (tanHalf * aspect * scale)
	d := dy
	if dx > d {
		d = dx
	}
	c.Eye = mgl32.Vec3{0, 0, d}
	return c
}
