// Package software evaluates the mosaic on the CPU. It produces the same
// image as the GPU program by calling the shading function per pixel.
package software

import (
	"image"
	"math"
	"runtime"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/richinsley/geezmosaic/layout"
	"github.com/richinsley/geezmosaic/shading"
)

// Sampler returns the raw brightness channel of a source at (u, v), v = 0
// at the bottom.
type Sampler interface {
	Sample(u, v float64) float64
}

// Renderer rasterises an instance grid seen through a camera.
type Renderer struct {
	width   int
	height  int
	camera  layout.Camera
	workers int
	invVP   mgl32.Mat4
}

// New creates a renderer for frames of width×height pixels.
func New(width, height int, camera layout.Camera) *Renderer {
	r := &Renderer{workers: runtime.NumCPU()}
	r.Resize(width, height, camera)
	return r
}

// Resize updates the frame size and camera, recomputing the projection.
func (r *Renderer) Resize(width, height int, camera layout.Camera) {
	r.width, r.height, r.camera = width, height, camera
	r.invVP = camera.ViewProj(layout.Aspect(width, height)).Inv()
}

// SetWorkers bounds the number of goroutines used per frame.
func (r *Renderer) SetWorkers(n int) {
	if n < 1 {
		n = 1
	}
	r.workers = n
}

// Bounds returns the frame rectangle.
func (r *Renderer) Bounds() image.Rectangle {
	return image.Rect(0, 0, r.width, r.height)
}

// Render draws one frame into dst, which must cover Bounds. Pixels outside
// the grid are cleared to black.
func (r *Renderer) Render(dst *image.RGBA, inst *layout.Instances, atlas shading.AtlasSampler, src Sampler, snap shading.Snapshot) {
	// Every pixel of an instance reads the same source texel.
	raws := make([]float64, inst.Len())
	for k := range raws {
		uv := inst.SampleUV(k)
		raws[k] = src.Sample(float64(uv.X()), float64(uv.Y()))
	}

	bands := r.workers
	if bands > r.height {
		bands = r.height
	}
	if bands < 1 {
		return
	}
	rowsPerBand := (r.height + bands - 1) / bands

	var wg sync.WaitGroup
	for y0 := 0; y0 < r.height; y0 += rowsPerBand {
		y1 := y0 + rowsPerBand
		if y1 > r.height {
			y1 = r.height
		}
		wg.Add(1)
		go func(y0, y1 int) {
			defer wg.Done()
			r.renderRows(dst, y0, y1, inst, atlas, raws, snap)
		}(y0, y1)
	}
	wg.Wait()
}

func (r *Renderer) renderRows(dst *image.RGBA, y0, y1 int, inst *layout.Instances, atlas shading.AtlasSampler, raws []float64, snap shading.Snapshot) {
	g := inst.Grid
	halfW, halfH := inst.Extent()
	size := float64(g.Size)

	for py := y0; py < y1; py++ {
		row := dst.Pix[py*dst.Stride:]
		for px := 0; px < r.width; px++ {
			off := px * 4
			wx, wy, ok := r.worldAt(px, py)
			if !ok {
				setPixel(row[off:], 0, 0, 0)
				continue
			}

			gx := (wx + float64(halfW)) / size
			gy := (wy + float64(halfH)) / size
			i, j := int(math.Floor(gx)), int(math.Floor(gy))
			if i < 0 || i >= g.Rows || j < 0 || j >= g.Columns {
				setPixel(row[off:], 0, 0, 0)
				continue
			}

			c := shading.Shade(shading.Fragment{
				Raw:    raws[i*g.Columns+j],
				LocalU: gx - float64(i),
				LocalV: gy - float64(j),
			}, snap, atlas)
			setPixel(row[off:], c.R, c.G, c.B)
		}
	}
}

// worldAt intersects the ray through the centre of pixel (px, py) with the
// z = 0 plane.
func (r *Renderer) worldAt(px, py int) (x, y float64, ok bool) {
	ndcX := 2*(float32(px)+0.5)/float32(r.width) - 1
	ndcY := 1 - 2*(float32(py)+0.5)/float32(r.height)

	near := unproject(r.invVP, ndcX, ndcY, -1)
	far := unproject(r.invVP, ndcX, ndcY, 1)
	dir := far.Sub(near)
	if dir.Z() == 0 {
		return 0, 0, false
	}
	t := -near.Z() / dir.Z()
	if t < 0 {
		return 0, 0, false
	}
	p := near.Add(dir.Mul(t))
	return float64(p.X()), float64(p.Y()), true
}

func unproject(inv mgl32.Mat4, x, y, z float32) mgl32.Vec3 {
	v := inv.Mul4x1(mgl32.Vec4{x, y, z, 1})
	return v.Vec3().Mul(1 / v.W())
}

func setPixel(p []uint8, r, g, b float64) {
	p[0] = toByte(r)
	p[1] = toByte(g)
	p[2] = toByte(b)
	p[3] = 255
}

func toByte(v float64) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
