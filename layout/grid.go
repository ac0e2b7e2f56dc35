package layout

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// ErrEmptyGrid is returned for a grid without instances.
var ErrEmptyGrid = errors.New("layout: grid must have at least one row and one column")

// Grid describes a centred rows×columns arrangement of square quads.
type Grid struct {
	Rows    int
	Columns int
	Size    float32 // Quad edge length and centre-to-centre spacing.
}

// Instances is the per-instance attribute data of a grid. Every slice is
// written once by Build and never recomputed.
type Instances struct {
	Grid       Grid
	Positions  []float32    // x, y, z per instance.
	SampleUVs  []float32    // u, v per instance.
	Transforms []mgl32.Mat4 // Translation to Positions, one per instance.
}

// Build lays out the grid. Instance (i,j) sits at
// (i*size - size*(rows-1)/2, j*size - size*(columns-1)/2, 0) and samples the
// source at (i/(rows-1), j/(columns-1)). Instances are stored row-major:
// index = i*columns + j.
func Build(g Grid) (*Instances, error) {
	if g.Rows < 1 || g.Columns < 1 {
		return nil, ErrEmptyGrid
	}
	if g.Size <= 0 {
		return nil, errors.Errorf("layout: quad size must be positive; have %v", g.Size)
	}

	n := g.Rows * g.Columns
	inst := &Instances{
		Grid:       g,
		Positions:  make([]float32, n*3),
		SampleUVs:  make([]float32, n*2),
		Transforms: make([]mgl32.Mat4, n),
	}

	offX := g.Size * float32(g.Rows-1) / 2
	offY := g.Size * float32(g.Columns-1) / 2

	for i := 0; i < g.Rows; i++ {
		for j := 0; j < g.Columns; j++ {
			idx := i*g.Columns + j

			x := float32(i)*g.Size - offX
			y := float32(j)*g.Size - offY
			inst.Positions[idx*3] = x
			inst.Positions[idx*3+1] = y
			inst.Positions[idx*3+2] = 0

			inst.SampleUVs[idx*2] = span(i, g.Rows)
			inst.SampleUVs[idx*2+1] = span(j, g.Columns)

			inst.Transforms[idx] = mgl32.Translate3D(x, y, 0)
		}
	}
	return inst, nil
}

// span maps index i of n onto [0,1]. A single entry samples at 0.
func span(i, n int) float32 {
	if n < 2 {
		return 0
	}
	return float32(i) / float32(n-1)
}

// Len returns the instance count.
func (in *Instances) Len() int {
	return in.Grid.Rows * in.Grid.Columns
}

// Position returns the centre of instance idx.
func (in *Instances) Position(idx int) mgl32.Vec3 {
	return mgl32.Vec3{in.Positions[idx*3], in.Positions[idx*3+1], in.Positions[idx*3+2]}
}

// SampleUV returns the source coordinate of instance idx.
func (in *Instances) SampleUV(idx int) mgl32.Vec2 {
	return mgl32.Vec2{in.SampleUVs[idx*2], in.SampleUVs[idx*2+1]}
}

// TransformFloats flattens the instance matrices column-major, the layout of
// a per-instance mat4 vertex attribute.
func (in *Instances) TransformFloats() []float32 {
	out := make([]float32, 0, len(in.Transforms)*16)
	for _, m := range in.Transforms {
		out = append(out, m[:]...)
	}
	return out
}

// Extent returns the half-width and half-height of the area covered by the
// quads, edges included.
func (in *Instances) Extent() (halfW, halfH float32) {
	g := in.Grid
	return g.Size * float32(g.Rows) / 2, g.Size * float32(g.Columns) / 2
}
