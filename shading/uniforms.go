package shading

import (
	"math"
	"sync"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/richinsley/geezmosaic/palette"
)

// Parameter ranges. Values outside are clamped by Update.
const (
	MinHue         = 0.0
	MaxHue         = 360.0
	MinPaletteSize = 1
	MaxPaletteSize = 10
	MinGamma       = 0.1
	MaxGamma       = 20.0
)

// Params are the live-tunable shading parameters.
type Params struct {
	BaseHue     float64
	PaletteSize int
	Gamma       float64
}

// DefaultParams are the startup values of the command line flags.
var DefaultParams = Params{BaseHue: 0, PaletteSize: 5, Gamma: 0.9}

// Clamp returns p with every field forced into its documented range.
func (p Params) Clamp() Params {
	switch {
	case math.IsNaN(p.BaseHue):
		p.BaseHue = MinHue
	case p.BaseHue < MinHue:
		p.BaseHue = MinHue
	case p.BaseHue > MaxHue:
		p.BaseHue = MaxHue
	}
	if p.PaletteSize < MinPaletteSize {
		p.PaletteSize = MinPaletteSize
	} else if p.PaletteSize > MaxPaletteSize {
		p.PaletteSize = MaxPaletteSize
	}
	switch {
	case math.IsNaN(p.Gamma), p.Gamma < MinGamma:
		p.Gamma = MinGamma
	case p.Gamma > MaxGamma:
		p.Gamma = MaxGamma
	}
	return p
}

// Snapshot is an immutable view of the uniform cells for one frame.
type Snapshot struct {
	Params
	Palette palette.Palette // Exactly PaletteSize entries.
	Version uint64
}

// Uniforms holds the shared cells read by the shading function. Update is
// the only mutator; readers take a Snapshot once per frame.
type Uniforms struct {
	mu        sync.RWMutex
	params    Params
	cells     []colorful.Color // Capacity-sized; entries past PaletteSize may be stale.
	version   uint64
	observers []func(Snapshot)
}

// NewUniforms allocates cells for at least capacity colours and applies p.
func NewUniforms(p Params, capacity int) *Uniforms {
	if capacity < MinPaletteSize {
		capacity = MinPaletteSize
	}
	u := &Uniforms{cells: make([]colorful.Color, capacity)}
	u.Update(p.BaseHue, p.PaletteSize, p.Gamma)
	return u
}

// Update writes new parameter values, regenerates the palette and overwrites
// the colour cells positionally. Cells beyond the new size are left as they
// were. A size larger than the current capacity reallocates the cells.
func (u *Uniforms) Update(baseHue float64, paletteSize int, gamma float64) {
	p := Params{BaseHue: baseHue, PaletteSize: paletteSize, Gamma: gamma}.Clamp()
	colors := palette.Generate(p.BaseHue, p.PaletteSize)

	u.mu.Lock()
	if len(colors) > len(u.cells) {
		cells := make([]colorful.Color, len(colors))
		copy(cells, u.cells)
		u.cells = cells
	}
	copy(u.cells, colors)
	u.params = p
	u.version++
	snap := u.snapshotLocked()
	observers := u.observers
	u.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

// Set is Update taking a Params value.
func (u *Uniforms) Set(p Params) {
	u.Update(p.BaseHue, p.PaletteSize, p.Gamma)
}

// Snapshot returns the current parameters and the active palette entries.
func (u *Uniforms) Snapshot() Snapshot {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.snapshotLocked()
}

func (u *Uniforms) snapshotLocked() Snapshot {
	p := make(palette.Palette, u.params.PaletteSize)
	copy(p, u.cells)
	return Snapshot{Params: u.params, Palette: p, Version: u.version}
}

// Params returns the current parameter values.
func (u *Uniforms) Params() Params {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.params
}

// Cells returns a copy of every allocated colour cell, including stale ones.
func (u *Uniforms) Cells() []colorful.Color {
	u.mu.RLock()
	defer u.mu.RUnlock()
	out := make([]colorful.Color, len(u.cells))
	copy(out, u.cells)
	return out
}

// Capacity returns the number of allocated colour cells.
func (u *Uniforms) Capacity() int {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return len(u.cells)
}

// Version increments on every Update.
func (u *Uniforms) Version() uint64 {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.version
}

// Subscribe registers fn to be called after every Update with the new state.
func (u *Uniforms) Subscribe(fn func(Snapshot)) {
	u.mu.Lock()
	u.observers = append(u.observers, fn)
	u.mu.Unlock()
}
