// Package pipeline wires the glyph atlas, palette uniforms, instance layout
// and source visual into the one parameterised mosaic pipeline shared by all
// front ends.
package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"math"
	"os"
	"sync"

	"github.com/richinsley/geezmosaic/glyph"
	"github.com/richinsley/geezmosaic/inputs"
	"github.com/richinsley/geezmosaic/layout"
	"github.com/richinsley/geezmosaic/options"
	"github.com/richinsley/geezmosaic/shading"
)

// Config selects the dictionary, grid and initial parameters.
type Config struct {
	Dictionary glyph.Dictionary
	Atlas      glyph.AtlasOptions
	Grid       layout.Grid
	Params     shading.Params
	Source     inputs.Options
}

// ConfigFromOptions builds a Config from command line options.
func ConfigFromOptions(o *options.MosaicOptions) (Config, error) {
	dict, err := glyph.Named(*o.Dictionary)
	if err != nil {
		return Config{}, fmt.Errorf("invalid dictionary: %w", err)
	}

	var fontData []byte
	if *o.FontFile != "" {
		fontData, err = os.ReadFile(*o.FontFile)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read font: %w", err)
		}
	}

	return Config{
		Dictionary: dict,
		Atlas: glyph.AtlasOptions{
			CellSize: *o.CellSize,
			Font:     fontData,
			Style: glyph.Style{
				Glow:     *o.Glow,
				GlowFrom: *o.GlowFrom,
				Jitter:   *o.Jitter,
				Noise:    *o.Noise,
				Seed:     *o.Seed,
			},
		},
		Grid: layout.Grid{
			Rows:    *o.Rows,
			Columns: *o.Columns,
			Size:    float32(*o.QuadSize),
		},
		Params: o.Params(),
		Source: inputs.Options{
			MaxSize:    *o.MaxSourceSize,
			FFmpegPath: *o.FFMPEGPath,
		},
	}, nil
}

// Pipeline owns everything a backend needs to draw one frame.
type Pipeline struct {
	Atlas     *glyph.Atlas
	Instances *layout.Instances
	Uniforms  *shading.Uniforms

	sourceOpts inputs.Options
	open       func(path string, opts inputs.Options) (inputs.Source, error)

	mu         sync.Mutex
	source     inputs.Source
	generation uint64
}

// New builds the atlas and instance layout once. The pipeline starts with a
// placeholder source until Load or Attach replaces it.
func New(cfg Config) (*Pipeline, error) {
	atlas, err := glyph.BuildAtlas(cfg.Dictionary, cfg.Atlas)
	if err != nil {
		return nil, fmt.Errorf("failed to build glyph atlas: %w", err)
	}
	log.Printf("Built glyph atlas: %d glyphs, %dx%d", atlas.Count(), atlas.Image.Bounds().Dx(), atlas.Image.Bounds().Dy())

	inst, err := layout.Build(cfg.Grid)
	if err != nil {
		return nil, fmt.Errorf("failed to build instance layout: %w", err)
	}
	log.Printf("Laid out %dx%d instances", cfg.Grid.Rows, cfg.Grid.Columns)

	p := &Pipeline{
		Atlas:      atlas,
		Instances:  inst,
		Uniforms:   shading.NewUniforms(cfg.Params, shading.MaxPaletteSize),
		sourceOpts: cfg.Source,
		open:       inputs.Open,
	}

	placeholder, err := inputs.NewImageSource(Placeholder(256), 0)
	if err != nil {
		return nil, err
	}
	p.Attach(placeholder)
	return p, nil
}

// Load decodes path and swaps it in. On failure the current source stays
// attached.
func (p *Pipeline) Load(path string) error {
	src, err := p.open(path, p.sourceOpts)
	if err != nil {
		log.Printf("Failed to load %s: %v", path, err)
		return err
	}
	log.Printf("Loaded %s source %s", src.Kind(), path)
	p.Attach(src)
	return nil
}

// Attach makes src the current source and destroys the previous one.
func (p *Pipeline) Attach(src inputs.Source) {
	p.mu.Lock()
	old := p.source
	p.source = src
	p.generation++
	p.mu.Unlock()

	if old != nil {
		old.Destroy()
	}
}

// Source returns the attached source.
func (p *Pipeline) Source() inputs.Source {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.source
}

// Generation increments every time a new source is attached.
func (p *Pipeline) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

// Poll is called once per frame. It reports whether the source has a new
// frame for the backend to upload. A destroyed pipeline never has one.
func (p *Pipeline) Poll() bool {
	src := p.Source()
	if src == nil {
		return false
	}
	return src.Update()
}

// Snapshot returns the shading parameters for this frame.
func (p *Pipeline) Snapshot() shading.Snapshot {
	return p.Uniforms.Snapshot()
}

// Sample reads the attached source, or black once the pipeline is destroyed.
func (p *Pipeline) Sample(u, v float64) float64 {
	src := p.Source()
	if src == nil {
		return 0
	}
	return src.Sample(u, v)
}

// Destroy releases the attached source.
func (p *Pipeline) Destroy() {
	p.mu.Lock()
	src := p.source
	p.source = nil
	p.mu.Unlock()
	if src != nil {
		src.Destroy()
	}
}

// FitMargin is the fraction of the view left free on each side when the
// camera is fitted to the grid.
const FitMargin = 0.02

// Camera returns the camera for a width×height frame. With fit set the eye
// moves so the whole grid is visible.
func (p *Pipeline) Camera(width, height int, fit bool) layout.Camera {
	cam := layout.DefaultCamera
	if !fit {
		return cam
	}
	halfW, halfH := p.Instances.Extent()
	return cam.Fit(halfW, halfH, layout.Aspect(width, height), FitMargin)
}

// Placeholder is the source shown before any file is loaded: a soft radial
// gradient, bright in the centre.
func Placeholder(size int) *image.RGBA {
	if size < 2 {
		size = 2
	}
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	c := float64(size-1) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			d := math.Hypot(float64(x)-c, float64(y)-c) / c
			v := uint8(255 * math.Max(0, 1-d))
			img.SetRGBA(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}
