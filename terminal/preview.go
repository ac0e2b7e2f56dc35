// Package terminal previews the mosaic in a terminal: every instance is one
// character cell holding the glyph chosen for its brightness, coloured with
// its palette band.
package terminal

import (
	"fmt"
	"log"
	"time"

	"github.com/gdamore/tcell/v2"
	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/richinsley/geezmosaic/controls"
	"github.com/richinsley/geezmosaic/pipeline"
	"github.com/richinsley/geezmosaic/shading"
)

// Preview draws a pipeline onto a tcell screen.
type Preview struct {
	screen   tcell.Screen
	pipe     *pipeline.Pipeline
	controls *controls.Controls
	interval time.Duration

	// State shown by the last Draw.
	version    uint64
	generation uint64
	resized    bool
}

// New creates a preview refreshing fps times per second.
func New(screen tcell.Screen, p *pipeline.Pipeline, c *controls.Controls, fps int) *Preview {
	if fps < 1 {
		fps = 1
	}
	return &Preview{
		screen:   screen,
		pipe:     p,
		controls: c,
		interval: time.Second / time.Duration(fps),
	}
}

// Cell returns the glyph and colour of instance k.
func (v *Preview) Cell(k int, snap shading.Snapshot) (rune, colorful.Color) {
	uv := v.pipe.Instances.SampleUV(k)
	raw := v.pipe.Sample(float64(uv.X()), float64(uv.Y()))
	b := shading.Brightness(raw, snap.Gamma)
	cell := shading.CellIndex(b, v.pipe.Atlas.Count())
	return v.pipe.Atlas.Rune(cell), shading.Blend(b, snap.Palette)
}

// viewport maps the grid onto the screen, keeping the last line for the
// status bar. Each instance is two columns wide when the screen has room.
func (v *Preview) viewport() (cols, lines, cellW int) {
	w, h := v.screen.Size()
	g := v.pipe.Instances.Grid
	lines = h - 1
	if lines > g.Columns {
		lines = g.Columns
	}
	cellW = 1
	if 2*g.Rows <= w {
		cellW = 2
	}
	cols = w / cellW
	if cols > g.Rows {
		cols = g.Rows
	}
	return cols, lines, cellW
}

// Stale reports whether the screen lags behind the pipeline: the parameters
// or the source changed, or the terminal was resized since the last Draw.
func (v *Preview) Stale() bool {
	return v.resized ||
		v.pipe.Uniforms.Version() != v.version ||
		v.pipe.Generation() != v.generation
}

// Draw renders one frame.
func (v *Preview) Draw() {
	snap := v.pipe.Snapshot()
	v.version = snap.Version
	v.generation = v.pipe.Generation()
	v.resized = false
	g := v.pipe.Instances.Grid
	cols, lines, cellW := v.viewport()

	v.screen.Clear()
	for sy := 0; sy < lines; sy++ {
		// Screen lines grow downwards, the grid's j axis upwards.
		j := (lines - 1 - sy) * g.Columns / lines
		for sx := 0; sx < cols; sx++ {
			i := sx * g.Rows / cols
			r, c := v.Cell(i*g.Columns+j, snap)
			cr, cg, cb := c.Clamped().RGB255()
			style := tcell.StyleDefault.
				Foreground(tcell.NewRGBColor(int32(cr), int32(cg), int32(cb))).
				Background(tcell.ColorBlack)
			for k := 0; k < cellW; k++ {
				v.screen.SetContent(sx*cellW+k, sy, r, nil, style)
			}
		}
	}
	v.drawStatus(snap)
	v.screen.Show()
}

func (v *Preview) drawStatus(snap shading.Snapshot) {
	w, h := v.screen.Size()
	if h < 1 {
		return
	}
	status := fmt.Sprintf("hue %.0f  colors %d  gamma %.1f  |  %s", snap.BaseHue, snap.PaletteSize, snap.Gamma, controls.Help)
	style := tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack)
	x := 0
	for _, r := range status {
		if x >= w {
			break
		}
		v.screen.SetContent(x, h-1, r, nil, style)
		x++
	}
}

// HandleEvent applies one terminal event. It returns false when the user
// asked to quit.
func (v *Preview) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyLeft:
			v.controls.Apply(controls.HueDown)
		case tcell.KeyRight:
			v.controls.Apply(controls.HueUp)
		case tcell.KeyDown:
			v.controls.Apply(controls.ColorsDown)
		case tcell.KeyUp:
			v.controls.Apply(controls.ColorsUp)
		case tcell.KeyRune:
			if ev.Rune() == 'q' {
				return false
			}
			if a, ok := controls.ForRune(ev.Rune()); ok {
				v.controls.Apply(a)
			}
		}
	case *tcell.EventResize:
		v.resized = true
		v.screen.Sync()
	case nil:
		// The screen was finalized.
		return false
	}
	return true
}

// Run handles events until the user quits. Each tick redraws when the source
// has a new frame or the screen is stale.
func (v *Preview) Run() {
	ticker := time.NewTicker(v.interval)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := v.screen.PollEvent()
			eventChan <- ev
			if ev == nil {
				return
			}
		}
	}()

	log.Println("Starting terminal preview...")
	v.Draw()
	for {
		select {
		case ev := <-eventChan:
			if !v.HandleEvent(ev) {
				return
			}
		case <-ticker.C:
			if v.pipe.Poll() || v.Stale() {
				v.Draw()
			}
		}
	}
}
