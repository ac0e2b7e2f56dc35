// Package controls maps key presses onto the live shading parameters.
package controls

import (
	"log"
	"math"

	"github.com/richinsley/geezmosaic/shading"
)

// Action is one parameter adjustment.
type Action int

const (
	HueDown Action = iota
	HueUp
	ColorsDown
	ColorsUp
	GammaDown
	GammaUp
	Reset
)

// Step sizes.
const (
	HueStep   = 10.0
	GammaStep = 0.1
)

var actionNames = map[Action]string{
	HueDown:    "hue -",
	HueUp:      "hue +",
	ColorsDown: "colors -",
	ColorsUp:   "colors +",
	GammaDown:  "gamma -",
	GammaUp:    "gamma +",
	Reset:      "reset",
}

func (a Action) String() string {
	if s, ok := actionNames[a]; ok {
		return s
	}
	return "unknown"
}

// Help describes the key bindings shared by the window and terminal front
// ends.
const Help = "←/→ hue ±10°  ↑/↓ colors ±1  +/- gamma ±0.1  r reset  esc quit"

// Step returns p adjusted by a, clamped into range. Reset returns initial.
func Step(p shading.Params, a Action, initial shading.Params) shading.Params {
	switch a {
	case HueDown:
		p.BaseHue -= HueStep
	case HueUp:
		p.BaseHue += HueStep
	case ColorsDown:
		p.PaletteSize--
	case ColorsUp:
		p.PaletteSize++
	case GammaDown:
		p.Gamma = roundTenth(p.Gamma - GammaStep)
	case GammaUp:
		p.Gamma = roundTenth(p.Gamma + GammaStep)
	case Reset:
		p = initial
	}
	return p.Clamp()
}

// roundTenth keeps repeated gamma steps on the 0.1 grid.
func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}

// ForRune returns the action bound to a printable key.
func ForRune(r rune) (Action, bool) {
	switch r {
	case '+', '=':
		return GammaUp, true
	case '-', '_':
		return GammaDown, true
	case 'r', 'R':
		return Reset, true
	}
	return 0, false
}

// Controls applies actions to a set of uniforms.
type Controls struct {
	uniforms *shading.Uniforms
	initial  shading.Params
}

// New binds controls to u. Reset restores initial.
func New(u *shading.Uniforms, initial shading.Params) *Controls {
	return &Controls{uniforms: u, initial: initial.Clamp()}
}

// Apply performs a and pushes the result through the uniforms' Update.
func (c *Controls) Apply(a Action) shading.Params {
	p := Step(c.uniforms.Params(), a, c.initial)
	c.uniforms.Set(p)
	log.Printf("Parameters (%s): hue %.0f, colors %d, gamma %.1f", a, p.BaseHue, p.PaletteSize, p.Gamma)
	return p
}
