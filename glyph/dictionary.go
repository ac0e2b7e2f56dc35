package glyph

import (
	"github.com/pkg/errors"
)

// ErrEmptyDictionary is returned when a dictionary holds no glyphs.
var ErrEmptyDictionary = errors.New("glyph: dictionary is empty")

// Built-in dictionaries, ordered from the emptiest glyph to the densest.
const (
	ASCIIRamp = " .'`^\",:;Il!i><~+_-?][}{1)(|\\/tfjrxnuvczXYUJCLQ0OZmwqpdbkhao*#MW&8%B@$"
	GeezRamp  = " .'`^\",:;Il!i><~+_-?][}{1)(|\\/ሐመሠረሰሸቀበተቸ፳፴፵፶፷፸፹፺፻የ*#&8፳፴፵፶፷፸፹፺፻%@$"
)

// Dictionary is an ordered set of glyphs. Index 0 is drawn for the darkest
// brightness bucket and the last index for the brightest.
type Dictionary []rune

// NewDictionary splits s into runes. An empty string is rejected.
func NewDictionary(s string) (Dictionary, error) {
	d := Dictionary([]rune(s))
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Named returns one of the built-in dictionaries by name ("ascii" or "geez").
// Any other value is treated as a literal dictionary.
func Named(name string) (Dictionary, error) {
	switch name {
	case "ascii":
		return NewDictionary(ASCIIRamp)
	case "geez":
		return NewDictionary(GeezRamp)
	default:
		return NewDictionary(name)
	}
}

// Validate reports whether d can back an atlas.
func (d Dictionary) Validate() error {
	if len(d) == 0 {
		return ErrEmptyDictionary
	}
	return nil
}

// Len returns the glyph count.
func (d Dictionary) Len() int {
	return len(d)
}

func (d Dictionary) String() string {
	return string(d)
}
