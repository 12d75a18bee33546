// internal/models/card.go
package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Color is the suit of a card. The declaration order is the hand sort order.
type Color int

const (
	ColorRed Color = iota
	ColorYellow
	ColorGreen
	ColorBlue
)

var colorNames = [...]string{"red", "yellow", "green", "blue"}

// Colors lists every playable color in sort order.
var Colors = []Color{ColorRed, ColorYellow, ColorGreen, ColorBlue}

func (c Color) String() string {
	if c < 0 || int(c) >= len(colorNames) {
		return fmt.Sprintf("color(%d)", int(c))
	}
	return colorNames[c]
}

// MarshalText encodes the color by name so snapshots stay readable on the wire.
func (c Color) MarshalText() ([]byte, error) {
	if c < 0 || int(c) >= len(colorNames) {
		return nil, fmt.Errorf("unknown color %d", int(c))
	}
	return []byte(colorNames[c]), nil
}

func (c *Color) UnmarshalText(b []byte) error {
	for i, name := range colorNames {
		if name == string(b) {
			*c = Color(i)
			return nil
		}
	}
	return fmt.Errorf("unknown color %q", string(b))
}

// Value is the rank or action printed on a card. The declaration order is the
// rank component of the hand sort order.
type Value int

const (
	ValueZero Value = iota
	ValueOne
	ValueTwo
	ValueThree
	ValueFour
	ValueFive
	ValueSix
	ValueSeven
	ValueEight
	ValueNine
	ValueSkip
	ValueReverse
	ValueDrawTwo
	ValueWild
	ValueWildDrawFour
)

var valueNames = [...]string{
	"0", "1", "2", "3", "4", "5", "6", "7", "8", "9",
	"skip", "reverse", "draw_two", "wild", "wild_draw_four",
}

func (v Value) String() string {
	if v < 0 || int(v) >= len(valueNames) {
		return fmt.Sprintf("value(%d)", int(v))
	}
	return valueNames[v]
}

func (v Value) MarshalText() ([]byte, error) {
	if v < 0 || int(v) >= len(valueNames) {
		return nil, fmt.Errorf("unknown value %d", int(v))
	}
	return []byte(valueNames[v]), nil
}

func (v *Value) UnmarshalText(b []byte) error {
	for i, name := range valueNames {
		if name == string(b) {
			*v = Value(i)
			return nil
		}
	}
	return fmt.Errorf("unknown value %q", string(b))
}

// IsWild reports whether the value carries no color until one is chosen.
func (v Value) IsWild() bool {
	return v == ValueWild || v == ValueWildDrawFour
}

// Card is an immutable card entity. Color is nil for a wild card whose color
// has not been chosen yet.
type Card struct {
	ID    uuid.UUID `json:"id"`
	Value Value     `json:"value"`
	Color *Color    `json:"color,omitempty"`
}

// ColorPtr is a convenience for building colored cards.
func ColorPtr(c Color) *Color {
	return &c
}

func (c Card) String() string {
	if c.Color == nil {
		return c.Value.String()
	}
	return c.Color.String() + "-" + c.Value.String()
}
