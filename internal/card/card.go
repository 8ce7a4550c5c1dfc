// Package card models a card of the game Set: four attributes, each taking one
// of three values, and the ternary predicate deciding whether three cards form
// a set.
package card

import (
	"fmt"
	"strings"
)

const (
	// Slots is the number of attributes on a card.
	Slots = 4
	// Values is the number of states an attribute can take.
	Values = 3
	// UniverseSize is the number of distinct cards (Values^Slots).
	UniverseSize = 81
)

// Card is an immutable 4-tuple of attribute values, each in {0,1,2}.
// Cards compare structurally and can be used as map keys.
type Card struct {
	attrs [Slots]uint8
}

// New builds a card from four attribute values.
func New(a, b, c, d uint8) (Card, error) {
	vals := [Slots]uint8{a, b, c, d}
	for slot, v := range vals {
		if v >= Values {
			return Card{}, fmt.Errorf("attribute %d: value %d out of range [0,%d)", slot, v, Values)
		}
	}
	return Card{attrs: vals}, nil
}

// MustNew is New for literals known to be valid.
func MustNew(a, b, c, d uint8) Card {
	c1, err := New(a, b, c, d)
	if err != nil {
		panic(err)
	}
	return c1
}

// FromOrdinal returns the card with the given ordinal (0..80), read as a
// base-3 number whose most significant digit is slot 0.
func FromOrdinal(n int) (Card, error) {
	if n < 0 || n >= UniverseSize {
		return Card{}, fmt.Errorf("ordinal %d out of range [0,%d)", n, UniverseSize)
	}
	var c Card
	for slot := Slots - 1; slot >= 0; slot-- {
		c.attrs[slot] = uint8(n % Values)
		n /= Values
	}
	return c, nil
}

// Parse reads the four-digit form produced by String, e.g. "0120".
func Parse(s string) (Card, error) {
	s = strings.TrimSpace(s)
	if len(s) != Slots {
		return Card{}, fmt.Errorf("card %q: want %d digits", s, Slots)
	}
	var vals [Slots]uint8
	for i := range Slots {
		d := s[i]
		if d < '0' || d >= '0'+Values {
			return Card{}, fmt.Errorf("card %q: invalid digit %q", s, d)
		}
		vals[i] = d - '0'
	}
	return Card{attrs: vals}, nil
}

// Attribute returns the value in the given slot (0..3).
func (c Card) Attribute(slot int) uint8 {
	return c.attrs[slot]
}

// Ordinal is the inverse of FromOrdinal.
func (c Card) Ordinal() int {
	n := 0
	for _, v := range c.attrs {
		n = n*Values + int(v)
	}
	return n
}

func (c Card) String() string {
	var b strings.Builder
	for _, v := range c.attrs {
		b.WriteByte('0' + v)
	}
	return b.String()
}

// Universe returns all 81 cards in ordinal order.
func Universe() []Card {
	cards := make([]Card, UniverseSize)
	for i := range cards {
		cards[i], _ = FromOrdinal(i)
	}
	return cards
}
