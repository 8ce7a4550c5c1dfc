package card

import "fmt"

// Class describes how many attributes differ between any two cards of a set.
// Seen as lines in the 4-dimensional grid of cards, a cube line changes one
// attribute and a vertex line changes all four.
type Class uint8

const (
	Cube   Class = 1
	Face   Class = 2
	Edge   Class = 3
	Vertex Class = 4
)

// Classes lists every class in ascending order.
var Classes = [...]Class{Cube, Face, Edge, Vertex}

func (c Class) String() string {
	switch c {
	case Cube:
		return "cube"
	case Face:
		return "face"
	case Edge:
		return "edge"
	case Vertex:
		return "vertex"
	default:
		return fmt.Sprintf("class(%d)", uint8(c))
	}
}

// Valid reports whether c is one of the four set classes.
func (c Class) Valid() bool {
	return c >= Cube && c <= Vertex
}

// IsSet reports whether a, b and c form a set: in every slot the three values
// are either all equal or all different. With values in {0,1,2} that is the
// same as the slot sum being divisible by three.
func IsSet(a, b, c Card) bool {
	for slot := range Slots {
		if (a.attrs[slot]+b.attrs[slot]+c.attrs[slot])%Values != 0 {
			return false
		}
	}
	return true
}

// SetClass counts the slots in which a and b differ. For two members of a
// valid set the result is the same for every pair and lies in 1..4.
func SetClass(a, b Card) Class {
	var diff uint8
	for slot := range Slots {
		if a.attrs[slot] != b.attrs[slot] {
			diff++
		}
	}
	return Class(diff)
}

// Third returns the unique card completing a set with a and b.
func Third(a, b Card) Card {
	var c Card
	for slot := range Slots {
		c.attrs[slot] = (2*Values - a.attrs[slot] - b.attrs[slot]) % Values
	}
	return c
}
