// Package stats aggregates per-step game snapshots into frequency tables and
// persists them as CSV.
package stats

import (
	"cmp"
	"fmt"
)

// HandType records whether a hand was last grown by a deal or shrunk by a removal.
type HandType string

const (
	// Ascending hands were just dealt to (including the initial hand).
	Ascending HandType = "ascending"
	// Descending hands just had a set removed.
	Descending HandType = "descending"
	// Unspecified marks rows loaded from layouts without a hand type column.
	Unspecified HandType = ""
)

// ParseHandType accepts ascending, descending or the empty string.
func ParseHandType(s string) (HandType, error) {
	switch HandType(s) {
	case Ascending, Descending, Unspecified:
		return HandType(s), nil
	default:
		return "", fmt.Errorf("not a valid hand type: %q", s)
	}
}

// Info is a snapshot of one game step. It is comparable and used directly as
// the aggregate key.
type Info struct {
	Sets     int
	Cubes    int
	Faces    int
	Edges    int
	Vertices int
	HandSize int
	Deals    int
	HandType HandType
}

// Setless reports whether the hand held no sets.
func (i Info) Setless() bool { return i.Sets == 0 }

// Classes returns the per-class counts, cubes first.
func (i Info) Classes() [4]int {
	return [4]int{i.Cubes, i.Faces, i.Edges, i.Vertices}
}

func (i Info) String() string {
	return fmt.Sprintf("sets=%d classes=%v hand=%d deals=%d type=%s",
		i.Sets, i.Classes(), i.HandSize, i.Deals, i.HandType)
}

// Compare orders infos by hand type, hand size, deals, then set counts.
func Compare(a, b Info) int {
	return cmp.Or(
		cmp.Compare(a.HandType, b.HandType),
		cmp.Compare(a.HandSize, b.HandSize),
		cmp.Compare(a.Deals, b.Deals),
		cmp.Compare(a.Sets, b.Sets),
		cmp.Compare(a.Cubes, b.Cubes),
		cmp.Compare(a.Faces, b.Faces),
		cmp.Compare(a.Edges, b.Edges),
		cmp.Compare(a.Vertices, b.Vertices),
	)
}
