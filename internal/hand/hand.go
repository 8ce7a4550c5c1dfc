// Package hand implements the set-tracking engine: a hand of cards together
// with the complete list of valid sets it contains, maintained incrementally
// as cards are dealt and sets are removed.
//
// Tracked sets reference cards by hand position. Dealing appends to the end
// of the hand, so existing positions never move on a deal; removing a set
// shifts every later card down, and the engine rewrites surviving positions
// to match.
package hand

import (
	"fmt"
	"slices"

	"git.home.luguber.info/inful/setsim/internal/card"
	"git.home.luguber.info/inful/setsim/internal/foundation/errors"
)

const (
	// InitialSize is the number of cards in a freshly dealt hand.
	InitialSize = 12
	// DealSize is the number of cards added by a deal and removed with a set.
	DealSize = 3
)

// ErrPrecondition is the cause of every engine precondition violation. A
// caller receiving it must abandon the hand: its bookkeeping can no longer be
// trusted.
var ErrPrecondition = errors.EngineError("engine precondition violated").Build()

// Dealer supplies cards from the end of a deck.
type Dealer interface {
	Draw(n int) ([]card.Card, error)
}

// Chooser picks one of n tracked sets. The result must be in [0, n).
type Chooser interface {
	Choose(n int) int
}

// TrackedSet is three hand positions whose cards form a valid set.
type TrackedSet struct {
	Indices [3]int
	Class   card.Class
}

func (s TrackedSet) contains(i int) bool {
	return s.Indices[0] == i || s.Indices[1] == i || s.Indices[2] == i
}

func (s TrackedSet) shares(other TrackedSet) bool {
	return s.contains(other.Indices[0]) || s.contains(other.Indices[1]) || s.contains(other.Indices[2])
}

// Removed describes a set taken out of the hand, by the positions it held
// before removal.
type Removed struct {
	Indices [3]int
	Cards   [3]card.Card
	Class   card.Class
}

// Hand is the ordered sequence of cards in play plus every valid set among them.
// A Hand is owned by a single game and is not safe for concurrent use.
type Hand struct {
	cards []card.Card
	sets  []TrackedSet
	// scanned is the number of leading cards whose sets are all tracked.
	scanned int
}

// New deals the initial hand from d and seeds the tracked sets with a full
// scan of every 3-combination of the initial cards.
func New(d Dealer) (*Hand, error) {
	cards, err := d.Draw(InitialSize)
	if err != nil {
		return nil, violation("initial deal failed").WithCause(err).Build()
	}
	return FromCards(cards)
}

// FromCards builds a hand over an explicit card sequence and scans it fully.
// Cards must be distinct.
func FromCards(cards []card.Card) (*Hand, error) {
	if len(cards) > card.UniverseSize {
		return nil, violation("hand exceeds the card universe").
			WithContext("size", len(cards)).Build()
	}
	seen := make(map[card.Card]struct{}, len(cards))
	for _, c := range cards {
		if _, dup := seen[c]; dup {
			return nil, violation("duplicate card in hand").WithContext("card", c.String()).Build()
		}
		seen[c] = struct{}{}
	}
	h := &Hand{cards: slices.Clone(cards), scanned: len(cards)}
	h.sets = Scan(h.cards)
	return h, nil
}

// Size returns the number of cards in the hand.
func (h *Hand) Size() int { return len(h.cards) }

// SetCount returns the number of tracked sets.
func (h *Hand) SetCount() int { return len(h.sets) }

// Cards returns a copy of the hand in position order.
func (h *Hand) Cards() []card.Card { return slices.Clone(h.cards) }

// Sets returns a copy of the tracked sets.
func (h *Hand) Sets() []TrackedSet { return slices.Clone(h.sets) }

// ClassCounts returns the number of tracked sets per class; index 0 holds cubes.
func (h *Hand) ClassCounts() [4]int {
	var counts [4]int
	for _, s := range h.sets {
		counts[s.Class-card.Cube]++
	}
	return counts
}

// Deal appends exactly three cards to the hand and tracks every new set they
// complete.
func (h *Hand) Deal(cards ...card.Card) error {
	if len(cards) != DealSize {
		return violation("deal must add exactly three cards").
			WithContext("cards", len(cards)).Build()
	}
	if len(h.cards)+DealSize > card.UniverseSize {
		return violation("hand exceeds the card universe").
			WithContext("size", len(h.cards)+DealSize).Build()
	}
	for i, c := range cards {
		if slices.Contains(h.cards, c) || slices.Contains(cards[:i], c) {
			return violation("dealt card already in hand").WithContext("card", c.String()).Build()
		}
	}
	n := len(h.cards)
	h.cards = append(h.cards, cards...)
	return h.FindNewSets([]int{n, n + 1, n + 2})
}

// FindNewSets tracks every valid set involving at least one of the three most
// recently appended cards. indices must name exactly those positions, and those
// cards must not have been scanned yet. Sets made only of older cards are
// already tracked.
//
// The search is split into three disjoint shapes so no combination is checked
// twice: one new card with two old ones, two new cards with one old one, and
// the three new cards together.
func (h *Hand) FindNewSets(indices []int) error {
	size := len(h.cards)
	if len(indices) != DealSize {
		return violation("new card batch must hold exactly three indices").
			WithContext("indices", fmt.Sprint(indices)).Build()
	}
	if size < DealSize || size > card.UniverseSize {
		return violation("hand size out of range for a deal").WithContext("size", size).Build()
	}
	split := size - DealSize
	for i, idx := range indices {
		if idx != split+i {
			return violation("new card indices must be the last three positions").
				WithContext("indices", fmt.Sprint(indices)).
				WithContext("size", size).Build()
		}
	}
	if h.scanned != split {
		return violation("new cards were already scanned").
			WithContext("indices", fmt.Sprint(indices)).
			WithContext("scanned", h.scanned).Build()
	}

	for x := split; x < size; x++ {
		for y := 0; y < split; y++ {
			for z := y + 1; z < split; z++ {
				h.track(x, y, z)
			}
		}
	}
	for x := 0; x < split; x++ {
		for y := split; y < size; y++ {
			for z := y + 1; z < size; z++ {
				h.track(x, y, z)
			}
		}
	}
	h.track(split, split+1, split+2)
	h.scanned = size
	return nil
}

func (h *Hand) track(x, y, z int) {
	if card.IsSet(h.cards[x], h.cards[y], h.cards[z]) {
		h.sets = append(h.sets, TrackedSet{
			Indices: [3]int{x, y, z},
			Class:   card.SetClass(h.cards[x], h.cards[y]),
		})
	}
}

// ChooseAndRemoveSet removes the tracked set picked by ch from the hand.
// Every tracked set sharing a card with it is discarded, the positions of the
// survivors are shifted to follow the cards they reference, and the three
// cards are removed. The removed set is reported by its original positions.
func (h *Hand) ChooseAndRemoveSet(ch Chooser) (Removed, error) {
	n := len(h.sets)
	if n == 0 {
		return Removed{}, violation("no tracked set to remove").
			WithContext("size", len(h.cards)).Build()
	}
	i := ch.Choose(n)
	if i < 0 || i >= n {
		return Removed{}, violation("chooser returned an out of range index").
			WithContext("index", i).WithContext("sets", n).Build()
	}
	chosen := h.sets[i]
	for _, idx := range chosen.Indices {
		if idx < 0 || idx >= len(h.cards) {
			return Removed{}, violation("tracked set references a position outside the hand").
				WithContext("indices", fmt.Sprint(chosen.Indices)).Build()
		}
	}

	out := Removed{Indices: chosen.Indices, Class: chosen.Class}
	for k, idx := range chosen.Indices {
		out.Cards[k] = h.cards[idx]
	}

	gone := chosen.Indices
	slices.Sort(gone[:])

	kept := h.sets[:0]
	for _, s := range h.sets {
		if s.shares(chosen) {
			continue
		}
		for k, idx := range s.Indices {
			s.Indices[k] = idx - below(gone, idx)
		}
		kept = append(kept, s)
	}
	clear(h.sets[len(kept):])
	h.sets = kept

	for k := len(gone) - 1; k >= 0; k-- {
		h.cards = slices.Delete(h.cards, gone[k], gone[k]+1)
	}
	h.scanned -= DealSize
	return out, nil
}

// below counts the removed positions strictly less than idx.
func below(gone [3]int, idx int) int {
	n := 0
	for _, g := range gone {
		if g < idx {
			n++
		}
	}
	return n
}

// Scan returns every valid set among cards by checking all 3-combinations in
// lexicographic order.
func Scan(cards []card.Card) []TrackedSet {
	var sets []TrackedSet
	for x := 0; x < len(cards); x++ {
		for y := x + 1; y < len(cards); y++ {
			for z := y + 1; z < len(cards); z++ {
				if card.IsSet(cards[x], cards[y], cards[z]) {
					sets = append(sets, TrackedSet{
						Indices: [3]int{x, y, z},
						Class:   card.SetClass(cards[x], cards[y]),
					})
				}
			}
		}
	}
	return sets
}

func violation(message string) *errors.ErrorBuilder {
	return errors.WrapError(ErrPrecondition, errors.CategoryEngine, message)
}
