// Package deck builds the 81-card universe and hands it out from the end.
package deck

import (
	"errors"
	"fmt"

	"git.home.luguber.info/inful/setsim/internal/card"
	"git.home.luguber.info/inful/setsim/internal/rng"
)

// ErrExhausted is returned when more cards are requested than remain.
var ErrExhausted = errors.New("deck exhausted")

// Deck is a stack of cards. Cards are dealt by popping from the end and never return.
type Deck struct {
	cards []card.Card
}

// New returns the full universe shuffled with Fisher-Yates driven by src.
func New(src rng.Source) *Deck {
	d := Ordered()
	d.Shuffle(src)
	return d
}

// Ordered returns the full universe in ordinal order (the last card is dealt first).
func Ordered() *Deck {
	return &Deck{cards: card.Universe()}
}

// FromCards builds a deck over an explicit sequence. Duplicates are rejected.
func FromCards(cards []card.Card) (*Deck, error) {
	seen := make(map[card.Card]struct{}, len(cards))
	for _, c := range cards {
		if _, dup := seen[c]; dup {
			return nil, fmt.Errorf("duplicate card %s", c)
		}
		seen[c] = struct{}{}
	}
	out := make([]card.Card, len(cards))
	copy(out, cards)
	return &Deck{cards: out}, nil
}

// Shuffle permutes the remaining cards uniformly.
func (d *Deck) Shuffle(src rng.Source) {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// Len returns the number of cards left.
func (d *Deck) Len() int {
	return len(d.cards)
}

// Pop removes and returns the last card.
func (d *Deck) Pop() (card.Card, bool) {
	if len(d.cards) == 0 {
		return card.Card{}, false
	}
	c := d.cards[len(d.cards)-1]
	d.cards = d.cards[:len(d.cards)-1]
	return c, true
}

// Draw pops n cards in dealing order. If fewer than n remain the deck is left
// untouched and ErrExhausted is returned.
func (d *Deck) Draw(n int) ([]card.Card, error) {
	if n > len(d.cards) {
		return nil, fmt.Errorf("draw %d of %d: %w", n, len(d.cards), ErrExhausted)
	}
	out := make([]card.Card, 0, n)
	for range n {
		c, _ := d.Pop()
		out = append(out, c)
	}
	return out, nil
}
