// Package game drives a single game of Set from the initial deal until the
// deck runs out, recording a statistics snapshot at every step.
package game

import (
	stderrors "errors"
	"time"

	"git.home.luguber.info/inful/setsim/internal/deck"
	"git.home.luguber.info/inful/setsim/internal/foundation/errors"
	"git.home.luguber.info/inful/setsim/internal/hand"
	"git.home.luguber.info/inful/setsim/internal/rng"
	"git.home.luguber.info/inful/setsim/internal/stats"
)

// State is the phase the next Step will execute.
type State int

const (
	// Dealing means the hand is short or holds no set and needs three cards.
	Dealing State = iota
	// Searching means a tracked set will be removed.
	Searching
	// Terminated means a deal found the deck exhausted.
	Terminated
)

func (s State) String() string {
	switch s {
	case Dealing:
		return "dealing"
	case Searching:
		return "searching"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Game is one play-through. It is owned by a single goroutine.
type Game struct {
	deck     *deck.Deck
	hand     *hand.Hand
	chooser  hand.Chooser
	state    State
	deals    int
	removed  int
	handType stats.HandType
	steps    []stats.Info
}

// Result summarises a finished game.
type Result struct {
	Steps     []stats.Info
	Deals     int
	Removed   int
	FinalHand int
	Duration  time.Duration
}

// New deals the initial hand from d. ch picks the set removed at each
// searching step.
func New(d *deck.Deck, ch hand.Chooser) (*Game, error) {
	h, err := hand.New(d)
	if err != nil {
		return nil, err
	}
	g := &Game{
		deck:     d,
		hand:     h,
		chooser:  ch,
		handType: stats.Ascending,
		steps:    make([]stats.Info, 0, 48),
	}
	g.state = g.next()
	return g, nil
}

// Play shuffles a fresh deck from src and plays it to the end under policy p.
func Play(src rng.Source, p Policy) (Result, error) {
	g, err := New(deck.New(src), NewChooser(p, src))
	if err != nil {
		return Result{}, err
	}
	return g.Play()
}

// State returns the phase the next Step will execute.
func (g *Game) State() State { return g.state }

// Hand exposes the current hand for inspection.
func (g *Game) Hand() *hand.Hand { return g.hand }

// Snapshot describes the current state without recording it.
func (g *Game) Snapshot() stats.Info {
	c := g.hand.ClassCounts()
	return stats.Info{
		Sets:     g.hand.SetCount(),
		Cubes:    c[0],
		Faces:    c[1],
		Edges:    c[2],
		Vertices: c[3],
		HandSize: g.hand.Size(),
		Deals:    g.deals,
		HandType: g.handType,
	}
}

func (g *Game) next() State {
	if g.hand.SetCount() == 0 || g.hand.Size() < hand.InitialSize {
		return Dealing
	}
	return Searching
}

// Step records a snapshot of the current state and then performs one deal or
// one removal. It returns false once the game has terminated.
func (g *Game) Step() (bool, error) {
	if g.state == Terminated {
		return false, nil
	}
	g.steps = append(g.steps, g.Snapshot())

	switch g.state {
	case Dealing:
		cards, err := g.deck.Draw(hand.DealSize)
		if stderrors.Is(err, deck.ErrExhausted) {
			g.state = Terminated
			return false, nil
		}
		if err != nil {
			return false, err
		}
		if err := g.hand.Deal(cards...); err != nil {
			return false, err
		}
		g.deals++
		g.handType = stats.Ascending
	case Searching:
		if _, err := g.hand.ChooseAndRemoveSet(g.chooser); err != nil {
			return false, err
		}
		g.removed++
		g.handType = stats.Descending
	}
	g.state = g.next()
	return true, nil
}

// Play steps until the deck is exhausted. On error the game is abandoned and
// no snapshots are returned.
func (g *Game) Play() (Result, error) {
	start := time.Now()
	for {
		more, err := g.Step()
		if err != nil {
			return Result{}, errors.WrapError(err, errors.CategoryEngine, "game abandoned").
				WithContext("steps", len(g.steps)).
				WithContext("deals", g.deals).
				Build()
		}
		if !more {
			break
		}
	}
	return Result{
		Steps:     g.steps,
		Deals:     g.deals,
		Removed:   g.removed,
		FinalHand: g.hand.Size(),
		Duration:  time.Since(start),
	}, nil
}
