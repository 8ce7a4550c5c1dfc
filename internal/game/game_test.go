package game

import (
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/setsim/internal/card"
	"git.home.luguber.info/inful/setsim/internal/deck"
	ferrors "git.home.luguber.info/inful/setsim/internal/foundation/errors"
	"git.home.luguber.info/inful/setsim/internal/hand"
	"git.home.luguber.info/inful/setsim/internal/rng"
	"git.home.luguber.info/inful/setsim/internal/stats"
)

func TestOrderedDeckFirstChooserTrace(t *testing.T) {
	g, err := New(deck.Ordered(), FirstChooser{})
	require.NoError(t, err)

	// The ordered deck repeats the same six-step pattern every three deals.
	cycle := []stats.Info{
		{Sets: 13, Cubes: 7, Faces: 6, HandSize: 12, Deals: 0, HandType: stats.Ascending},
		{Sets: 3, Cubes: 3, HandSize: 9, Deals: 0, HandType: stats.Descending},
		{Sets: 4, Cubes: 4, HandSize: 12, Deals: 1, HandType: stats.Ascending},
		{Sets: 3, Cubes: 3, HandSize: 9, Deals: 1, HandType: stats.Descending},
		{Sets: 13, Cubes: 7, Faces: 6, HandSize: 12, Deals: 2, HandType: stats.Ascending},
		{Sets: 12, Cubes: 6, Faces: 6, HandSize: 9, Deals: 2, HandType: stats.Descending},
	}
	var want []stats.Info
	for round := range 8 {
		for _, info := range cycle {
			info.Deals += 3 * round
			want = append(want, info)
		}
	}
	states := []State{Searching, Dealing, Searching, Dealing, Searching, Dealing}

	for i := range cycle {
		require.Equal(t, states[i], g.State(), "step %d", i)
		more, err := g.Step()
		require.NoError(t, err)
		require.True(t, more)
	}
	res, err := g.Play()
	require.NoError(t, err)
	assert.Equal(t, Terminated, g.State())
	assert.Equal(t, want, res.Steps)
	assert.Equal(t, []stats.Info{
		{Sets: 3, Cubes: 3, HandSize: 9, Deals: 22, HandType: stats.Descending},
		{Sets: 13, Cubes: 7, Faces: 6, HandSize: 12, Deals: 23, HandType: stats.Ascending},
		{Sets: 12, Cubes: 6, Faces: 6, HandSize: 9, Deals: 23, HandType: stats.Descending},
	}, res.Steps[len(res.Steps)-3:])
	assert.Equal(t, 23, res.Deals)
	assert.Equal(t, 24, res.Removed)
	assert.Equal(t, 9, res.FinalHand)
}

func cardTriples(cs []card.Card, sets []hand.TrackedSet) []string {
	out := make([]string, 0, len(sets))
	for _, s := range sets {
		names := []string{cs[s.Indices[0]].String(), cs[s.Indices[1]].String(), cs[s.Indices[2]].String()}
		slices.Sort(names)
		out = append(out, fmt.Sprint(names))
	}
	slices.Sort(out)
	return out
}

func TestFullGamesAccountForEveryCard(t *testing.T) {
	for seed := range uint64(25) {
		src := rng.NewPCG(seed, 99)
		d := deck.New(src)
		g, err := New(d, NewRandomChooser(src))
		require.NoError(t, err)

		for {
			more, err := g.Step()
			require.NoError(t, err)
			cs := g.Hand().Cards()
			require.Equal(t, cardTriples(cs, hand.Scan(cs)), cardTriples(cs, g.Hand().Sets()), "seed %d", seed)
			if !more {
				break
			}
		}
		res, err := g.Play()
		require.NoError(t, err)

		assert.Equal(t, Terminated, g.State())
		assert.Equal(t, 0, d.Len())
		assert.Equal(t, 23, res.Deals)
		assert.Equal(t, card.UniverseSize, hand.InitialSize+hand.DealSize*res.Deals)
		assert.Equal(t, card.UniverseSize, hand.DealSize*res.Removed+res.FinalHand)
		assert.Len(t, res.Steps, res.Deals+res.Removed+1)

		last := res.Steps[len(res.Steps)-1]
		assert.Equal(t, 23, last.Deals)
		assert.True(t, last.Sets == 0 || last.HandSize < hand.InitialSize)
		for _, s := range res.Steps {
			assert.Equal(t, s.Sets, s.Cubes+s.Faces+s.Edges+s.Vertices)
		}
	}
}

func TestPlayIsReproducible(t *testing.T) {
	a, err := Play(rng.NewPCG(5, 6), PolicyRandom)
	require.NoError(t, err)
	b, err := Play(rng.NewPCG(5, 6), PolicyRandom)
	require.NoError(t, err)
	assert.Equal(t, a.Steps, b.Steps)
}

func TestPlayFirstPolicy(t *testing.T) {
	res, err := Play(rng.NewPCG(1, 1), PolicyFirst)
	require.NoError(t, err)
	assert.Equal(t, 23, res.Deals)
	assert.Equal(t, stats.Ascending, res.Steps[0].HandType)
	assert.Equal(t, 12, res.Steps[0].HandSize)
}

type badChooser struct{}

func (badChooser) Choose(n int) int { return n + 1 }

func TestEngineViolationAbandonsGame(t *testing.T) {
	g, err := New(deck.Ordered(), badChooser{})
	require.NoError(t, err)

	res, err := g.Play()
	require.Error(t, err)
	assert.True(t, errors.Is(err, hand.ErrPrecondition))
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryEngine))
	assert.Empty(t, res.Steps)
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want Policy
		ok   bool
	}{
		{"", PolicyRandom, true},
		{"random", PolicyRandom, true},
		{" First ", PolicyFirst, true},
		{"uniform", PolicyRandom, true},
		{"last", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePolicy(tt.in)
			if !tt.ok {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Contains(t, Policies(), "first")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "dealing", Dealing.String())
	assert.Equal(t, "terminated", Terminated.String())
	assert.Equal(t, "unknown", State(9).String())
}
