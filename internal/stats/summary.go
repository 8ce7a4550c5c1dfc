package stats

import (
	"cmp"
	"maps"
	"slices"
)

// Group identifies one curve of the report: hands of a given size and type
// after a number of deals.
type Group struct {
	HandSize int
	HandType HandType
	Deals    int
}

// Totals accumulates the hands observed in a Group.
type Totals struct {
	Group
	Hands   uint64
	Sets    uint64
	Setless uint64
}

// PSetless is the fraction of hands that held no set.
func (t Totals) PSetless() float64 {
	if t.Hands == 0 {
		return 0
	}
	return float64(t.Setless) / float64(t.Hands)
}

// AvgSets is the mean number of sets per hand.
func (t Totals) AvgSets() float64 {
	if t.Hands == 0 {
		return 0
	}
	return float64(t.Sets) / float64(t.Hands)
}

// Summarize folds a table into per-group totals ordered by hand type, hand
// size and deals.
func Summarize(t Table) []Totals {
	groups := make(map[Group]*Totals)
	for info, n := range t {
		g := Group{HandSize: info.HandSize, HandType: info.HandType, Deals: info.Deals}
		tot, ok := groups[g]
		if !ok {
			tot = &Totals{Group: g}
			groups[g] = tot
		}
		tot.Hands += n
		tot.Sets += n * uint64(info.Sets)
		if info.Setless() {
			tot.Setless += n
		}
	}

	keys := slices.SortedFunc(maps.Keys(groups), func(a, b Group) int {
		return cmp.Or(
			cmp.Compare(a.HandType, b.HandType),
			cmp.Compare(a.HandSize, b.HandSize),
			cmp.Compare(a.Deals, b.Deals),
		)
	})
	out := make([]Totals, 0, len(keys))
	for _, k := range keys {
		out = append(out, *groups[k])
	}
	return out
}
