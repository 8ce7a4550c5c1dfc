package stats

import (
	"maps"
	"slices"
	"sync"
)

// Table maps a step snapshot to the number of times it occurred.
type Table map[Info]uint64

// Add increments info by n.
func (t Table) Add(info Info, n uint64) {
	t[info] += n
}

// Merge counts each snapshot once.
func (t Table) Merge(steps []Info) {
	for _, info := range steps {
		t[info]++
	}
}

// MergeTable adds every count of other into t.
func (t Table) MergeTable(other Table) {
	for info, n := range other {
		t[info] += n
	}
}

// Total returns the sum of all counts.
func (t Table) Total() uint64 {
	var n uint64
	for _, c := range t {
		n += c
	}
	return n
}

// Keys returns the keys in Compare order.
func (t Table) Keys() []Info {
	return slices.SortedFunc(maps.Keys(t), Compare)
}

// Clone returns an independent copy.
func (t Table) Clone() Table {
	return maps.Clone(t)
}

// Aggregate is the cross-game table shared by workers. Each finished game is
// merged under a single lock acquisition.
type Aggregate struct {
	mu     sync.Mutex
	table  Table
	games  uint64
	failed uint64
}

// NewAggregate returns an empty aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{table: make(Table)}
}

// MergeGame adds all snapshots of one completed game.
func (a *Aggregate) MergeGame(steps []Info) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.table.Merge(steps)
	a.games++
}

// MergeTable seeds the aggregate with previously persisted counts.
func (a *Aggregate) MergeTable(t Table) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.table.MergeTable(t)
}

// RecordFailure counts a game that was abandoned and contributed nothing.
func (a *Aggregate) RecordFailure() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failed++
}

// Snapshot returns a copy of the current table.
func (a *Aggregate) Snapshot() Table {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.table.Clone()
}

// Games returns the number of merged games.
func (a *Aggregate) Games() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.games
}

// Failed returns the number of abandoned games.
func (a *Aggregate) Failed() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failed
}

// Len returns the number of distinct keys.
func (a *Aggregate) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.table)
}
