// Package rng provides the uniform random index sources used to shuffle decks
// and choose sets. Every game owns its source; none of them are safe for
// concurrent use.
package rng

import (
	"fmt"
	"math/rand/v2"
)

// Source yields uniformly distributed indices in [0, n). n must be > 0.
type Source interface {
	IntN(n int) int
}

// Kind names a Source implementation in configuration.
type Kind string

const (
	KindPCG    Kind = "pcg"
	KindCrypto Kind = "crypto"
)

// NewPCG returns a deterministic PCG-backed source.
func NewPCG(seed1, seed2 uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed1, seed2))
}

// Factory builds one independent Source per worker.
type Factory func(worker int) Source

// ResolveSeed returns the seed a PCG factory will use: seed itself, or a
// fresh one when seed is zero. Crypto sources take no seed.
func ResolveSeed(kind Kind, seed uint64) uint64 {
	if kind == KindCrypto {
		return 0
	}
	for seed == 0 {
		seed = rand.Uint64()
	}
	return seed
}

// NewFactory returns a Factory for the given kind. With KindPCG and a non-zero
// seed the sources are reproducible: worker i always receives the same stream.
// A zero seed draws a fresh seed from the runtime generator.
func NewFactory(kind Kind, seed uint64) (Factory, error) {
	switch kind {
	case KindPCG, "":
		seed = ResolveSeed(kind, seed)
		return func(worker int) Source {
			return NewPCG(seed, splitmix(seed+uint64(worker)+1))
		}, nil
	case KindCrypto:
		return func(int) Source { return NewCrypto() }, nil
	default:
		return nil, fmt.Errorf("unknown random source %q", kind)
	}
}

// splitmix scrambles consecutive worker seeds into well separated stream ids.
func splitmix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Fixed always returns the same index, clamped into range. Fixed(0) is the
// "take the first" policy.
type Fixed int

func (f Fixed) IntN(n int) int {
	if int(f) >= n {
		return n - 1
	}
	if f < 0 {
		return 0
	}
	return int(f)
}

// Scripted replays a list of indices, then falls back to Fixed(0). Each value
// is reduced modulo n. Used to pin shuffles and choices in tests.
type Scripted struct {
	Values []int
	pos    int
}

func (s *Scripted) IntN(n int) int {
	if s.pos >= len(s.Values) {
		return 0
	}
	v := s.Values[s.pos] % n
	s.pos++
	if v < 0 {
		v += n
	}
	return v
}
