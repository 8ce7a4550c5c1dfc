package game

import (
	"git.home.luguber.info/inful/setsim/internal/foundation/normalization"
	"git.home.luguber.info/inful/setsim/internal/hand"
	"git.home.luguber.info/inful/setsim/internal/rng"
)

// Policy names how a game picks the set to remove.
type Policy string

const (
	// PolicyRandom removes a uniformly chosen tracked set.
	PolicyRandom Policy = "random"
	// PolicyFirst always removes the earliest tracked set.
	PolicyFirst Policy = "first"
)

var policyNormalizer = normalization.NewNormalizer("removal policy", map[string]Policy{
	"random":  PolicyRandom,
	"uniform": PolicyRandom,
	"first":   PolicyFirst,
}, PolicyRandom)

// ParsePolicy normalises a configured policy name. Blank selects PolicyRandom.
func ParsePolicy(raw string) (Policy, error) {
	return policyNormalizer.NormalizeWithError(raw)
}

// Policies lists the accepted policy spellings.
func Policies() []string { return policyNormalizer.ValidKeys() }

// RandomChooser picks uniformly using its source.
type RandomChooser struct {
	src rng.Source
}

// NewRandomChooser returns a chooser drawing from src.
func NewRandomChooser(src rng.Source) RandomChooser {
	return RandomChooser{src: src}
}

func (c RandomChooser) Choose(n int) int { return c.src.IntN(n) }

// FirstChooser always picks index 0.
type FirstChooser struct{}

func (FirstChooser) Choose(int) int { return 0 }

// NewChooser returns the chooser for p. src is only used by PolicyRandom.
func NewChooser(p Policy, src rng.Source) hand.Chooser {
	if p == PolicyFirst {
		return FirstChooser{}
	}
	return NewRandomChooser(src)
}
