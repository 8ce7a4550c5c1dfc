package rng

import (
	"crypto/cipher"
	"math/big"

	"go.dedis.ch/kyber/v4/suites"
	"go.dedis.ch/kyber/v4/util/random"
)

var suite = suites.MustFind("Ed25519")

// Crypto draws indices from kyber's cryptographic random stream. It is slower
// than PCG and not reproducible; use it when the statistics must not depend on
// a seeded generator.
type Crypto struct {
	stream cipher.Stream
}

// NewCrypto returns a Source reading from the suite's random stream.
func NewCrypto() *Crypto {
	return &Crypto{stream: suite.RandomStream()}
}

func (c *Crypto) IntN(n int) int {
	if n <= 0 {
		panic("rng: IntN called with n <= 0")
	}
	return int(random.Int(big.NewInt(int64(n)), c.stream).Int64())
}
