package pow

import (
	"encoding/hex"

	"go.uber.org/zap/zapcore"
	"lukechampine.com/uint128"
)

const (
	// FragmentSize is the size in bytes of a challenge fragment.
	FragmentSize = 16

	// NonceSize is the size in bytes of a serialized nonce.
	NonceSize = 16

	// MaxFragments bounds the number of fragments (and proofs) accepted by the decoder.
	MaxFragments = 1 << 16
)

// Fragment is an opaque random blob seeding one nonce search.
type Fragment [FragmentSize]byte

func (f Fragment) String() string {
	return hex.EncodeToString(f[:])
}

// Challenge is immutable once created and may be shared read-only
// between a solver and a verifier.
type Challenge struct {
	Difficulty uint32
	Fragments  []Fragment
}

// implement zap.ObjectMarshaler interface.
func (c *Challenge) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint32("difficulty", c.Difficulty)
	enc.AddInt("fragments", len(c.Fragments))
	enc.AddUint32("threshold", Threshold(c.Difficulty))
	return nil
}

// Proof shows that work was done for a single fragment.
type Proof struct {
	Fragment Fragment
	Nonce    uint128.Uint128
}

// Solution holds one proof per solved fragment.
// Proofs are in completion order and must be treated as an unordered multiset.
type Solution struct {
	Proofs []Proof
}

// implement zap.ObjectMarshaler interface.
func (s *Solution) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("proofs", len(s.Proofs))
	return nil
}

// Hashes returns the number of hashes a sequential search computed to find the proofs.
func (s *Solution) Hashes() float64 {
	var total float64
	for _, proof := range s.Proofs {
		total += nonceToFloat(proof.Nonce) + 1
	}
	return total
}
