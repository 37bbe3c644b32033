package pow

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// CreateChallenge creates a challenge with numFragments fragments drawn from src.
// A non-positive numFragments yields a challenge without fragments.
//
// The source only needs to be unpredictable to the solver ahead of time, a seeded
// source makes generation reproducible.
func CreateChallenge(src rand.Source, difficulty uint32, numFragments int) Challenge {
	challenge := Challenge{Difficulty: difficulty}
	if numFragments <= 0 {
		return challenge
	}

	challenge.Fragments = make([]Fragment, numFragments)
	for i := range challenge.Fragments {
		binary.LittleEndian.PutUint64(challenge.Fragments[i][:8], src.Uint64())
		binary.LittleEndian.PutUint64(challenge.Fragments[i][8:], src.Uint64())
	}
	return challenge
}

// NewChallenge creates a challenge using a freshly seeded source.
func NewChallenge(difficulty uint32, numFragments int) Challenge {
	return CreateChallenge(NewSource(), difficulty, numFragments)
}

// NewSource returns a ChaCha8 source seeded from the operating system's entropy.
func NewSource() rand.Source {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic("no entropy")
	}
	return rand.NewChaCha8(seed)
}

// NewSeededSource returns a deterministic source for the given seed.
func NewSeededSource(seed uint64) rand.Source {
	return rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
}
