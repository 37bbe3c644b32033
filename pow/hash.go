package pow

import (
	"encoding/binary"
	"math"

	"golang.org/x/crypto/blake2b"
	"lukechampine.com/uint128"
)

const hashInputSize = FragmentSize + NonceSize

// Threshold returns the value the leading hash word must stay strictly below.
func Threshold(difficulty uint32) uint32 {
	return math.MaxUint32 - difficulty
}

// hasher is shared by the solver and the verifier so both
// hash exactly the same bytes and compare the same way.
type hasher struct {
	input  [hashInputSize]byte
	digest [blake2b.Size]byte
}

func newHasher(fragment Fragment) hasher {
	var h hasher
	copy(h.input[:FragmentSize], fragment[:])
	return h
}

func (h *hasher) found(nonce uint128.Uint128, threshold uint32) bool {
	nonce.PutBytes(h.input[FragmentSize:])
	h.digest = blake2b.Sum512(h.input[:])
	return binary.BigEndian.Uint32(h.digest[:4]) < threshold
}

// HashFound reports whether nonce solves fragment at the given difficulty.
//
// PoW hash is blake2b512(fragment || nonce), the nonce serialized as 16 little-endian bytes.
// The first 4 bytes of the hash, read big-endian, must be strictly less than Threshold(difficulty).
func HashFound(fragment Fragment, difficulty uint32, nonce uint128.Uint128) bool {
	h := newHasher(fragment)
	return h.found(nonce, Threshold(difficulty))
}
