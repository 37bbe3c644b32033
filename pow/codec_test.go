package pow_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"

	"github.com/spacemeshos/fragpow/pow"
)

func TestChallengeEncoding(t *testing.T) {
	t.Parallel()

	challenge := pow.CreateChallenge(pow.NewSeededSource(31), 4294940000, 4)
	data, err := pow.EncodeChallenge(&challenge)
	require.NoError(t, err)
	// difficulty + 1 byte compact length + fragments
	require.Len(t, data, 4+1+4*pow.FragmentSize)
	require.Equal(t, challenge.Difficulty, binary.LittleEndian.Uint32(data[:4]))
	require.Equal(t, challenge.Fragments[0][:], data[5:5+pow.FragmentSize])

	decoded, err := pow.DecodeChallenge(data)
	require.NoError(t, err)
	require.Equal(t, &challenge, decoded)
}

func TestEmptyChallengeEncoding(t *testing.T) {
	t.Parallel()

	challenge := pow.CreateChallenge(pow.NewSeededSource(31), 17, 0)
	data, err := pow.EncodeChallenge(&challenge)
	require.NoError(t, err)
	require.Len(t, data, 5)

	decoded, err := pow.DecodeChallenge(data)
	require.NoError(t, err)
	require.Equal(t, &challenge, decoded)
}

func TestSolutionEncoding(t *testing.T) {
	t.Parallel()

	challenge := pow.CreateChallenge(pow.NewSeededSource(32), 0, 3)
	solution := &pow.Solution{Proofs: []pow.Proof{
		{Fragment: challenge.Fragments[0], Nonce: uint128.From64(143)},
		{Fragment: challenge.Fragments[1], Nonce: uint128.New(5, 7)},
		{Fragment: challenge.Fragments[2], Nonce: uint128.Max},
	}}

	data, err := pow.EncodeSolution(solution)
	require.NoError(t, err)
	require.Len(t, data, 1+3*(pow.FragmentSize+pow.NonceSize))

	// Nonces are little-endian on the wire, as in the hash input.
	nonce := data[1+pow.FragmentSize : 1+pow.FragmentSize+pow.NonceSize]
	require.Equal(t, uint64(143), binary.LittleEndian.Uint64(nonce[:8]))
	require.Zero(t, binary.LittleEndian.Uint64(nonce[8:]))

	decoded, err := pow.DecodeSolution(data)
	require.NoError(t, err)
	require.Equal(t, solution, decoded)
}

func TestEncodingTooManyFragments(t *testing.T) {
	t.Parallel()

	challenge := pow.Challenge{Fragments: make([]pow.Fragment, pow.MaxFragments+1)}
	_, err := pow.EncodeChallenge(&challenge)
	require.ErrorIs(t, err, pow.ErrTooManyFragments)

	solution := pow.Solution{Proofs: make([]pow.Proof, pow.MaxFragments+1)}
	_, err = pow.EncodeSolution(&solution)
	require.ErrorIs(t, err, pow.ErrTooManyFragments)
}

func TestDecodingTruncated(t *testing.T) {
	t.Parallel()

	challenge, solution := solvedChallenge(t, 33, 2)
	data, err := pow.EncodeChallenge(&challenge)
	require.NoError(t, err)
	_, err = pow.DecodeChallenge(data[:len(data)-1])
	require.Error(t, err)

	data, err = pow.EncodeSolution(solution)
	require.NoError(t, err)
	_, err = pow.DecodeSolution(data[:len(data)-1])
	require.Error(t, err)
}

func TestSolutionHashes(t *testing.T) {
	solution := pow.Solution{Proofs: []pow.Proof{
		{Nonce: uint128.Zero},
		{Nonce: uint128.From64(9)},
	}}
	require.Equal(t, float64(11), solution.Hashes())
	require.Zero(t, (&pow.Solution{}).Hashes())
}
