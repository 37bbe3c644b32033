package pow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

func TestSolveFailsFast(t *testing.T) {
	t.Parallel()

	challenge := CreateChallenge(NewSeededSource(1), 0, 4)
	crashing := challenge.Fragments[2]

	s := NewSolver()
	s.search = func(ctx context.Context, fragment Fragment, difficulty uint32) (uint128.Uint128, error) {
		if fragment == crashing {
			panic("out of memory")
		}
		<-ctx.Done()
		return uint128.Zero, ctx.Err()
	}

	solution, err := s.Solve(context.Background(), &challenge)
	require.ErrorIs(t, err, ErrFragmentFailed)
	require.ErrorContains(t, err, crashing.String())
	require.Nil(t, solution)
}

func TestSearchNonceCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	nonce, err := searchNonce(ctx, Fragment{}, 0)
	require.ErrorIs(t, err, context.Canceled)
	require.True(t, nonce.IsZero())
}

func TestNonceToFloat(t *testing.T) {
	require.Equal(t, float64(0), nonceToFloat(uint128.Zero))
	require.Equal(t, float64(1234), nonceToFloat(uint128.From64(1234)))
	require.Equal(t, 18446744073709551616.0, nonceToFloat(uint128.New(0, 1)))
}
