package gate_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"

	"github.com/spacemeshos/fragpow/gate"
	"github.com/spacemeshos/fragpow/logging"
	"github.com/spacemeshos/fragpow/pow"
	"github.com/spacemeshos/fragpow/pow/mocks"
	"github.com/spacemeshos/fragpow/progress"
)

func testConfig() gate.Config {
	cfg := gate.DefaultConfig()
	cfg.Difficulty = 4_000_000_000
	cfg.Fragments = 3
	return cfg
}

func TestIssueAndAdmit(t *testing.T) {
	t.Parallel()
	ctx := logging.NewContext(context.Background(), zaptest.NewLogger(t))

	g, err := gate.New(testConfig())
	require.NoError(t, err)

	challenge := g.Issue(ctx)
	require.Equal(t, uint32(4_000_000_000), challenge.Difficulty)
	require.Len(t, challenge.Fragments, 3)

	solution, err := g.NewSolver(progress.Discard).Solve(ctx, &challenge)
	require.NoError(t, err)
	require.NoError(t, g.Admit(ctx, &challenge, solution))

	solution.Proofs = solution.Proofs[1:]
	require.ErrorIs(t, g.Admit(ctx, &challenge, solution), pow.ErrMissingProof)
}

func TestIssueWithSeed(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Seed = 42
	a, err := gate.New(cfg)
	require.NoError(t, err)
	b, err := gate.New(cfg, gate.WithSource(pow.NewSeededSource(42)))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.Equal(t, a.Issue(ctx), b.Issue(ctx))
	}
}

func TestIssueConcurrently(t *testing.T) {
	t.Parallel()

	g, err := gate.New(testConfig())
	require.NoError(t, err)

	var (
		mu        sync.Mutex
		fragments = make(map[pow.Fragment]struct{})
		wg        sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			challenge := g.Issue(context.Background())
			mu.Lock()
			defer mu.Unlock()
			for _, f := range challenge.Fragments {
				fragments[f] = struct{}{}
			}
		}()
	}
	wg.Wait()
	require.Len(t, fragments, 8*3)
}

func TestAdmitDelegatesToVerifier(t *testing.T) {
	t.Parallel()

	verifier := mocks.NewMockVerifier(gomock.NewController(t))
	g, err := gate.New(testConfig(), gate.WithVerifier(verifier))
	require.NoError(t, err)

	challenge := g.Issue(context.Background())
	solution := &pow.Solution{}
	unavailable := errors.New("unavailable")

	verifier.EXPECT().Verify(gomock.Any(), &challenge, solution).Return(nil)
	require.NoError(t, g.Admit(context.Background(), &challenge, solution))

	verifier.EXPECT().Verify(gomock.Any(), &challenge, solution).Return(unavailable)
	require.ErrorIs(t, g.Admit(context.Background(), &challenge, solution), unavailable)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, gate.DefaultConfig().Validate())

	cfg := gate.Config{
		Difficulty: math.MaxUint32,
		Fragments:  -1,
		MaxWorkers: -2,
		CacheSize:  -3,
	}
	err := cfg.Validate()
	require.ErrorIs(t, err, gate.ErrInvalidConfig)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 4)

	_, err = gate.New(cfg)
	require.ErrorIs(t, err, gate.ErrInvalidConfig)
}

func TestConfigWithoutCache(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.CacheSize = 0
	cfg.Fragments = 0
	g, err := gate.New(cfg)
	require.NoError(t, err)

	challenge := g.Issue(context.Background())
	require.Empty(t, challenge.Fragments)
	require.NoError(t, g.Admit(context.Background(), &challenge, &pow.Solution{}))
}

func TestConfigLogsSeed(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Seed = 42
	enc := zapcore.NewMapObjectEncoder()
	require.NoError(t, cfg.MarshalLogObject(enc))
	require.Equal(t, uint64(42), enc.Fields["seed"])
	require.Equal(t, uint32(4_000_000_000), enc.Fields["difficulty"])
}
