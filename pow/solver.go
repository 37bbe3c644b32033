package pow

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"lukechampine.com/uint128"

	"github.com/spacemeshos/fragpow/logging"
	"github.com/spacemeshos/fragpow/progress"
)

// ErrFragmentFailed is returned when searching a fragment's nonce crashed.
// No partial solution is returned in that case.
var ErrFragmentFailed = errors.New("fragment search failed")

// ErrInvalidChallenge is returned when there is no challenge to solve.
var ErrInvalidChallenge = errors.New("invalid challenge")

var (
	hashesMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fragpow",
		Subsystem: "solver",
		Name:      "hashes_total",
		Help:      "Number of hashes computed while searching nonces",
	})
	fragmentsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fragpow",
		Subsystem: "solver",
		Name:      "fragments_solved_total",
		Help:      "Number of solved fragments",
	})
	solveLatencyMetric = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fragpow",
		Subsystem: "solver",
		Name:      "solve_duration_seconds",
		Help:      "Time to solve a whole challenge",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 24),
	})
)

type searchFunc func(ctx context.Context, fragment Fragment, difficulty uint32) (uint128.Uint128, error)

// Solver searches nonces for all fragments of a challenge concurrently.
type Solver struct {
	notifier   progress.Notifier
	maxWorkers int

	search searchFunc
}

type solverOptionFunc func(*Solver)

// WithNotifier sets the notifier receiving the nonce of every solved fragment.
func WithNotifier(notifier progress.Notifier) solverOptionFunc {
	return func(s *Solver) {
		s.notifier = notifier
	}
}

// WithMaxWorkers bounds the number of fragments searched at the same time.
// Zero, the default, searches all fragments at once.
func WithMaxWorkers(workers int) solverOptionFunc {
	return func(s *Solver) {
		s.maxWorkers = workers
	}
}

func NewSolver(opts ...solverOptionFunc) *Solver {
	s := &Solver{
		notifier: progress.Discard,
		search:   searchNonce,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = progress.Discard
	}
	return s
}

// SolveChallenge solves challenge reporting progress to notifier.
func SolveChallenge(ctx context.Context, challenge *Challenge, notifier progress.Notifier) (*Solution, error) {
	return NewSolver(WithNotifier(notifier)).Solve(ctx, challenge)
}

// Solve returns once every fragment of the challenge is solved.
//
// Proofs are appended in completion order. After a proof is recorded its nonce
// is passed to the notifier, before the next completion is awaited.
// The search for a challenge with difficulty math.MaxUint32 never succeeds and
// only ends when ctx is cancelled.
func (s *Solver) Solve(ctx context.Context, challenge *Challenge) (*Solution, error) {
	if challenge == nil {
		return nil, fmt.Errorf("%w: nil challenge", ErrInvalidChallenge)
	}
	logger := logging.FromContext(ctx).With(zap.Object("challenge", challenge))
	started := time.Now()

	solution := &Solution{Proofs: make([]Proof, 0, len(challenge.Fragments))}
	if len(challenge.Fragments) == 0 {
		return solution, nil
	}
	if challenge.Difficulty == math.MaxUint32 {
		logger.Warn("no hash can meet the difficulty, the search only ends on cancellation")
	}

	var sem *semaphore.Weighted
	if s.maxWorkers > 0 {
		sem = semaphore.NewWeighted(int64(s.maxWorkers))
	}

	// Buffered so that searches never wait for the aggregation below.
	results := make(chan Proof, len(challenge.Fragments))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, fragment := range challenge.Fragments {
		eg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: fragment %d (%s): %v", ErrFragmentFailed, i, fragment, r)
				}
			}()
			if sem != nil {
				if err := sem.Acquire(egCtx, 1); err != nil {
					return err
				}
				defer sem.Release(1)
			}

			begin := time.Now()
			nonce, err := s.search(egCtx, fragment, challenge.Difficulty)
			if err != nil {
				hashesMetric.Add(nonceToFloat(nonce))
				return err
			}
			hashes := nonceToFloat(nonce) + 1
			hashesMetric.Add(hashes)
			fragmentsMetric.Inc()
			logger.Debug("fragment solved",
				zap.Int("index", i),
				zap.Stringer("fragment", fragment),
				zap.Stringer("nonce", nonce),
				zap.Float64("hashes", hashes),
				zap.Duration("elapsed", time.Since(begin)),
			)
			results <- Proof{Fragment: fragment, Nonce: nonce}
			return nil
		})
	}

	done := egCtx.Done()
	for len(solution.Proofs) < len(challenge.Fragments) {
		select {
		case proof := <-results:
			solution.Proofs = append(solution.Proofs, proof)
			s.notify(logger, proof.Nonce)
		case <-done:
			if err := eg.Wait(); err != nil {
				logger.Info("solving aborted", zap.Error(err), zap.Int("solved", len(solution.Proofs)))
				return nil, err
			}
			// Every search completed before the cancellation was noticed,
			// the remaining proofs are buffered in results.
			done = nil
		}
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	elapsed := time.Since(started)
	solveLatencyMetric.Observe(elapsed.Seconds())
	logger.Info("challenge solved", zap.Duration("elapsed", elapsed), zap.Float64("hashes", solution.Hashes()))
	return solution, nil
}

// notify never lets a failing notifier interrupt solving.
func (s *Solver) notify(logger *zap.Logger, nonce uint128.Uint128) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("failed to deliver progress", zap.Any("panic", r), zap.Stringer("nonce", nonce))
		}
	}()
	s.notifier.Notify(nonce)
}

// searchNonce scans nonces sequentially from zero, so the returned nonce is the
// smallest one solving the fragment. On cancellation it returns the number of
// nonces tried so far together with the context error.
func searchNonce(ctx context.Context, fragment Fragment, difficulty uint32) (uint128.Uint128, error) {
	h := newHasher(fragment)
	threshold := Threshold(difficulty)

	for nonce := uint128.Zero; ; nonce = nonce.AddWrap64(1) {
		select {
		case <-ctx.Done():
			return nonce, ctx.Err()
		default:
		}

		if h.found(nonce, threshold) {
			return nonce, nil
		}
	}
}

func nonceToFloat(n uint128.Uint128) float64 {
	return float64(n.Hi)*math.Exp2(64) + float64(n.Lo)
}
