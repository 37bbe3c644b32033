// Package gate admits clients that spent CPU time solving a challenge.
//
// The gate issues challenges with its configured difficulty and number of
// fragments and admits solutions that verify. It keeps no record of issued
// challenges: binding a solution to a challenge that was actually issued, expiry
// and replay protection are up to the caller.
package gate

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/spacemeshos/fragpow/logging"
	"github.com/spacemeshos/fragpow/pow"
	"github.com/spacemeshos/fragpow/progress"
)

var (
	issuedMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fragpow",
		Subsystem: "gate",
		Name:      "challenges_issued_total",
		Help:      "Number of issued challenges",
	})
	admissionsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fragpow",
		Subsystem: "gate",
		Name:      "admissions_total",
		Help:      "Number of submitted solutions by outcome",
	}, []string{"result"})
)

type Gate struct {
	cfg Config

	// rand.Source is not safe for concurrent use.
	srcMu sync.Mutex
	src   rand.Source

	verifier pow.Verifier
}

type newGateOptions struct {
	src      rand.Source
	verifier pow.Verifier
}

type newGateOptionFunc func(*newGateOptions)

// WithSource overrides the source challenges are drawn from.
func WithSource(src rand.Source) newGateOptionFunc {
	return func(opts *newGateOptions) {
		opts.src = src
	}
}

// WithVerifier overrides the verifier. The configured cache is not applied on top of it.
func WithVerifier(verifier pow.Verifier) newGateOptionFunc {
	return func(opts *newGateOptions) {
		opts.verifier = verifier
	}
}

func New(cfg Config, opts ...newGateOptionFunc) (*Gate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	options := newGateOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if options.src == nil {
		if cfg.Seed != 0 {
			options.src = pow.NewSeededSource(cfg.Seed)
		} else {
			options.src = pow.NewSource()
		}
	}
	if options.verifier == nil {
		options.verifier = pow.NewVerifier()
		if cfg.CacheSize > 0 {
			verifier, err := pow.NewCachingVerifier(cfg.CacheSize, options.verifier)
			if err != nil {
				return nil, fmt.Errorf("creating verifier cache: %w", err)
			}
			options.verifier = verifier
		}
	}

	return &Gate{
		cfg:      cfg,
		src:      options.src,
		verifier: options.verifier,
	}, nil
}

func (g *Gate) Config() Config {
	return g.cfg
}

// Issue creates a new challenge.
func (g *Gate) Issue(ctx context.Context) pow.Challenge {
	g.srcMu.Lock()
	challenge := pow.CreateChallenge(g.src, g.cfg.Difficulty, g.cfg.Fragments)
	g.srcMu.Unlock()

	issuedMetric.Inc()
	logging.FromContext(ctx).Debug("issued challenge", zap.Object("challenge", &challenge))
	return challenge
}

// NewSolver returns a solver honoring the configured worker limit.
func (g *Gate) NewSolver(notifier progress.Notifier) *pow.Solver {
	return pow.NewSolver(pow.WithNotifier(notifier), pow.WithMaxWorkers(g.cfg.MaxWorkers))
}

// Admit returns nil if solution solves challenge.
func (g *Gate) Admit(ctx context.Context, challenge *pow.Challenge, solution *pow.Solution) error {
	logger := logging.FromContext(ctx)
	if err := g.verifier.Verify(ctx, challenge, solution); err != nil {
		admissionsMetric.WithLabelValues("rejected").Inc()
		logger.Debug("rejecting solution", zap.Error(err))
		return err
	}
	admissionsMetric.WithLabelValues("admitted").Inc()
	logger.Debug("admitted solution", zap.Object("challenge", challenge), zap.Object("solution", solution))
	return nil
}
