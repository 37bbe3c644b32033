package pow

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/spacemeshos/fragpow/logging"
)

var (
	ErrInvalidSolution = errors.New("invalid solution")
	ErrMissingProof    = fmt.Errorf("%w: missing proof", ErrInvalidSolution)
	ErrInvalidProof    = fmt.Errorf("%w: proof does not meet difficulty", ErrInvalidSolution)

	verificationsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fragpow",
		Subsystem: "verifier",
		Name:      "verifications_total",
		Help:      "Number of verified solutions by result",
	}, []string{"result"})
)

// Verify checks solution against challenge.
//
// Every fragment of the challenge must be covered by at least one proof, and every
// proof of the solution must meet the challenge difficulty, including proofs for
// fragments that are not part of the challenge. Extra or duplicate proofs are
// accepted as long as they are valid themselves.
func Verify(challenge *Challenge, solution *Solution) error {
	if challenge == nil || solution == nil {
		return fmt.Errorf("%w: nil challenge or solution", ErrInvalidSolution)
	}

	covered := make(map[Fragment]struct{}, len(solution.Proofs))
	for _, proof := range solution.Proofs {
		covered[proof.Fragment] = struct{}{}
	}
	for i, fragment := range challenge.Fragments {
		if _, ok := covered[fragment]; !ok {
			return fmt.Errorf("%w for fragment %d (%s)", ErrMissingProof, i, fragment)
		}
	}

	for i, proof := range solution.Proofs {
		if !HashFound(proof.Fragment, challenge.Difficulty, proof.Nonce) {
			return fmt.Errorf("%w: proof %d (fragment %s, nonce %s)", ErrInvalidProof, i, proof.Fragment, proof.Nonce)
		}
	}
	return nil
}

// VerifySolution reports whether solution solves challenge.
func VerifySolution(challenge *Challenge, solution *Solution) bool {
	return Verify(challenge, solution) == nil
}

//go:generate mockgen -package mocks -destination mocks/verifier.go . Verifier

type Verifier interface {
	// Verify returns nil if the solution is valid for the challenge.
	// Rejected solutions yield an error wrapping ErrInvalidSolution.
	Verify(ctx context.Context, challenge *Challenge, solution *Solution) error
}

type verifier struct{}

func NewVerifier() Verifier {
	return &verifier{}
}

func (v *verifier) Verify(ctx context.Context, challenge *Challenge, solution *Solution) error {
	if err := Verify(challenge, solution); err != nil {
		verificationsMetric.WithLabelValues("rejected").Inc()
		logging.FromContext(ctx).Debug("solution rejected", zap.Error(err))
		return err
	}
	verificationsMetric.WithLabelValues("accepted").Inc()
	return nil
}
