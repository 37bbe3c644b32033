package pow

import (
	"context"
	"errors"

	lru "github.com/hashicorp/golang-lru"
	"github.com/minio/sha256-simd"
	"github.com/spacemeshos/go-scale"
	"go.uber.org/zap"

	"github.com/spacemeshos/fragpow/logging"
)

// caching implements caching layer on top of
// its Verifier.
type caching struct {
	cache    *lru.Cache
	verifier Verifier
}

type verifierResult struct {
	err error
}

// NewCachingVerifier remembers the outcome of up to size verifications.
// Only definitive outcomes are cached: acceptance and ErrInvalidSolution.
func NewCachingVerifier(size int, verifier Verifier) (Verifier, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &caching{
		cache:    cache,
		verifier: verifier,
	}, nil
}

func (c *caching) Verify(ctx context.Context, challenge *Challenge, solution *Solution) error {
	key, err := cacheKey(challenge, solution)
	if err != nil {
		return c.verifier.Verify(ctx, challenge, solution)
	}

	logger := logging.FromContext(ctx).With(zap.Binary("key", key[:]))
	if result, ok := c.cache.Get(key); ok {
		logger.Debug("retrieved verification result from the cache")
		// SAFETY: type assertion will never panic as we insert only `*verifierResult` values.
		return result.(*verifierResult).err
	}

	err = c.verifier.Verify(ctx, challenge, solution)
	if err == nil || errors.Is(err, ErrInvalidSolution) {
		c.cache.Add(key, &verifierResult{err: err})
	}
	return err
}

// cacheKey hashes the wire encoding of the pair.
func cacheKey(challenge *Challenge, solution *Solution) ([sha256.Size]byte, error) {
	var key [sha256.Size]byte
	if challenge == nil || solution == nil {
		return key, ErrInvalidSolution
	}

	hasher := sha256.New()
	enc := scale.NewEncoder(hasher)
	if _, err := challenge.EncodeScale(enc); err != nil {
		return key, err
	}
	if _, err := solution.EncodeScale(enc); err != nil {
		return key, err
	}
	hasher.Sum(key[:0])
	return key, nil
}
