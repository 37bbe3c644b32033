package gate

import (
	"errors"
	"fmt"
	"math"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap/zapcore"

	"github.com/spacemeshos/fragpow/pow"
)

var ErrInvalidConfig = errors.New("invalid gate config")

func DefaultConfig() Config {
	return Config{
		Difficulty: 4294940000,
		Fragments:  4,
		CacheSize:  1024,
	}
}

//nolint:lll
type Config struct {
	Difficulty uint32 `long:"difficulty"          description:"How far below 2^32-1 the leading hash word of every proof must fall"`
	Fragments  int    `long:"fragments"           description:"Number of fragments per challenge"`
	MaxWorkers int    `long:"max-workers"         description:"Maximum number of fragments solved concurrently (0 for one goroutine per fragment)"`
	CacheSize  int    `long:"verifier-cache-size" description:"Number of verification results to cache (0 disables the cache)"`
	Seed       uint64 `long:"seed"                description:"Seed for challenge generation (0 for a random seed)"`
}

// Validate reports every problem with the config at once.
func (c Config) Validate() error {
	var result *multierror.Error
	if c.Difficulty == math.MaxUint32 {
		result = multierror.Append(result, fmt.Errorf("%w: difficulty %d leaves no acceptable hash", ErrInvalidConfig, c.Difficulty))
	}
	if c.Fragments < 0 || c.Fragments > pow.MaxFragments {
		result = multierror.Append(result, fmt.Errorf("%w: fragments must be within [0, %d], got %d", ErrInvalidConfig, pow.MaxFragments, c.Fragments))
	}
	if c.MaxWorkers < 0 {
		result = multierror.Append(result, fmt.Errorf("%w: max workers must not be negative, got %d", ErrInvalidConfig, c.MaxWorkers))
	}
	if c.CacheSize < 0 {
		result = multierror.Append(result, fmt.Errorf("%w: verifier cache size must not be negative, got %d", ErrInvalidConfig, c.CacheSize))
	}
	return result.ErrorOrNil()
}

// implement zap.ObjectMarshaler interface.
func (c Config) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint32("difficulty", c.Difficulty)
	enc.AddInt("fragments", c.Fragments)
	enc.AddInt("max_workers", c.MaxWorkers)
	enc.AddInt("cache_size", c.CacheSize)
	enc.AddUint64("seed", c.Seed)
	return nil
}
