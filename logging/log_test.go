package logging_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/spacemeshos/fragpow/logging"
)

func TestFromContext(t *testing.T) {
	t.Parallel()

	logger := zaptest.NewLogger(t)
	ctx := logging.NewContext(context.Background(), logger)
	require.Same(t, logger, logging.FromContext(ctx))

	// Falls back to a logger that discards everything.
	fallback := logging.FromContext(context.Background())
	require.NotNil(t, fallback)
	require.False(t, fallback.Core().Enabled(zap.ErrorLevel))
}

func TestNewWritesToFile(t *testing.T) {
	t.Parallel()

	file := filepath.Join(t.TempDir(), "fragpow.log")
	logger := logging.New(logging.Options{
		Level:       zap.InfoLevel,
		JSON:        true,
		File:        file,
		MaxFileSize: 1,
	})
	logger.Debug("file sink records debug messages", zap.Int("fragment", 3))
	_ = logger.Sync() // syncing stdout fails when it is a pipe

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Contains(t, string(data), "file sink records debug messages")
	require.Contains(t, string(data), `"fragment":3`)
}
