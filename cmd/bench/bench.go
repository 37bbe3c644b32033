package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/pprof"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spacemeshos/fragpow/config"
	"github.com/spacemeshos/fragpow/gate"
	"github.com/spacemeshos/fragpow/logging"
	"github.com/spacemeshos/fragpow/pow"
	"github.com/spacemeshos/fragpow/progress"
)

// Binary version.
// It should be passed during the build with '-ldflags "-X main.version="'.
var version = "unknown"

func loadConfig() (*config.Config, error) {
	// Start with a default Config with sane settings
	cfg := config.DefaultConfig()
	// Pre-parse the command line to check for an alternative Config file
	cfg, err := config.ParseFlags(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.ConfigFile == "" {
		if _, err := os.Stat(config.DefaultConfigFile()); err == nil {
			cfg.ConfigFile = config.DefaultConfigFile()
		}
	}
	cfg, err = config.ReadConfigFile(cfg)
	if err != nil {
		return nil, err
	}
	// Finally, parse the command line options again to ensure
	// they take precedence.
	cfg, err = config.ParseFlags(cfg)
	if err != nil {
		return nil, err
	}
	cfg, err = config.SetupConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// benchMain is the true entry point. This function is required since
// defers created in the top-level scope of a main method aren't executed if
// os.Exit() is called.
func benchMain() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logLevel := zap.InfoLevel
	if cfg.DebugLog {
		logLevel = zap.DebugLevel
	}
	logger := logging.New(logging.Options{
		Level:       logLevel,
		JSON:        cfg.JSONLog,
		File:        cfg.LogFile(),
		MaxFileSize: cfg.MaxLogFileSize,
		MaxFiles:    cfg.MaxLogFiles,
	})
	defer logger.Sync()
	ctx := logging.NewContext(context.Background(), logger)
	logger.Info("starting", zap.String("version", version), zap.Object("gate", cfg.Gate))

	if cfg.CPUProfile != "" {
		f, err := os.Create(cfg.CPUProfile)
		if err != nil {
			return fmt.Errorf("could not create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	if cfg.MetricsListen != "" {
		srv := &http.Server{Addr: cfg.MetricsListen, Handler: promhttp.Handler()}
		go func() {
			logger.Info("serving metrics", zap.String("address", cfg.MetricsListen))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	g, err := gate.New(cfg.Gate)
	if err != nil {
		return err
	}
	challenge := g.Issue(ctx)
	fmt.Printf("difficulty: %d, threshold: %d, fragments: %d\n",
		challenge.Difficulty, pow.Threshold(challenge.Difficulty), len(challenge.Fragments))

	broadcaster := progress.NewBroadcaster(
		progress.WithBufferSize(len(challenge.Fragments)),
		progress.WithLogger(logger.Named("progress")),
	)
	updates, unsubscribe := broadcaster.Subscribe()
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		solved := 0
		for nonce := range updates {
			solved++
			fmt.Printf("[%d/%d] nonce %s\n", solved, len(challenge.Fragments), nonce)
		}
	}()

	t1 := time.Now()
	solution, err := g.NewSolver(broadcaster).Solve(ctx, &challenge)
	unsubscribe()
	<-printed
	if err != nil {
		return fmt.Errorf("solving challenge: %w", err)
	}
	e := time.Since(t1)

	hashes := solution.Hashes()
	fmt.Printf("Solution found in %s (%f), %.0f hashes, %.0f hashes-per-sec\n",
		e, e.Seconds(), hashes, hashes/e.Seconds())

	t1 = time.Now()
	if err := g.Admit(ctx, &challenge, solution); err != nil {
		return fmt.Errorf("verifying solution: %w", err)
	}
	e1 := time.Since(t1)
	fmt.Printf("Solution verified in %s (%f)\n", e1, e1.Seconds())

	encoded, err := pow.EncodeSolution(solution)
	if err != nil {
		return fmt.Errorf("encoding solution: %w", err)
	}
	fmt.Printf("Solution size: %s (%d bytes)\n", ByteCountIEC(len(encoded)), len(encoded))
	return nil
}

func ByteCountIEC(b int) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB",
		float64(b)/float64(div), "KMGTPE"[exp])
}

func main() {
	// Call the "real" main in a nested manner so the defers will properly
	// be executed in the case of a graceful shutdown.
	if err := benchMain(); err != nil {
		// If it's the flag utility error don't print it,
		// because it was already printed.
		var flagsErr *flags.Error
		if !errors.As(err, &flagsErr) || flagsErr.Type != flags.ErrHelp {
			_, _ = fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
