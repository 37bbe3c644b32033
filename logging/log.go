package logging

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type loggerKey struct{}

func NewContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored in ctx.
// Without one, logging is discarded so library callers stay quiet by default.
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

type Options struct {
	Level zapcore.LevelEnabler
	JSON  bool

	// File enables logging to a rotated file in addition to stdout.
	File        string
	MaxFileSize int // megabytes
	MaxFiles    int // 0 keeps all rotated files
}

func New(opts Options) *zap.Logger {
	var encoder zapcore.Encoder
	if opts.JSON {
		encoder = zapcore.NewJSONEncoder(zap.NewDevelopmentEncoderConfig())
	} else {
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	level := opts.Level
	if level == nil {
		level = zap.InfoLevel
	}

	cores := []zapcore.Core{zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level)}
	if opts.File != "" {
		fileLogger := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxFileSize,
			MaxBackups: opts.MaxFiles,
			MaxAge:     28,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(fileLogger), zap.DebugLevel))
	}

	return zap.New(zapcore.NewTee(cores...))
}
