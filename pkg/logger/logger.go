package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global *zap.Logger = zap.NewNop()

// Init configures the process-wide logger. Development environments get a
// human-readable console encoder, everything else structured JSON.
func Init(env, level string) error {
	var config zap.Config

	if env == "development" {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		config = zap.NewProductionConfig()
	}

	config.Level = zap.NewAtomicLevelAt(parseLevel(level))

	built, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	global = built
	zap.ReplaceGlobals(built)
	return nil
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// L returns the process-wide logger.
func L() *zap.Logger {
	return global
}

// Named returns a child logger with the given name.
func Named(name string) *zap.Logger {
	return global.Named(name)
}

// Sync flushes buffered log entries; call on shutdown.
func Sync() {
	_ = global.Sync()
}
