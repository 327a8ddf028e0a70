// Package observability builds the zap loggers used across a combat session.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/idlecombat/internal/config"
)

// Service is the value of the "service" field on every root logger entry.
const Service = "idlecombat"

// baseConfigs maps a logging format to its zap starting point.
var baseConfigs = map[string]func() zap.Config{
	"json": func() zap.Config {
		c := zap.NewProductionConfig()
		// Dice and threat lines repeat every tick; sampling would drop them.
		c.Sampling = nil
		return c
	},
	"console": zap.NewDevelopmentConfig,
}

// NewLogger builds the session's root logger.
//
// Precondition: cfg.Level is "debug", "info", "warn", or "error"; cfg.Format is "json" or "console".
// Postcondition: Returns a logger carrying the service field, or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", cfg.Level, err)
	}
	base, ok := baseConfigs[cfg.Format]
	if !ok {
		return nil, fmt.Errorf("log format %q: want json or console", cfg.Format)
	}

	zc := base()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.InitialFields = map[string]any{"service": Service}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build %s logger: %w", cfg.Format, err)
	}
	return logger, nil
}

// ForBout returns a child logger tagging every entry with the encounter ID.
//
// Precondition: logger must be non-nil.
func ForBout(logger *zap.Logger, encounterID string) *zap.Logger {
	return logger.With(zap.String("encounter", encounterID))
}
