// Package logger builds the zap logger shared across the service.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production JSON logger. LOG_LEVEL overrides the default info
// level; ENVIRONMENT=dev switches to the human-readable development config.
func New() (*zap.Logger, error) {
	if os.Getenv("ENVIRONMENT") == "dev" {
		return zap.NewDevelopment()
	}

	cfg := zap.NewProductionConfig()
	if raw := os.Getenv("LOG_LEVEL"); raw != "" {
		level, err := zapcore.ParseLevel(raw)
		if err == nil {
			cfg.Level = zap.NewAtomicLevelAt(level)
		}
	}
	return cfg.Build()
}
