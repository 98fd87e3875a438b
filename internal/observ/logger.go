// Package observ holds the process logger and the security audit sink.
package observ

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds the process-wide logger: JSON output in production,
// the human-readable console encoder everywhere else. Every entry carries
// the service name so aggregated logs stay attributable.
//
// An unparseable level falls back to info instead of failing startup —
// a typo in LOG_LEVEL should cost verbosity, not availability.
func NewLogger(env, level string) (*zap.Logger, error) {
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
	}

	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.InitialFields = map[string]interface{}{"service": "teamstream"}

	return config.Build()
}
