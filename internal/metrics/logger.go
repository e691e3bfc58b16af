package metrics

import (
	"go.uber.org/zap"
)

// NewLogger builds the operator logger. Verbose mode enables per-partition
// debug output; otherwise only construction failures are logged.
func NewLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
