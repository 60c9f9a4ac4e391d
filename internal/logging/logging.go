// Package logging configures the zap logger shared by every pipeline
// component, mirroring the teacher engine's practice of logging each
// subsystem's lifecycle events (connect, warn-and-continue, shutdown) but
// replacing ad-hoc log.Printf calls with structured, leveled fields.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-profile logger unless dev is true, in which case
// it builds a human-readable console logger suited to local runs of the
// CLI driver.
func New(dev bool) (*zap.Logger, error) {
	if dev {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	return cfg.Build()
}

// Nop returns a logger that discards everything, used as the zero-value
// default so components never need a nil check.
func Nop() *zap.Logger {
	return zap.NewNop()
}
