// Package obslog is a thin zap wrapper exposing exactly the two levels the
// check uses, informational and error.
package obslog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the Log collaborator interface the check orchestration consumes.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type zapLogger struct {
	l *zap.SugaredLogger
}

// NewProduction builds a Logger with a JSON encoder and ISO8601 timestamps,
// suitable for running inside a monitoring agent.
func NewProduction() (Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &zapLogger{l: l.Sugar()}, nil
}

// NewDevelopment builds a Logger with a human-readable console encoder, for
// local runs.
func NewDevelopment() (Logger, error) {
	l, err := zap.NewDevelopment()
	if err != nil {
		return nil, err
	}
	return &zapLogger{l: l.Sugar()}, nil
}

func (z *zapLogger) Info(msg string, args ...any)  { z.l.Infof(msg, args...) }
func (z *zapLogger) Error(msg string, args ...any) { z.l.Errorf(msg, args...) }
