// Package logging wraps zap with the teacher's component-tagging
// convention (pkg/common/logging's WithComponent) so call sites read the
// same way while the encoding, levels, and sinks are handled by the
// ecosystem library the rest of the retrieval pack already depends on,
// rather than the teacher's own hand-rolled logger.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a thin facade over *zap.SugaredLogger adding a component tag.
type Logger struct {
	sugar     *zap.SugaredLogger
	component string
}

// Config selects the logger's verbosity and encoding, sourced from the
// log.level / log.format configuration keys.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // "json" or "console"
}

// New builds a root Logger from Config.
func New(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, err
		}
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.Format == "console" {
		zcfg.Encoding = "console"
		zcfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	zl, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: zl.Sugar()}, nil
}

// NewNop returns a Logger that discards everything, for tests.
func NewNop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

// WithComponent returns a child Logger tagging every entry with component,
// mirroring the teacher's GetGlobalLogger().WithComponent("...") idiom.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		sugar:     l.sugar.With("component", component),
		component: component,
	}
}

func (l *Logger) Debug(msg string, kv ...interface{}) { l.sugar.Debugw(msg, kv...) }
func (l *Logger) Info(msg string, kv ...interface{})  { l.sugar.Infow(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...interface{})  { l.sugar.Warnw(msg, kv...) }
func (l *Logger) Error(msg string, kv ...interface{}) { l.sugar.Errorw(msg, kv...) }

// Sync flushes any buffered log entries; call before process exit.
func (l *Logger) Sync() error { return l.sugar.Sync() }
