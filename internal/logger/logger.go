// Package logger wraps zap with a small context-aware API used across the service.
package logger

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global *zap.SugaredLogger = zap.NewNop().Sugar()
)

// ParseLogLevel converts a level name to a zap level.
// Returns false if the name is not recognized.
func ParseLogLevel(s string) (zapcore.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel, true
	case "info", "":
		return zapcore.InfoLevel, true
	case "warn", "warning":
		return zapcore.WarnLevel, true
	case "error":
		return zapcore.ErrorLevel, true
	default:
		return zapcore.InfoLevel, false
	}
}

// New builds a console logger at the given level.
func New(level zapcore.Level) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// Init installs the global logger used by the package-level helpers.
func Init(level zapcore.Level) error {
	l, err := New(level)
	if err != nil {
		return err
	}
	mu.Lock()
	global = l
	mu.Unlock()
	return nil
}

// Sync flushes buffered log entries.
func Sync() {
	mu.RLock()
	l := global
	mu.RUnlock()
	_ = l.Sync()
}

func get() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Debugf logs a formatted debug message.
func Debugf(_ context.Context, format string, args ...any) {
	get().Debugf(format, args...)
}

// Infof logs a formatted info message.
func Infof(_ context.Context, format string, args ...any) {
	get().Infof(format, args...)
}

// Warnf logs a formatted warning message.
func Warnf(_ context.Context, format string, args ...any) {
	get().Warnf(format, args...)
}

// Errorf logs a formatted error message.
func Errorf(_ context.Context, format string, args ...any) {
	get().Errorf(format, args...)
}
