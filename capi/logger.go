package capi

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
	loggerMu   sync.RWMutex
)

// Logger returns the engine's logger instance.
// It uses a no-op logger by default.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		loggerMu.Lock()
		if logger == nil {
			logger = zap.NewNop()
		}
		loggerMu.Unlock()
	})
	loggerMu.RLock()
	defer loggerMu.RUnlock()
	return logger
}

// SetLogger replaces the engine's logger. A nil logger restores the no-op
// logger.
func SetLogger(l *zap.Logger) {
	loggerOnce.Do(func() {})
	if l == nil {
		l = zap.NewNop()
	}
	loggerMu.Lock()
	logger = l
	loggerMu.Unlock()
}

// contextLogger builds the logger of a context from config.logging_level
// (0 disables logging, 1 is fatal and 5 is debug) and
// config.logging_format (DEFAULT or JSON). With logging disabled the
// package logger is used.
func contextLogger(level int, format string) *zap.Logger {
	if level <= 0 {
		return Logger()
	}
	var zl zapcore.Level
	switch level {
	case 1:
		zl = zapcore.FatalLevel
	case 2:
		zl = zapcore.ErrorLevel
	case 3:
		zl = zapcore.WarnLevel
	case 4:
		zl = zapcore.InfoLevel
	default:
		zl = zapcore.DebugLevel
	}
	var cfg zap.Config
	if format == "JSON" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zl)
	cfg.OutputPaths = []string{"stderr"}
	l, err := cfg.Build()
	if err != nil {
		return Logger()
	}
	return l.Named("tiledb")
}
