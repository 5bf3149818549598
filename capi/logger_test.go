package capi

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestContextLogger(t *testing.T) {
	prev := Logger()
	t.Cleanup(func() { SetLogger(prev) })

	SetLogger(nil)
	if l := contextLogger(0, "DEFAULT"); l != Logger() {
		t.Error("level 0 should use the package logger")
	}

	tests := []struct {
		level   int
		format  string
		enabled zapcore.Level
		off     zapcore.Level
	}{
		{1, "DEFAULT", zapcore.FatalLevel, zapcore.ErrorLevel},
		{2, "JSON", zapcore.ErrorLevel, zapcore.WarnLevel},
		{3, "DEFAULT", zapcore.WarnLevel, zapcore.InfoLevel},
		{4, "JSON", zapcore.InfoLevel, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		l := contextLogger(tt.level, tt.format)
		if !l.Core().Enabled(tt.enabled) {
			t.Errorf("level %d: %s disabled", tt.level, tt.enabled)
		}
		if l.Core().Enabled(tt.off) {
			t.Errorf("level %d: %s enabled", tt.level, tt.off)
		}
	}
	if !contextLogger(5, "DEFAULT").Core().Enabled(zapcore.DebugLevel) {
		t.Error("level 5 should enable debug")
	}
}

func TestSetLogger(t *testing.T) {
	prev := Logger()
	t.Cleanup(func() { SetLogger(prev) })

	l := zap.NewExample()
	SetLogger(l)
	if Logger() != l {
		t.Error("SetLogger did not replace the logger")
	}
	SetLogger(nil)
	if Logger() == nil {
		t.Error("nil logger should fall back to no-op")
	}
}
