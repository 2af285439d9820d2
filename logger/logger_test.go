package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { SetLevel("info") })

	SetLevel("debug")
	if Level() != zapcore.DebugLevel {
		t.Errorf("Level() = %s, want debug", Level())
	}

	SetLevel("WARN")
	if Level() != zapcore.WarnLevel {
		t.Errorf("Level() = %s, want warn", Level())
	}

	SetLevel("chatty")
	if Level() != zapcore.WarnLevel {
		t.Errorf("unknown level changed Level() to %s", Level())
	}

	SetLevel("")
	if Level() != zapcore.WarnLevel {
		t.Errorf("empty level changed Level() to %s", Level())
	}
}
