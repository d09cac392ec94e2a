package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/sitegrid/sitegrid/pkg/config"
)

func TestNew(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "warn", Format: "json"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info should be disabled at warn level")
	}
	if !logger.Core().Enabled(zapcore.ErrorLevel) {
		t.Fatalf("error should be enabled at warn level")
	}

	if _, err := New(config.LoggingConfig{Level: "loud"}); err == nil {
		t.Fatalf("expected an error for an unknown level")
	}
}
