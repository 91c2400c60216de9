package app

import (
	"context"
	"testing"

	"github.com/jovyan/nbagent/internal/log"
)

func TestSetup_NilConfig(t *testing.T) {
	if _, err := Setup(context.Background(), nil, log.NewNop(), Options{}); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestClose_PartialApp(t *testing.T) {
	a := &App{Logger: log.NewNop()}
	if err := a.Close(); err != nil {
		t.Errorf("Close on empty app = %v, want nil", err)
	}

	var ran bool
	a = &App{Logger: log.NewNop(), otelCleanup: func() { ran = true }}
	if err := a.Close(); err != nil {
		t.Errorf("Close = %v", err)
	}
	if !ran {
		t.Error("otel cleanup did not run")
	}
}
