package inference

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestEngineImplGenerateConvertsScorerPanic(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, Options{})
	h := loadTestModel(t, reg, withScorer(panicScorer()))
	e, err := reg.Engine(h)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	_, err = e.Generate(context.Background(), "hello", testRequest(), nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "panic in Score") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEngineImplCloseUnloads(t *testing.T) {
	t.Parallel()

	reg := newTestRegistry(t, Options{})
	h := loadTestModel(t, reg)
	e, err := reg.Engine(h)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := reg.Info(h); !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("expected model to be unloaded, got %v", err)
	}
	if _, err := e.Generate(context.Background(), "x", testRequest(), nil); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("expected ErrNotInitialized after close, got %v", err)
	}
}
