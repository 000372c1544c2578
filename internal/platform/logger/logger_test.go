package logger

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   Debug,
		"":        Info,
		"WARNING": Warn,
		"error":   Error,
		"bogus":   Info,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestZapLogger_WithAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core)).With(map[string]any{"request_id": "r-1"})

	l.Warn("grant revoked", map[string]any{
		"grant_id": "g-1",
		"err":      errors.New("boom"),
		"":         "ignored",
	})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.WarnLevel || e.Message != "grant revoked" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	ctx := e.ContextMap()
	if ctx["request_id"] != "r-1" || ctx["grant_id"] != "g-1" {
		t.Fatalf("missing fields: %v", ctx)
	}
	if ctx["err"] != "boom" {
		t.Fatalf("expected error field, got %v", ctx["err"])
	}
	if _, ok := ctx[""]; ok {
		t.Fatalf("empty key should be dropped")
	}
}

func TestNop_DoesNotPanic(t *testing.T) {
	l := Nop()
	l.With(nil).Info("x", nil)
	l.Error("y", map[string]any{"k": 1})
}
