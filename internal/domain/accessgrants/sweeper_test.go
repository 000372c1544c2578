package accessgrants

import (
	"context"
	"testing"
	"time"

	"consent-records/internal/domain/audit"
	"consent-records/internal/platform/logger"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestSweeper_RunOnceLogsCount(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	g, _ := f.svc.Grant(ctx, "p1", "doctor@example.com")
	f.now = g.ExpiresAt.Add(time.Minute)

	core, logs := observer.New(zapcore.InfoLevel)
	w := NewSweeper(f.svc, logger.FromZap(zap.New(core)), time.Hour)

	if n := w.RunOnce(ctx); n != 1 {
		t.Fatalf("expected 1 grant swept, got %d", n)
	}
	if logs.FilterMessage("expired grants audited").Len() != 1 {
		t.Fatalf("expected sweep to be logged")
	}
}

func TestSweeper_StartStop(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	g, _ := f.svc.Grant(ctx, "p1", "doctor@example.com")
	f.now = g.ExpiresAt.Add(time.Minute)

	w := NewSweeper(f.svc, nil, time.Hour)
	w.Start(ctx)

	// La primera pasada es inmediata.
	deadline := time.Now().Add(2 * time.Second)
	for f.audit.count(audit.ActionAccessExpired) < 2 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	w.Stop()
	w.Stop()

	if f.audit.count(audit.ActionAccessExpired) != 2 {
		t.Fatalf("expected first sweep to run on start")
	}
}

func TestSweeper_StopWithoutStart(t *testing.T) {
	w := NewSweeper(newFixture().svc, nil, time.Minute)
	w.Stop()
}
