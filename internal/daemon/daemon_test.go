package daemon_test

import (
	"context"
	"os"
	"strings"
	"testing"

	"spool/internal/daemon"
	"spool/internal/engine"
	"spool/internal/logging"
	"spool/internal/notify"
	"spool/internal/orchestrator"
	"spool/internal/testsupport"
)

type idleEngine struct{}

func (idleEngine) Classify(context.Context, string, engine.ClassifyOptions) (*engine.Entry, error) {
	return nil, nil
}

func (idleEngine) Fetch(context.Context, engine.FetchRequest) error { return nil }

func TestStartStopLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenDB(t, cfg)
	ctx := context.Background()
	orch, err := orchestrator.New(ctx, cfg, db, idleEngine{}, notify.Nop{}, logging.NewNop())
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}

	d, err := daemon.New(cfg, db, orch, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if d.SessionID() == "" {
		t.Fatal("expected a session id")
	}

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !d.Running() {
		t.Fatal("daemon should report running")
	}
	if _, err := os.Stat(d.LockPath()); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}
	if err := d.Start(ctx); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected already-running error, got %v", err)
	}

	d.Stop()
	if d.Running() {
		t.Fatal("daemon should report stopped")
	}
	if err := d.Start(ctx); err != nil {
		t.Fatalf("restart after Stop: %v", err)
	}
	d.Stop()
}

func TestSecondInstanceIsRejected(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	db := testsupport.MustOpenDB(t, cfg)
	ctx := context.Background()
	orch, err := orchestrator.New(ctx, cfg, db, idleEngine{}, notify.Nop{}, logging.NewNop())
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}

	first, err := daemon.New(cfg, db, orch, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, db, orch, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(ctx); err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock contention error, got %v", err)
	}
}
