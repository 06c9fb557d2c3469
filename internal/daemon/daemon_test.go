package daemon_test

import (
	"context"
	"strings"
	"testing"

	"subcue/internal/daemon"
	"subcue/internal/logging"
	"subcue/internal/testsupport"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if d.Session() == nil {
		t.Fatalf("daemon must expose its session")
	}

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Start(ctx); err == nil {
		t.Fatalf("second Start on a running daemon must fail")
	}
	d.Stop()

	// Stop is idempotent.
	d.Stop()
}

func TestDaemonLockExcludesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	first, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("second daemon.New: %v", err)
	}
	err = second.Start(ctx)
	if err == nil {
		second.Stop()
		t.Fatalf("second instance must not acquire the lock")
	}
	if !strings.Contains(err.Error(), "already serving") {
		t.Fatalf("unexpected error: %v", err)
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("lock must be free after Stop: %v", err)
	}
	second.Stop()
}
