package bridge_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"dispatch/internal/bridge"
	"dispatch/internal/daemon"
	"dispatch/internal/ipc"
	"dispatch/internal/logging"
	"dispatch/internal/testsupport"
)

func TestSocketRelayEnqueuesThroughDaemon(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkerDisabled())
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	d, err := daemon.New(cfg, store, logger, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() { d.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	srv, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping socket relay test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(srv.Close)
	time.Sleep(50 * time.Millisecond)

	relay := bridge.NewSocketRelay(cfg.SocketPath())
	jobID, err := relay.Enqueue(map[string]any{"kind": "noop"})
	if err != nil {
		t.Fatalf("relay.Enqueue: %v", err)
	}
	if jobID == "" {
		t.Fatal("expected assigned job id")
	}

	job, err := store.GetByID(ctx, jobID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job == nil {
		t.Fatalf("job %s not persisted", jobID)
	}
	if job.Params["kind"] != "noop" {
		t.Fatalf("unexpected params %+v", job.Params)
	}
}

func TestSocketRelayReportsDaemonDown(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	relay := bridge.NewSocketRelay(cfg.SocketPath())
	if _, err := relay.Enqueue(map[string]any{"kind": "noop"}); err == nil {
		t.Fatal("expected dial error when daemon is not running")
	} else if !strings.Contains(err.Error(), "is the daemon running") {
		t.Fatalf("expected hint in error, got: %v", err)
	}
}
