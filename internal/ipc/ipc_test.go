package ipc_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"dispatch/internal/daemon"
	"dispatch/internal/ipc"
	"dispatch/internal/logging"
	"dispatch/internal/queue"
	"dispatch/internal/testsupport"
)

func TestIPCServerClient(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkerDisabled())
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()

	d, err := daemon.New(cfg, store, logger, nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}

	socket := cfg.SocketPath()
	srv, err := ipc.NewServer(ctx, socket, d, logger)
	if err != nil {
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("skipping IPC server test: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()
	t.Cleanup(func() {
		srv.Close()
	})

	time.Sleep(50 * time.Millisecond)

	client, err := ipc.Dial(socket)
	if err != nil {
		t.Fatalf("ipc.Dial: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	status, err := client.Status()
	if err != nil {
		t.Fatalf("Status RPC failed: %v", err)
	}
	if !status.Running {
		t.Fatal("expected daemon to be running")
	}
	if status.PID <= 0 {
		t.Fatalf("unexpected pid %d", status.PID)
	}

	enqA, err := client.Enqueue("", map[string]any{"kind": "noop", "note": "first"})
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if enqA.Job.ID == "" {
		t.Fatal("expected daemon-assigned job id")
	}
	if enqA.Job.Status != string(queue.StatusQueued) {
		t.Fatalf("expected queued status, got %s", enqA.Job.Status)
	}

	enqB, err := client.Enqueue("job-b", map[string]any{"kind": "noop"})
	if err != nil {
		t.Fatalf("Enqueue explicit id failed: %v", err)
	}
	if enqB.Job.ID != "job-b" {
		t.Fatalf("expected explicit id, got %s", enqB.Job.ID)
	}
	if _, err := client.Enqueue("job-b", nil); err == nil {
		t.Fatal("expected duplicate enqueue to fail")
	}

	if _, err := store.MarkFailed(ctx, "job-b", "unit failure"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	listResp, err := client.QueueList(nil)
	if err != nil {
		t.Fatalf("QueueList failed: %v", err)
	}
	if len(listResp.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(listResp.Jobs))
	}

	failedResp, err := client.QueueList([]string{string(queue.StatusFailed)})
	if err != nil {
		t.Fatalf("QueueList filter failed: %v", err)
	}
	if len(failedResp.Jobs) != 1 || failedResp.Jobs[0].ID != "job-b" {
		t.Fatalf("unexpected failed listing: %#v", failedResp.Jobs)
	}
	if _, err := client.QueueList([]string{"bogus"}); err == nil {
		t.Fatal("expected unknown status filter to fail")
	}

	describeResp, err := client.QueueDescribe("job-b")
	if err != nil {
		t.Fatalf("QueueDescribe failed: %v", err)
	}
	if describeResp.Job.ErrorMessage != "unit failure" {
		t.Fatalf("unexpected describe response: %#v", describeResp.Job)
	}
	if _, err := client.QueueDescribe("missing"); err == nil {
		t.Fatal("expected describe of missing job to fail")
	}

	statsResp, err := client.QueueStats()
	if err != nil {
		t.Fatalf("QueueStats failed: %v", err)
	}
	if statsResp.Total != 2 || statsResp.Counts[string(queue.StatusFailed)] != 1 {
		t.Fatalf("unexpected stats: %#v", statsResp)
	}

	dbHealth, err := client.DatabaseHealth()
	if err != nil {
		t.Fatalf("DatabaseHealth failed: %v", err)
	}
	if !strings.HasSuffix(dbHealth.DBPath, "jobs.db") {
		t.Fatalf("unexpected db path: %s", dbHealth.DBPath)
	}
	if !dbHealth.TableExists || !dbHealth.IntegrityCheck {
		t.Fatalf("unexpected db health: %#v", dbHealth)
	}
}
