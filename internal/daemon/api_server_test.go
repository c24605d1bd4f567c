package daemon_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"dispatch/internal/api"
	"dispatch/internal/daemon"
	"dispatch/internal/logging"
	"dispatch/internal/testsupport"
)

func startAPIForTest(t *testing.T) (*daemon.Daemon, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithWorkerDisabled())
	store := testsupport.MustOpenStore(t, cfg)

	d, err := daemon.New(cfg, store, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(d.Stop)

	addr := d.APIAddr()
	if addr == "" {
		t.Fatal("expected api server address")
	}
	testsupport.Enqueue(t, store, "job-api", map[string]any{"kind": "noop"})
	return d, addr
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestAPIServerStatus(t *testing.T) {
	_, addr := startAPIForTest(t)

	var payload api.DaemonStatus
	if code := getJSON(t, fmt.Sprintf("http://%s/api/status", addr), &payload); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if !payload.Running {
		t.Fatal("expected running daemon")
	}
	if payload.QueueStats["queued"] != 1 {
		t.Fatalf("queue stats = %v", payload.QueueStats)
	}
}

func TestAPIServerQueueEndpoints(t *testing.T) {
	_, addr := startAPIForTest(t)

	var list api.QueueListResponse
	if code := getJSON(t, fmt.Sprintf("http://%s/api/queue", addr), &list); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if len(list.Jobs) != 1 || list.Jobs[0].ID != "job-api" {
		t.Fatalf("unexpected list %+v", list)
	}

	if code := getJSON(t, fmt.Sprintf("http://%s/api/queue?status=bogus", addr), nil); code != http.StatusBadRequest {
		t.Fatalf("bogus status filter code = %d", code)
	}

	var single api.JobResponse
	if code := getJSON(t, fmt.Sprintf("http://%s/api/queue/job-api", addr), &single); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if single.Job.ID != "job-api" || single.Job.Status != "queued" {
		t.Fatalf("unexpected job %+v", single.Job)
	}

	if code := getJSON(t, fmt.Sprintf("http://%s/api/queue/missing", addr), nil); code != http.StatusNotFound {
		t.Fatalf("missing job code = %d", code)
	}

	var stats api.QueueStatsResponse
	if code := getJSON(t, fmt.Sprintf("http://%s/api/stats", addr), &stats); code != http.StatusOK {
		t.Fatalf("status code = %d", code)
	}
	if stats.Total != 1 || stats.Counts["queued"] != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
