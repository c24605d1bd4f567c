package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dispatch/internal/config"
	"dispatch/internal/logging"
	"dispatch/internal/queue"
	"dispatch/internal/testsupport"
	"dispatch/internal/worker"
)

func newTestWorker(t *testing.T, store *queue.Store, cfg *config.Config) *worker.Worker {
	t.Helper()
	cfg.Worker.PollIntervalSeconds = 1
	cfg.Worker.ContentionDelayMillis = 10
	w, err := worker.New(cfg, store, logging.NewNop())
	if err != nil {
		t.Fatalf("worker.New: %v", err)
	}
	return w
}

func waitForStatus(t *testing.T, store *queue.Store, id string, want queue.Status) *queue.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if job != nil && job.Status == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached status %s", id, want)
	return nil
}

func TestWorkerCompletesJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	var mu sync.Mutex
	var handled []string
	w := newTestWorker(t, store, cfg)
	w.Register("record", func(_ context.Context, job *queue.Job) error {
		mu.Lock()
		handled = append(handled, job.ID)
		mu.Unlock()
		return nil
	})

	testsupport.Enqueue(t, store, "job-a", map[string]any{"kind": "record"})
	testsupport.Enqueue(t, store, "job-b", map[string]any{"kind": "record"})

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	waitForStatus(t, store, "job-a", queue.StatusCompleted)
	waitForStatus(t, store, "job-b", queue.StatusCompleted)

	mu.Lock()
	defer mu.Unlock()
	if len(handled) != 2 {
		t.Fatalf("expected 2 handled jobs, got %v", handled)
	}
}

func TestWorkerMarksHandlerErrorFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	w := newTestWorker(t, store, cfg)
	w.Register("explode", func(context.Context, *queue.Job) error {
		return errors.New("boom")
	})
	testsupport.Enqueue(t, store, "job-x", map[string]any{"kind": "explode"})

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	job := waitForStatus(t, store, "job-x", queue.StatusFailed)
	if job.ErrorMessage != "boom" {
		t.Fatalf("error message = %q", job.ErrorMessage)
	}
}

func TestWorkerFailsUnknownKind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	w := newTestWorker(t, store, cfg)
	testsupport.Enqueue(t, store, "job-y", map[string]any{"kind": "mystery"})

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	job := waitForStatus(t, store, "job-y", queue.StatusFailed)
	if job.ErrorMessage == "" {
		t.Fatal("expected error message for unknown kind")
	}
}

func TestWorkerBuiltinsHandleMissingKind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	w := newTestWorker(t, store, cfg)
	worker.RegisterBuiltins(w)
	testsupport.Enqueue(t, store, "job-z", map[string]any{"note": "no kind set"})

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	waitForStatus(t, store, "job-z", queue.StatusCompleted)
}

func TestWorkerStartStopIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	w := newTestWorker(t, store, cfg)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
	if !w.Running() {
		t.Fatal("worker should be running")
	}
	w.Stop()
	w.Stop()
	if w.Running() {
		t.Fatal("worker should be stopped")
	}
}

func TestJobKind(t *testing.T) {
	if got := worker.JobKind(nil); got != "" {
		t.Errorf("nil job kind = %q", got)
	}
	job := &queue.Job{Params: map[string]any{"kind": "  transcode "}}
	if got := worker.JobKind(job); got != "transcode" {
		t.Errorf("kind = %q", got)
	}
	job = &queue.Job{Params: map[string]any{"kind": 7}}
	if got := worker.JobKind(job); got != "" {
		t.Errorf("non-string kind = %q", got)
	}
}
