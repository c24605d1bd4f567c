package worker

import (
	"context"
	"fmt"
	"time"

	"dispatch/internal/queue"
)

// RegisterBuiltins installs the handlers shipped with the daemon. Deployments
// embedding the worker register their own handlers instead of, or on top of,
// these.
func RegisterBuiltins(w *Worker) {
	if w == nil {
		return
	}
	w.Register("noop", NoopHandler)
	w.Register("sleep", SleepHandler)
	w.Register("", NoopHandler)
}

// NoopHandler accepts the job without doing any work.
func NoopHandler(_ context.Context, _ *queue.Job) error {
	return nil
}

// SleepHandler waits for params["seconds"] before completing, mainly useful
// for exercising the claim and shutdown paths of a deployment.
func SleepHandler(ctx context.Context, job *queue.Job) error {
	seconds, ok := job.Params["seconds"].(float64)
	if !ok || seconds < 0 {
		return fmt.Errorf("sleep job requires a non-negative \"seconds\" parameter")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(seconds * float64(time.Second))):
		return nil
	}
}
