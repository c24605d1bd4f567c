package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"log/slog"

	"dispatch/internal/config"
	"dispatch/internal/logging"
	"dispatch/internal/queue"
)

// Handler processes a claimed job. A nil return marks the job completed,
// any error marks it failed with the error message.
type Handler func(ctx context.Context, job *queue.Job) error

// Worker polls the queue and runs registered handlers against claimed jobs.
type Worker struct {
	store           *queue.Store
	logger          *slog.Logger
	pollInterval    time.Duration
	contentionDelay time.Duration

	mu       sync.Mutex
	handlers map[string]Handler
	running  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New constructs a worker from configuration. Handlers are registered
// separately via Register.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger) (*Worker, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("worker requires config and store")
	}
	pollInterval := time.Duration(cfg.Worker.PollIntervalSeconds) * time.Second
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	contentionDelay := time.Duration(cfg.Worker.ContentionDelayMillis) * time.Millisecond
	if contentionDelay <= 0 {
		contentionDelay = 250 * time.Millisecond
	}
	return &Worker{
		store:           store,
		logger:          logging.NewComponentLogger(logger, "worker"),
		pollInterval:    pollInterval,
		contentionDelay: contentionDelay,
		handlers:        make(map[string]Handler),
	}, nil
}

// Register installs a handler for jobs whose "kind" parameter equals kind.
// Registering the empty kind sets the handler for jobs without a kind.
func (w *Worker) Register(kind string, handler Handler) {
	if handler == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[strings.TrimSpace(kind)] = handler
}

// Start launches the polling loop.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("worker already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.wg.Add(1)
	w.mu.Unlock()

	go w.run(runCtx)
	return nil
}

// Stop terminates the polling loop and waits for in-flight work to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	w.wg.Wait()
}

// Running reports whether the polling loop is active.
func (w *Worker) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	w.logger.Info("worker started",
		logging.Duration("poll_interval", w.pollInterval))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("worker stopped")
			return
		default:
		}

		job, err := w.store.ClaimNext(ctx)
		switch {
		case errors.Is(err, queue.ErrContended):
			// Another worker got there first. Retry soon rather than
			// waiting out the whole poll interval.
			w.wait(ctx, w.contentionDelay)
			continue
		case err != nil:
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("claim failed", logging.Error(err))
			w.wait(ctx, w.pollInterval)
			continue
		case job == nil:
			w.wait(ctx, w.pollInterval)
			continue
		}

		w.process(ctx, job)
	}
}

func (w *Worker) process(ctx context.Context, job *queue.Job) {
	kind := JobKind(job)
	logger := w.logger.With(
		logging.String("job_id", job.ID),
		logging.String("kind", kind))
	logger.Info("job claimed")

	handler := w.handlerFor(kind)
	if handler == nil {
		w.finish(ctx, logger, job, fmt.Errorf("no handler registered for kind %q", kind))
		return
	}
	w.finish(ctx, logger, job, handler(ctx, job))
}

func (w *Worker) finish(ctx context.Context, logger *slog.Logger, job *queue.Job, handlerErr error) {
	// Use a fresh context for the terminal write so a shutdown mid-job
	// still records the outcome.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if handlerErr != nil {
		outcome, err := w.store.MarkFailed(writeCtx, job.ID, handlerErr.Error())
		if err != nil {
			logger.Error("mark failed rejected", logging.Error(err))
			return
		}
		logger.Warn("job failed",
			logging.Error(handlerErr),
			logging.String("write_outcome", outcome.String()))
		return
	}

	outcome, err := w.store.MarkComplete(writeCtx, job.ID)
	if err != nil {
		logger.Error("mark complete rejected", logging.Error(err))
		return
	}
	logger.Info("job completed", logging.String("write_outcome", outcome.String()))
}

func (w *Worker) handlerFor(kind string) Handler {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.handlers[kind]
}

func (w *Worker) wait(ctx context.Context, delay time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(delay):
	}
}

// JobKind extracts the "kind" parameter from a job, empty when absent.
func JobKind(job *queue.Job) string {
	if job == nil || job.Params == nil {
		return ""
	}
	if value, ok := job.Params["kind"].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
