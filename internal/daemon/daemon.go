package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"dispatch/internal/config"
	"dispatch/internal/logging"
	"dispatch/internal/queue"
	"dispatch/internal/worker"
)

// Daemon coordinates the background services and enforces single-instance
// execution via a lock file.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *queue.Store
	worker *worker.Worker

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	running atomic.Bool
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	PID          int
	QueueDBPath  string
	LockFilePath string
	WorkerActive bool
	QueueStats   map[queue.Status]int
}

// New constructs a daemon with initialized dependencies. The worker may be
// nil when the deployment runs workers out of process.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, w *worker.Worker) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	lockPath := cfg.LockFilePath()
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		worker:   w,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and launches the worker and status API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another dispatchd instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if d.worker != nil && d.cfg.Worker.Enabled {
		if err := d.worker.Start(runCtx); err != nil {
			cancel()
			d.cancel = nil
			_ = d.lock.Unlock()
			return fmt.Errorf("start worker: %w", err)
		}
	}

	apiSrv, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.stopWorker()
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return err
	}
	if apiSrv != nil {
		if err := apiSrv.start(runCtx); err != nil {
			d.stopWorker()
			cancel()
			d.cancel = nil
			_ = d.lock.Unlock()
			return err
		}
	}
	d.api = apiSrv

	d.running.Store(true)
	d.logger.Info("dispatchd started",
		logging.String("lock", d.lockPath),
		logging.Bool("worker", d.worker != nil && d.cfg.Worker.Enabled))
	return nil
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.stopWorker()
	if d.api != nil {
		d.api.stop()
		d.api = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("dispatchd stopped")
}

func (d *Daemon) stopWorker() {
	if d.worker != nil {
		d.worker.Stop()
	}
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddr returns the bound address of the HTTP status API, empty when the
// API is disabled or the daemon is stopped.
func (d *Daemon) APIAddr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Enqueue inserts a new job. When id is empty a random UUID is assigned.
func (d *Daemon) Enqueue(ctx context.Context, id string, params map[string]any) (*queue.Job, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	job, err := d.store.Enqueue(ctx, id, params)
	if err != nil {
		return nil, err
	}
	d.logger.Info("job enqueued",
		logging.String("job_id", job.ID),
		logging.String("kind", worker.JobKind(job)))
	return job, nil
}

// ListQueue returns jobs filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Job, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	return d.store.List(ctx, statuses...)
}

// GetJob returns a single job by id, nil when absent.
func (d *Daemon) GetJob(ctx context.Context, id string) (*queue.Job, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	return d.store.GetByID(ctx, id)
}

// QueueStats returns per-status job counts.
func (d *Daemon) QueueStats(ctx context.Context) (map[queue.Status]int, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	return d.store.Stats(ctx)
}

// DatabaseHealth returns detailed database diagnostics.
func (d *Daemon) DatabaseHealth(ctx context.Context) (queue.DatabaseHealth, error) {
	if d.store == nil {
		return queue.DatabaseHealth{}, errors.New("queue store unavailable")
	}
	return d.store.CheckHealth(ctx)
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		QueueDBPath:  d.cfg.QueueDBPath(),
		LockFilePath: d.lockPath,
		WorkerActive: d.worker != nil && d.worker.Running(),
	}
	if stats, err := d.QueueStats(ctx); err == nil {
		status.QueueStats = stats
	}
	return status
}
