// Command dispatchd is the job queue daemon. It owns the SQLite job store,
// serves the JSON-RPC control socket and the HTTP status API, and runs the
// embedded worker when enabled.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"dispatch/internal/config"
	"dispatch/internal/daemon"
	"dispatch/internal/ipc"
	"dispatch/internal/logging"
	"dispatch/internal/queue"
	"dispatch/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	signalCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := queue.Open(cfg)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return err
	}
	defer store.Close()

	var jobWorker *worker.Worker
	if cfg.Worker.Enabled {
		jobWorker, err = worker.New(cfg, store, logger)
		if err != nil {
			return fmt.Errorf("create worker: %w", err)
		}
		worker.RegisterBuiltins(jobWorker)
	}

	d, err := daemon.New(cfg, store, logger, jobWorker)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	ipcServer, err := ipc.NewServer(signalCtx, cfg.SocketPath(), d, logger)
	if err != nil {
		return fmt.Errorf("start IPC server: %w", err)
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	<-signalCtx.Done()
	logger.Info("dispatchd shutting down")
	return nil
}
