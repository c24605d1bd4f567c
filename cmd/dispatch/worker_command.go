package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dispatch/internal/logging"
	"dispatch/internal/queue"
	"dispatch/internal/worker"
)

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run a standalone worker loop",
		Long: "Polls the job database directly and processes queued jobs with the\n" +
			"built-in handlers. Safe to run alongside the daemon's embedded worker;\n" +
			"claim transactions guarantee each job is processed at most once.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue store: %w", err)
			}
			defer store.Close()

			w, err := worker.New(cfg, store, logger)
			if err != nil {
				return err
			}
			worker.RegisterBuiltins(w)

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := w.Start(signalCtx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Worker running; press Ctrl-C to stop")
			<-signalCtx.Done()
			w.Stop()
			return nil
		},
	}
}
