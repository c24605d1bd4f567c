package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dispatch/internal/bridge"
	"dispatch/internal/llm"
	"dispatch/internal/logging"
)

func newBridgeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "bridge",
		Short: "Run the agent-facing bridge server",
		Long: "Serves the HTTP endpoint that forwards prompts to the hosted model and\n" +
			"relays structured tool calls to the daemon as durable jobs. The daemon\n" +
			"must be running for job relays to succeed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateLLM(); err != nil {
				return err
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			client := llm.NewClient(cfg.LLM)
			relay := bridge.NewSocketRelay(ctx.socketPath())
			srv, err := bridge.NewServer(cfg, client, relay, logger)
			if err != nil {
				return err
			}
			if err := srv.Start(signalCtx); err != nil {
				return err
			}
			defer srv.Stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Bridge listening on %s\n", srv.Addr())
			<-signalCtx.Done()
			return nil
		},
	}
}
