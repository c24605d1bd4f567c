package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dispatch/internal/ipc"
)

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var jobID string
	var kind string
	var paramFlags []string
	var paramsJSON string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Enqueue a job directly, bypassing the model",
		RunE: func(cmd *cobra.Command, args []string) error {
			params, err := buildEnqueueParams(kind, paramFlags, paramsJSON)
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Enqueue(strings.TrimSpace(jobID), params)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Enqueued job %s\n", resp.Job.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&jobID, "id", "", "Explicit job id (default: daemon-assigned UUID)")
	cmd.Flags().StringVar(&kind, "kind", "", "Job kind routed to the matching worker handler")
	cmd.Flags().StringArrayVar(&paramFlags, "param", nil, "Job parameter as key=value (repeatable)")
	cmd.Flags().StringVar(&paramsJSON, "params-json", "", "Job parameters as a JSON object (merged over --param)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the enqueued job as JSON")
	return cmd
}

func buildEnqueueParams(kind string, paramFlags []string, paramsJSON string) (map[string]any, error) {
	params := make(map[string]any)

	for _, flag := range paramFlags {
		key, value, found := strings.Cut(flag, "=")
		key = strings.TrimSpace(key)
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", flag)
		}
		params[key] = value
	}

	if trimmed := strings.TrimSpace(paramsJSON); trimmed != "" {
		var parsed map[string]any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
			return nil, fmt.Errorf("parse --params-json: %w", err)
		}
		for key, value := range parsed {
			params[key] = value
		}
	}

	if kind = strings.TrimSpace(kind); kind != "" {
		params["kind"] = kind
	}
	return params, nil
}
