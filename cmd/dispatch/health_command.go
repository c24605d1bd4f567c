package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"dispatch/internal/ipc"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show job database diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				health, err := client.DatabaseHealth()
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, health)
				}
				printDatabaseHealth(cmd.OutOrStdout(), health)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit diagnostics as JSON")
	return cmd
}

func printDatabaseHealth(out io.Writer, health *ipc.DatabaseHealthResponse) {
	colorize := shouldColorize(out)
	check := func(label string, ok bool, detail string) {
		kind := statusError
		if ok {
			kind = statusOK
		}
		fmt.Fprintln(out, renderStatusLine(label, kind, detail, colorize))
	}

	fmt.Fprintln(out, renderStatusLine("Database", statusInfo, health.DBPath, colorize))
	check("Exists", health.DatabaseExists, "")
	check("Readable", health.DatabaseReadable, "")
	check("Jobs table", health.TableExists, "")
	check("Integrity", health.IntegrityCheck, "")
	fmt.Fprintln(out, renderStatusLine("Schema", statusInfo, health.SchemaVersion, colorize))
	fmt.Fprintln(out, renderStatusLine("Jobs", statusInfo, fmt.Sprintf("%d", health.TotalJobs), colorize))
	if health.Error != "" {
		fmt.Fprintln(out, renderStatusLine("Last error", statusError, health.Error, colorize))
	}
}
