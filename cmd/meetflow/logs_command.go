package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"meetflow/internal/api"
	"meetflow/internal/logging"
	"meetflow/internal/logstream"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var opts logstream.Options
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon logs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			logPath := filepath.Join(cfg.Paths.LogDir, logging.LogFileName)
			printed, err := logstream.Stream(cmd.Context(), client, logPath, opts,
				func(ev api.LogEvent) {
					if ctx.JSONMode() {
						_ = writeJSON(cmd, ev)
						return
					}
					fmt.Fprintln(out, formatLogEvent(ev))
				},
				func(line string) { fmt.Fprintln(out, line) },
			)
			if err != nil {
				return err
			}
			if !printed && !opts.Follow {
				fmt.Fprintln(out, "No log entries")
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.Lines, "lines", "n", 50, "Number of recent lines to show")
	cmd.Flags().BoolVarP(&opts.Follow, "follow", "f", false, "Keep streaming new lines")
	cmd.Flags().StringVar(&opts.Filters.Component, "component", "", "Only show lines from this component")
	cmd.Flags().Int64Var(&opts.Filters.JobID, "job", 0, "Only show lines for this job id")
	return cmd
}

// formatLogEvent renders an API event like the daemon's console log lines.
func formatLogEvent(ev api.LogEvent) string {
	var b strings.Builder
	b.WriteString(ev.Timestamp)
	b.WriteByte(' ')
	b.WriteString(strings.ToUpper(ev.Level))
	if ev.Component != "" {
		fmt.Fprintf(&b, " [%s]", ev.Component)
	}
	if ev.JobID > 0 {
		fmt.Fprintf(&b, " Job #%d", ev.JobID)
		if ev.Step != "" {
			fmt.Fprintf(&b, " (%s)", ev.Step)
		}
	}
	b.WriteString(" – ")
	b.WriteString(ev.Message)
	return b.String()
}
