package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"meetflow/internal/apiclient"
	"meetflow/internal/preflight"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether meetflow can process transcripts",
		Long: "Reports collaborator readiness from the running daemon, or runs the startup " +
			"checks locally when no daemon answers. Exits non-zero when not ready.",
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
			colorize := shouldColorize(out)

			probeCtx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
			health, err := client.Health(probeCtx)
			cancel()
			switch {
			case err == nil:
				if ctx.JSONMode() {
					return writeJSON(cmd, health)
				}
				printSectionHeader(out, "Daemon Health", colorize)
				for _, check := range health.Checks {
					fmt.Fprintln(out, renderStatusLine(check.Name, readyKind(check.Ready, check.Name == "renderer"), check.Detail, colorize))
				}
				db := health.Database
				fmt.Fprintln(out, renderStatusLine("queue database", readyKind(db.IntegrityCheck && db.Error == "", false), db.Path, colorize))
				if !health.Ready {
					return errors.New("daemon is not ready")
				}
				return nil
			case apiclient.IsUnavailable(err), errors.Is(err, context.DeadlineExceeded):
			default:
				return fmt.Errorf("daemon api: %w", err)
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			if ctx.JSONMode() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				printSectionHeader(out, "Local Checks (daemon not running)", colorize)
				for _, r := range results {
					fmt.Fprintln(out, renderStatusLine(r.Name, readyKind(r.Passed, false), r.Detail, colorize))
				}
			}
			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d checks failed", len(failed))
			}
			return nil
		},
	}
}
