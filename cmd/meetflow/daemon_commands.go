package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"meetflow/internal/api"
	"meetflow/internal/apiclient"
	"meetflow/internal/daemonctl"
	"meetflow/internal/daemonrun"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run and control the background daemon",
	}
	daemonCmd.AddCommand(newDaemonRunCommand(ctx))
	daemonCmd.AddCommand(newDaemonStartCommand(ctx))
	daemonCmd.AddCommand(newDaemonStopCommand(ctx))
	daemonCmd.AddCommand(newDaemonStatusCommand(ctx))
	return daemonCmd
}

func newDaemonRunCommand(ctx *commandContext) *cobra.Command {
	var development bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daemon in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:    ctx.resolvedLogLevel(cfg),
				Development: development,
			})
		},
	}
	cmd.Flags().BoolVar(&development, "development", false, "Include source locations in log output")
	return cmd
}

func newDaemonStartCommand(ctx *commandContext) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon in the background",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			result, err := daemonctl.EnsureStarted(cmd.Context(), cfg, exe, daemonctl.LaunchOptions{
				ConfigPath: ctx.configFlagValue(),
				LogLevel:   strings.TrimSpace(*ctx.logLevelFlag),
			}, wait)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch result.State {
			case daemonctl.StartStateAlreadyRunning:
				fmt.Fprintf(out, "Daemon already running at %s\n", result.Address)
			default:
				fmt.Fprintf(out, "Daemon started at %s\n", result.Address)
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 10*time.Second, "How long to wait for the API to answer")
	return cmd
}

func newDaemonStopCommand(ctx *commandContext) *cobra.Command {
	var grace time.Duration
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon (terminates the process)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			result, err := daemonctl.StopAndTerminate(cfg, grace)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(out, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			if result.ForcedKill {
				fmt.Fprintf(out, "Daemon did not exit in %s; killed pid %d\n", grace, result.PID)
			}
			fmt.Fprintln(out, "Daemon stopped")
			return nil
		},
	}
	cmd.Flags().DurationVar(&grace, "grace", 5*time.Second, "Time allowed for a clean shutdown before SIGKILL")
	return cmd
}

type daemonStatusView struct {
	Running bool                `json:"running"`
	PID     int                 `json:"pid,omitempty"`
	Address string              `json:"address"`
	Queue   *api.QueueStatus    `json:"queue,omitempty"`
	Health  *api.HealthResponse `json:"health,omitempty"`
}

func newDaemonStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon, collaborator and queue status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			view := daemonStatusView{Address: client.BaseURL()}
			if pid, err := daemonctl.ReadPID(daemonctl.PIDPath(cfg)); err == nil && daemonctl.ProcessAlive(pid) {
				view.PID = pid
			}

			probeCtx, cancel := context.WithTimeout(cmd.Context(), probeTimeout)
			status, err := client.Status(probeCtx)
			cancel()
			switch {
			case err == nil:
				view.Running = true
				view.Queue = &status
				if health, err := client.Health(cmd.Context()); err == nil {
					view.Health = &health
				}
			case apiclient.IsUnavailable(err), errors.Is(err, context.DeadlineExceeded):
			default:
				return fmt.Errorf("daemon api: %w", err)
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, view)
			}
			renderDaemonStatus(cmd, view)
			return nil
		},
	}
}

func renderDaemonStatus(cmd *cobra.Command, view daemonStatusView) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	printSectionHeader(out, "Daemon", colorize)
	switch {
	case view.Running:
		detail := "Running at " + view.Address
		if view.PID > 0 {
			detail = fmt.Sprintf("%s (pid %d)", detail, view.PID)
		}
		fmt.Fprintln(out, renderStatusLine("meetflow", statusOK, detail, colorize))
	case view.PID > 0:
		fmt.Fprintln(out, renderStatusLine("meetflow", statusWarn, fmt.Sprintf("pid %d alive but API at %s is not answering", view.PID, view.Address), colorize))
	default:
		fmt.Fprintln(out, renderStatusLine("meetflow", statusError, "Not running", colorize))
		return
	}

	if view.Health != nil {
		fmt.Fprintln(out)
		printSectionHeader(out, "Collaborators", colorize)
		for _, check := range view.Health.Checks {
			fmt.Fprintln(out, renderStatusLine(check.Name, readyKind(check.Ready, check.Name == "renderer"), check.Detail, colorize))
		}
		db := view.Health.Database
		fmt.Fprintln(out, renderStatusLine("queue database", readyKind(db.IntegrityCheck && db.Error == "", false), db.Path, colorize))
	}

	if view.Queue != nil {
		fmt.Fprintln(out)
		printSectionHeader(out, "Queue", colorize)
		q := view.Queue
		worker := "stopped"
		if q.Running {
			worker = "running"
		}
		fmt.Fprintln(out, renderStatusLine("worker", readyKind(q.Running, false), worker, colorize))
		if q.Current != nil {
			fmt.Fprintln(out, renderStatusLine("processing", statusInfo, jobLabel(*q.Current), colorize))
		}
		fmt.Fprintln(out, renderStatusLine("pending", statusInfo, fmt.Sprint(q.PendingCount), colorize))
		if q.LastError != "" {
			fmt.Fprintln(out, renderStatusLine("last error", statusWarn, q.LastError, colorize))
		}
	}
}
