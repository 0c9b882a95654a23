package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"meetflow/internal/api"
	"meetflow/internal/apiclient"
	"meetflow/internal/queue"
	"meetflow/internal/queueaccess"
	"meetflow/internal/tui"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the job queue",
	}

	queueCmd.AddCommand(newQueueAddCommand(ctx))
	queueCmd.AddCommand(newQueueBulkCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatusCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueCancelCommand(ctx))
	queueCmd.AddCommand(newQueueRetryCommand(ctx))
	queueCmd.AddCommand(newQueueRemoveCommand(ctx))
	queueCmd.AddCommand(newQueuePruneCommand(ctx))
	queueCmd.AddCommand(newQueueWatchCommand(ctx))
	queueCmd.AddCommand(newQueueHealthCommand(ctx))

	return queueCmd
}

func newQueueAddCommand(ctx *commandContext) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "add <source-id>",
		Short: "Queue one transcript for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withQueue(cmd.Context(), func(access queueaccess.Access) error {
				job, err := access.Enqueue(cmd.Context(), args[0], title)
				if err != nil {
					return describeEnqueueError(args[0], err)
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, job)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued job %d for %s\n", job.ID, job.SourceID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Display title for the session")
	return cmd
}

func describeEnqueueError(sourceID string, err error) error {
	switch api.ErrorCode(err) {
	case api.CodeAlreadyQueued:
		return fmt.Errorf("%s is already in the queue", sourceID)
	case api.CodeAlreadyProcessed:
		return fmt.Errorf("%s has already been processed", sourceID)
	case api.CodeSkipped:
		return fmt.Errorf("%s is marked skipped (run `meetflow sessions unskip %s` to allow it)", sourceID, sourceID)
	default:
		return err
	}
}

func newQueueBulkCommand(ctx *commandContext) *cobra.Command {
	var file string
	var limit int
	cmd := &cobra.Command{
		Use:   "bulk [source-id...]",
		Short: "Queue many transcripts",
		Long: "Queue many transcripts. Source ids come from the arguments and from --file, " +
			"one per line with an optional tab-separated title. Use --file - to read stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			items := make([]api.EnqueueRequest, 0, len(args))
			for _, arg := range args {
				items = append(items, api.EnqueueRequest{SourceID: arg})
			}
			if file != "" {
				fromFile, err := readBulkFile(cmd.InOrStdin(), file)
				if err != nil {
					return err
				}
				items = append(items, fromFile...)
			}
			if len(items) == 0 {
				return errors.New("no source ids given")
			}
			return ctx.withQueue(cmd.Context(), func(access queueaccess.Access) error {
				result, err := access.EnqueueBulk(cmd.Context(), api.BulkRequest{Items: items, Limit: limit})
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, result)
				}
				printBulkResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "File of source ids (- for stdin)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Queue at most this many new jobs")
	return cmd
}

func readBulkFile(stdin io.Reader, path string) ([]api.EnqueueRequest, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open bulk file: %w", err)
		}
		defer f.Close()
		r = f
	}
	var items []api.EnqueueRequest
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		sourceID, title, _ := strings.Cut(line, "\t")
		items = append(items, api.EnqueueRequest{SourceID: strings.TrimSpace(sourceID), Title: strings.TrimSpace(title)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read bulk file: %w", err)
	}
	return items, nil
}

func printBulkResult(out io.Writer, result api.BulkResult) {
	fmt.Fprintf(out, "Queued %d, already queued %d, already processed %d, skipped %d",
		result.Queued, result.AlreadyQueued, result.AlreadyProcessed, result.Skipped)
	if result.Deferred > 0 {
		fmt.Fprintf(out, ", deferred %d (limit reached)", result.Deferred)
	}
	fmt.Fprintln(out)
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  item %d %s: %s\n", e.Index+1, e.SourceID, e.Error)
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List queue jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, s := range statuses {
				if _, ok := queue.ParseStatus(s); !ok {
					return fmt.Errorf("unknown status %q", s)
				}
			}
			return ctx.withQueue(cmd.Context(), func(access queueaccess.Access) error {
				jobs, err := access.List(cmd.Context(), statuses)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, jobs)
				}
				printTable(cmd.OutOrStdout(), "Queue is empty",
					[]string{"ID", "Source", "Title", "Status", "Created", "Detail"},
					buildQueueListRows(jobs),
					[]columnAlignment{alignRight},
				)
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	return cmd
}

func newQueueStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue status summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withQueue(cmd.Context(), func(access queueaccess.Access) error {
				status, err := access.Status(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, status)
				}
				out := cmd.OutOrStdout()
				if !access.Remote() {
					fmt.Fprintln(out, "Daemon not running; showing database contents")
				} else if status.Current != nil {
					fmt.Fprintf(out, "Processing %s\n", jobLabel(*status.Current))
				}
				printTable(out, "Queue is empty",
					[]string{"Status", "Count"},
					buildQueueStatusRows(status.Counts),
					[]columnAlignment{alignLeft, alignRight},
				)
				if status.LastError != "" {
					fmt.Fprintf(out, "Last error: %s\n", status.LastError)
				}
				return nil
			})
		},
	}
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "job")
			if err != nil {
				return err
			}
			return ctx.withQueue(cmd.Context(), func(access queueaccess.Access) error {
				job, err := access.Get(cmd.Context(), id)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, job)
				}
				printJob(cmd.OutOrStdout(), *job)
				return nil
			})
		},
	}
}

func newQueueCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>...",
		Short: "Remove pending jobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(cmd.Context(), func(access queueaccess.Access) error {
				return forEachJob(cmd, ids, func(id int64) (string, error) {
					if err := access.Cancel(cmd.Context(), id); err != nil {
						return "", err
					}
					return "cancelled", nil
				})
			})
		},
	}
}

func newQueueRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry <id>...",
		Short: "Return failed jobs to pending",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			return ctx.withQueue(cmd.Context(), func(access queueaccess.Access) error {
				return forEachJob(cmd, ids, func(id int64) (string, error) {
					if _, err := access.Retry(cmd.Context(), id); err != nil {
						return "", err
					}
					return "reset for retry", nil
				})
			})
		},
	}
}

// forEachJob applies fn to every id, reporting each outcome, and fails if any
// id failed.
func newQueueRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>...",
		Aliases: []string{"rm"},
		Short:   "Delete jobs from the queue database (processing jobs are kept)",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parsePositiveIDs(args)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue database: %w", err)
			}
			defer store.Close()
			return forEachJob(cmd, ids, func(id int64) (string, error) {
				removed, err := store.Remove(cmd.Context(), id)
				if err != nil || removed {
					return "removed", err
				}
				job, err := store.Get(cmd.Context(), id)
				if err != nil {
					return "", err
				}
				if job == nil {
					return "", queue.ErrNotFound
				}
				return "", fmt.Errorf("is %s", job.Status)
			})
		},
	}
}

func forEachJob(cmd *cobra.Command, ids []int64, fn func(int64) (string, error)) error {
	out := cmd.OutOrStdout()
	failed := 0
	for _, id := range ids {
		outcome, err := fn(id)
		if err != nil {
			failed++
			fmt.Fprintf(out, "Job %d %s\n", id, jobErrorLabel(err))
			continue
		}
		fmt.Fprintf(out, "Job %d %s\n", id, outcome)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs not updated", failed, len(ids))
	}
	return nil
}

func jobErrorLabel(err error) string {
	switch api.ErrorCode(err) {
	case api.CodeNotFound:
		return "not found"
	case api.CodeNotPending:
		return "is not pending"
	case api.CodeNotFailed:
		return "is not failed"
	default:
		return "error: " + err.Error()
	}
}

func newQueuePruneCommand(ctx *commandContext) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete completed jobs older than a cutoff",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			age := olderThan
			if age <= 0 {
				age = cfg.PruneAge()
			}
			if age <= 0 {
				return errors.New("pruning is disabled (set worker.prune_completed_days or pass --older-than)")
			}
			return ctx.withQueue(cmd.Context(), func(access queueaccess.Access) error {
				removed, err := access.Prune(cmd.Context(), age)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, api.PruneResponse{Removed: removed})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d completed jobs\n", removed)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Minimum age of completed jobs to delete (default from config)")
	return cmd
}

func newQueueWatchCommand(ctx *commandContext) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the queue in an interactive view",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withQueue(cmd.Context(), func(access queueaccess.Access) error {
				return tui.Run(access, interval, access.Remote())
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Refresh interval")
	return cmd
}

func newQueueHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check queue database health (schema, integrity, columns)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			health, err := ctx.databaseHealth(cmd.Context())
			if err != nil {
				return err
			}
			if ctx.JSONMode() {
				return writeJSON(cmd, health)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database path: %s\n", health.Path)
			fmt.Fprintf(out, "Schema version: %d\n", health.SchemaVersion)
			fmt.Fprintf(out, "Integrity check: %s\n", yesNo(health.IntegrityCheck))
			if len(health.MissingColumns) > 0 {
				fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(health.MissingColumns, ", "))
			} else {
				fmt.Fprintln(out, "Missing columns: none")
			}
			fmt.Fprintf(out, "Total jobs: %d\n", health.TotalJobs)
			if health.Error != "" {
				fmt.Fprintf(out, "Error: %s\n", health.Error)
			}
			return nil
		},
	}
}

func (c *commandContext) databaseHealth(ctx context.Context) (api.DatabaseHealth, error) {
	client, err := c.apiClient()
	if err != nil {
		return api.DatabaseHealth{}, err
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	resp, err := client.Health(probeCtx)
	cancel()
	if err == nil {
		return resp.Database, nil
	}
	if !apiclient.IsUnavailable(err) && !errors.Is(err, context.DeadlineExceeded) {
		return api.DatabaseHealth{}, fmt.Errorf("daemon api: %w", err)
	}
	store, err := queue.Open(c.config)
	if err != nil {
		return api.DatabaseHealth{}, fmt.Errorf("open queue database: %w", err)
	}
	defer store.Close()
	health, err := store.CheckHealth(ctx)
	if err != nil {
		return api.DatabaseHealth{}, err
	}
	return api.FromDatabaseHealth(health), nil
}
