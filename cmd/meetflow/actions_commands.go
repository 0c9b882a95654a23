package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"meetflow/internal/api"
	"meetflow/internal/records"
)

func newActionsCommand(ctx *commandContext) *cobra.Command {
	actionsCmd := &cobra.Command{
		Use:     "actions",
		Aliases: []string{"action"},
		Short:   "Track follow-up action items",
	}
	actionsCmd.AddCommand(newActionsListCommand(ctx))
	actionsCmd.AddCommand(newActionsToggleCommand(ctx))
	actionsCmd.AddCommand(newActionsMoveCommand(ctx))
	actionsCmd.AddCommand(newActionsEditCommand(ctx))
	actionsCmd.AddCommand(newActionsCopyCommand(ctx))
	return actionsCmd
}

// actionFilter selects action items for list and copy.
type actionFilter struct {
	customerID int64
	owner      string
	all        bool
}

func (f *actionFilter) bind(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.customerID, "customer", 0, "Only this customer's items")
	cmd.Flags().StringVar(&f.owner, "owner", "", "Only items for this owner (case-insensitive)")
	cmd.Flags().BoolVarP(&f.all, "all", "a", false, "Include completed items (with --customer)")
}

func (f actionFilter) fetch(ctx context.Context, view recordsView) ([]api.ActionItem, error) {
	if f.customerID > 0 {
		items, err := view.CustomerActions(ctx, f.customerID, f.all)
		if err != nil {
			return nil, fmt.Errorf("customer %d actions: %w", f.customerID, err)
		}
		if owner := strings.TrimSpace(f.owner); owner != "" {
			filtered := items[:0]
			for _, item := range items {
				if strings.EqualFold(item.Owner, owner) {
					filtered = append(filtered, item)
				}
			}
			items = filtered
		}
		return items, nil
	}
	return view.OpenActions(ctx, f.owner)
}

func newActionsListCommand(ctx *commandContext) *cobra.Command {
	var filter actionFilter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List action items",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withRecordsView(cmd.Context(), func(view recordsView) error {
				items, err := filter.fetch(cmd.Context(), view)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, items)
				}
				rows := make([][]string, 0, len(items))
				for _, item := range items {
					done := " "
					if item.Completed {
						done = "✓"
					}
					rows = append(rows, []string{
						strconv.FormatInt(item.ID, 10),
						done,
						strconv.FormatInt(item.CustomerID, 10),
						item.Owner,
						oneLine(item.Text),
						item.SessionDate,
					})
				}
				printTable(cmd.OutOrStdout(), "No action items",
					[]string{"ID", "Done", "Customer", "Owner", "Item", "Session"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight},
				)
				return nil
			})
		},
	}
	filter.bind(cmd)
	return cmd
}

func newActionsToggleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Mark an action item done, or reopen it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "action item")
			if err != nil {
				return err
			}
			return ctx.withRecordsView(cmd.Context(), func(view recordsView) error {
				item, err := view.ToggleAction(cmd.Context(), id)
				if err != nil {
					return fmt.Errorf("toggle action item %d: %w", id, err)
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, item)
				}
				state := "reopened"
				if item.Completed {
					state = "completed"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Action item %d %s\n", id, state)
				return nil
			})
		},
	}
}

func newActionsMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <customer-id>",
		Short: "Reassign an action item to another customer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "action item")
			if err != nil {
				return err
			}
			customerID, err := parseID(args[1], "customer")
			if err != nil {
				return err
			}
			return ctx.withRecords(func(store *records.Store) error {
				if err := store.MoveActionItem(cmd.Context(), id, customerID); err != nil {
					return fmt.Errorf("move action item %d: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Action item %d moved to customer %d\n", id, customerID)
				return nil
			})
		},
	}
}

func newActionsEditCommand(ctx *commandContext) *cobra.Command {
	var owner, text, date string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change an action item's owner, text or session date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "action item")
			if err != nil {
				return err
			}
			var edit records.ActionItemEdit
			flags := cmd.Flags()
			if flags.Changed("owner") {
				edit.Owner = &owner
			}
			if flags.Changed("text") {
				edit.Text = &text
			}
			if flags.Changed("date") {
				parsed, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), time.Local)
				if err != nil {
					return fmt.Errorf("invalid --date %q (want YYYY-MM-DD)", date)
				}
				edit.SessionDate = &parsed
			}
			if edit.Owner == nil && edit.Text == nil && edit.SessionDate == nil {
				return fmt.Errorf("nothing to change; pass --owner, --text or --date")
			}
			return ctx.withRecords(func(store *records.Store) error {
				item, err := store.EditActionItem(cmd.Context(), id, edit)
				if err != nil {
					return fmt.Errorf("edit action item %d: %w", id, err)
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, api.FromActionItem(item))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Action item %d updated\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "New owner (empty clears it)")
	cmd.Flags().StringVar(&text, "text", "", "New item text")
	cmd.Flags().StringVar(&date, "date", "", "Session date, YYYY-MM-DD")
	return cmd
}

func newActionsCopyCommand(ctx *commandContext) *cobra.Command {
	var filter actionFilter
	var printOnly bool
	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy action items to the clipboard as a Markdown checklist",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withRecordsView(cmd.Context(), func(view recordsView) error {
				items, err := filter.fetch(cmd.Context(), view)
				if err != nil {
					return err
				}
				if len(items) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No action items")
					return nil
				}
				checklist := formatChecklist(items)
				if printOnly {
					fmt.Fprint(cmd.OutOrStdout(), checklist)
					return nil
				}
				if err := clipboard.WriteAll(checklist); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not copy to clipboard: %v\n", err)
					fmt.Fprint(cmd.OutOrStdout(), checklist)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Copied %d action items to clipboard\n", len(items))
				return nil
			})
		},
	}
	filter.bind(cmd)
	cmd.Flags().BoolVar(&printOnly, "print", false, "Print instead of copying")
	return cmd
}

func formatChecklist(items []api.ActionItem) string {
	var b strings.Builder
	writeChecklist(&b, items)
	return b.String()
}

func writeChecklist(w io.Writer, items []api.ActionItem) {
	for _, item := range items {
		box := "[ ]"
		if item.Completed {
			box = "[x]"
		}
		line := oneLine(item.Text)
		if item.Owner != "" {
			line = fmt.Sprintf("**%s**: %s", item.Owner, line)
		}
		if item.SessionTitle != "" {
			line = fmt.Sprintf("%s _(%s)_", line, item.SessionTitle)
		}
		fmt.Fprintf(w, "- %s %s\n", box, line)
	}
}
