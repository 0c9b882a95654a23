package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"meetflow/internal/api"
	"meetflow/internal/pipeline"
	"meetflow/internal/records"
)

func newSessionsCommand(ctx *commandContext) *cobra.Command {
	sessionsCmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "Inspect session notes and skip placeholders",
	}
	sessionsCmd.AddCommand(newSessionsSkipCommand(ctx))
	sessionsCmd.AddCommand(newSessionsUnskipCommand(ctx))
	sessionsCmd.AddCommand(newSessionsShowCommand(ctx))
	sessionsCmd.AddCommand(newSessionsListCommand(ctx))
	return sessionsCmd
}

func newSessionsSkipCommand(ctx *commandContext) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "skip <source-id>",
		Short: "Prevent a session from being processed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRecords(func(store *records.Store) error {
				_, err := store.SkipSession(cmd.Context(), args[0], title)
				if errors.Is(err, records.ErrSessionExists) {
					return fmt.Errorf("%s has already been processed; delete its customer data instead", args[0])
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session %s will be skipped\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Title to remember for the session")
	return cmd
}

func newSessionsUnskipCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "unskip <source-id>",
		Short: "Remove a skip placeholder so the session can be queued",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRecords(func(store *records.Store) error {
				removed, err := store.UnskipSession(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Session %s was not skipped\n", args[0])
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Session %s can be queued again\n", args[0])
				return nil
			})
		},
	}
}

type sessionView struct {
	SourceID    string                `json:"sourceId"`
	Title       string                `json:"title,omitempty"`
	CustomerID  *int64                `json:"customerId,omitempty"`
	CallType    string                `json:"callType,omitempty"`
	Summary     string                `json:"summary,omitempty"`
	Skipped     bool                  `json:"skipped"`
	SessionDate string                `json:"sessionDate,omitempty"`
	ActionItems []pipeline.ActionItem `json:"actionItems,omitempty"`
	Components  []string              `json:"components,omitempty"`
	Gaps        []string              `json:"gaps,omitempty"`
	UpdatedAt   string                `json:"updatedAt"`
}

func newSessionsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <source-id>",
		Short: "Show what the pipeline recorded for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRecords(func(store *records.Store) error {
				note, err := store.GetSessionNote(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if note == nil {
					return fmt.Errorf("session %s: %w", args[0], records.ErrNotFound)
				}
				view := newSessionView(note)
				if ctx.JSONMode() {
					return writeJSON(cmd, view)
				}
				printSession(cmd.OutOrStdout(), view)
				return nil
			})
		},
	}
}

func newSessionsListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list <customer-id>",
		Short: "List processed sessions for a customer, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			customerID, err := parseID(args[0], "customer")
			if err != nil {
				return err
			}
			return ctx.withRecords(func(store *records.Store) error {
				customer, err := store.GetCustomer(cmd.Context(), customerID)
				if err != nil {
					return err
				}
				if customer == nil {
					return fmt.Errorf("customer %d: %w", customerID, records.ErrNotFound)
				}
				notes, err := store.ListSessionNotes(cmd.Context(), customerID)
				if err != nil {
					return err
				}
				views := make([]sessionView, 0, len(notes))
				for _, note := range notes {
					views = append(views, newSessionView(note))
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, views)
				}
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					date := v.SessionDate
					if date == "" {
						date = shortTime(v.UpdatedAt)
					}
					rows = append(rows, []string{date, v.CallType, strconv.Itoa(len(v.ActionItems)), v.SourceID, oneLine(v.Title)})
				}
				printTable(cmd.OutOrStdout(), fmt.Sprintf("No sessions recorded for customer %d", customerID),
					[]string{"Date", "Type", "Actions", "Source", "Title"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				)
				return nil
			})
		},
	}
}

func newSessionView(note *records.SessionNote) sessionView {
	view := sessionView{
		SourceID:   note.SourceID,
		Title:      note.Title,
		CustomerID: note.CustomerID,
		CallType:   note.CallType,
		Summary:    note.Summary,
		Skipped:    note.Skipped,
		UpdatedAt:  api.FormatTime(note.UpdatedAt),
	}
	if note.SessionDate != nil {
		view.SessionDate = note.SessionDate.Format("2006-01-02")
	}
	decodeList(note.ActionItemsJSON, &view.ActionItems)
	decodeList(note.ComponentsJSON, &view.Components)
	decodeList(note.GapsJSON, &view.Gaps)
	return view
}

// decodeList leaves dst empty when the stored JSON is blank or malformed.
func decodeList[T any](raw string, dst *[]T) {
	if raw == "" {
		return
	}
	_ = json.Unmarshal([]byte(raw), dst)
}

func printSession(out io.Writer, v sessionView) {
	fmt.Fprintf(out, "Session %s\n", v.SourceID)
	if v.Skipped {
		fmt.Fprintln(out, "  Skipped: yes")
	}
	if v.Title != "" {
		fmt.Fprintf(out, "  Title:     %s\n", v.Title)
	}
	if v.SessionDate != "" {
		fmt.Fprintf(out, "  Date:      %s\n", v.SessionDate)
	}
	if v.CustomerID != nil {
		fmt.Fprintf(out, "  Customer:  %d\n", *v.CustomerID)
	}
	if v.CallType != "" {
		fmt.Fprintf(out, "  Call type: %s\n", v.CallType)
	}
	if v.Summary != "" {
		fmt.Fprintf(out, "\n%s\n", v.Summary)
	}
	if len(v.ActionItems) > 0 {
		fmt.Fprintln(out, "\nAction items:")
		for _, item := range v.ActionItems {
			owner := item.Owner
			if owner == "" {
				owner = "unassigned"
			}
			fmt.Fprintf(out, "  - %s: %s\n", owner, item.Text)
		}
	}
	printList(out, "Components", v.Components)
	printList(out, "Gaps", v.Gaps)
}

func printList(out io.Writer, heading string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s:\n", heading)
	for _, v := range values {
		fmt.Fprintf(out, "  - %s\n", v)
	}
}
