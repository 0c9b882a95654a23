package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"meetflow/internal/api"
	"meetflow/internal/records"
)

func newDiagramsCommand(ctx *commandContext) *cobra.Command {
	diagramsCmd := &cobra.Command{
		Use:     "diagrams",
		Aliases: []string{"diagram"},
		Short:   "Inspect customer diagram history",
	}
	diagramsCmd.AddCommand(newDiagramsVersionsCommand(ctx))
	diagramsCmd.AddCommand(newDiagramsShowCommand(ctx))
	diagramsCmd.AddCommand(newDiagramsDeleteCommand(ctx))
	return diagramsCmd
}

func newDiagramsVersionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <customer-id>",
		Short: "List a customer's diagram versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			customerID, err := parseID(args[0], "customer")
			if err != nil {
				return err
			}
			return ctx.withRecordsView(cmd.Context(), func(view recordsView) error {
				diagram, err := view.CustomerDiagram(cmd.Context(), customerID)
				if err != nil {
					return fmt.Errorf("customer %d diagram: %w", customerID, err)
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, diagram)
				}
				rows := make([][]string, 0, len(diagram.Versions))
				for _, v := range diagram.Versions {
					image := v.ImagePath
					if image == "" {
						image = "-"
					}
					rows = append(rows, []string{
						strconv.Itoa(v.Version),
						shortTime(v.CreatedAt),
						oneLine(v.Notes),
						image,
					})
				}
				printTable(cmd.OutOrStdout(), "Diagram has no versions",
					[]string{"Version", "Created", "Notes", "Image"},
					rows,
					[]columnAlignment{alignRight},
				)
				return nil
			})
		},
	}
}

func newDiagramsShowCommand(ctx *commandContext) *cobra.Command {
	var version int
	cmd := &cobra.Command{
		Use:   "show <customer-id>",
		Short: "Print the Mermaid source of a diagram version (latest by default)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			customerID, err := parseID(args[0], "customer")
			if err != nil {
				return err
			}
			return ctx.withRecordsView(cmd.Context(), func(view recordsView) error {
				diagram, err := view.CustomerDiagram(cmd.Context(), customerID)
				if err != nil {
					return fmt.Errorf("customer %d diagram: %w", customerID, err)
				}
				selected, ok := pickVersion(diagram.Versions, version)
				if !ok {
					return fmt.Errorf("customer %d has no diagram version %d", customerID, version)
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, selected)
				}
				fmt.Fprintln(cmd.OutOrStdout(), selected.Source)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&version, "version", 0, "Version number (0 for latest)")
	return cmd
}

func pickVersion(versions []api.DiagramVersion, want int) (api.DiagramVersion, bool) {
	var latest api.DiagramVersion
	found := false
	for _, v := range versions {
		if want > 0 && v.Version == want {
			return v, true
		}
		if want <= 0 && (!found || v.Version > latest.Version) {
			latest, found = v, true
		}
	}
	return latest, found && want <= 0
}

func newDiagramsDeleteCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <customer-id>",
		Short: "Delete a customer's diagram and all its versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			customerID, err := parseID(args[0], "customer")
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("deleting the diagram removes every version for customer %d; pass --yes to confirm", customerID)
			}
			return ctx.withRecords(func(store *records.Store) error {
				diagram, err := store.DiagramForCustomer(cmd.Context(), customerID)
				if err != nil {
					return err
				}
				if diagram == nil {
					return fmt.Errorf("customer %d diagram: %w", customerID, records.ErrNotFound)
				}
				if err := store.DeleteDiagram(cmd.Context(), diagram.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Diagram for customer %d deleted\n", customerID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}
