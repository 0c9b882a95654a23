package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"meetflow/internal/api"
	"meetflow/internal/records"
)

func newCustomersCommand(ctx *commandContext) *cobra.Command {
	customersCmd := &cobra.Command{
		Use:     "customers",
		Aliases: []string{"customer"},
		Short:   "List and curate customers",
	}
	customersCmd.AddCommand(newCustomersListCommand(ctx))
	customersCmd.AddCommand(newCustomersSearchCommand(ctx))
	customersCmd.AddCommand(newCustomersRenameCommand(ctx))
	customersCmd.AddCommand(newCustomersMergeCommand(ctx))
	customersCmd.AddCommand(newCustomersDeleteCommand(ctx))
	return customersCmd
}

func newCustomersListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List customers with action and diagram counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withRecordsView(cmd.Context(), func(view recordsView) error {
				customers, err := view.Customers(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					return writeJSON(cmd, customers)
				}
				rows := make([][]string, 0, len(customers))
				for _, c := range customers {
					name := c.Name
					if c.Unknown {
						name += " (unknown)"
					}
					rows = append(rows, []string{
						strconv.FormatInt(c.ID, 10),
						name,
						strconv.Itoa(c.OpenActions),
						strconv.Itoa(c.TotalActions),
						strconv.Itoa(c.Versions),
					})
				}
				printTable(cmd.OutOrStdout(), "No customers yet",
					[]string{"ID", "Name", "Open", "Actions", "Diagram Versions"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight},
				)
				return nil
			})
		},
	}
}

func newCustomersSearchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "search <text>",
		Short: "Find customers whose name contains text (case-insensitive)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return ctx.withRecords(func(store *records.Store) error {
				found, err := store.SearchCustomers(cmd.Context(), query)
				if err != nil {
					return err
				}
				if ctx.JSONMode() {
					out := make([]api.Customer, 0, len(found))
					for _, c := range found {
						out = append(out, api.Customer{ID: c.ID, Name: c.Name, Unknown: c.IsUnknown})
					}
					return writeJSON(cmd, out)
				}
				rows := make([][]string, 0, len(found))
				for _, c := range found {
					rows = append(rows, []string{strconv.FormatInt(c.ID, 10), c.Name, yesNo(c.IsUnknown)})
				}
				printTable(cmd.OutOrStdout(), fmt.Sprintf("No customers match %q", query),
					[]string{"ID", "Name", "Unknown"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft},
				)
				return nil
			})
		},
	}
}

func newCustomersRenameCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a customer (promotes unknown customers)",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "customer")
			if err != nil {
				return err
			}
			name := strings.Join(args[1:], " ")
			return ctx.withRecords(func(store *records.Store) error {
				if err := store.RenameCustomer(cmd.Context(), id, name); err != nil {
					return fmt.Errorf("rename customer %d: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Customer %d renamed to %s\n", id, strings.TrimSpace(name))
				return nil
			})
		},
	}
}

func newCustomersMergeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <source-id> <target-id>",
		Short: "Fold one customer into another",
		Long: "Moves the source customer's action items, session notes and diagram history " +
			"onto the target and deletes the source.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sourceID, err := parseID(args[0], "customer")
			if err != nil {
				return err
			}
			targetID, err := parseID(args[1], "customer")
			if err != nil {
				return err
			}
			return ctx.withRecords(func(store *records.Store) error {
				if err := store.MergeCustomers(cmd.Context(), sourceID, targetID); err != nil {
					return fmt.Errorf("merge customer %d into %d: %w", sourceID, targetID, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Customer %d merged into %d\n", sourceID, targetID)
				return nil
			})
		},
	}
}

func newCustomersDeleteCommand(ctx *commandContext) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a customer with its diagram and action items",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "customer")
			if err != nil {
				return err
			}
			if !yes {
				return fmt.Errorf("deleting customer %d removes its diagram history and action items; pass --yes to confirm", id)
			}
			return ctx.withRecords(func(store *records.Store) error {
				if err := store.DeleteCustomer(cmd.Context(), id); err != nil {
					return fmt.Errorf("delete customer %d: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Customer %d deleted\n", id)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}
