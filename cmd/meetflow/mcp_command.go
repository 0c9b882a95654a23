package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"meetflow/internal/api"
	"meetflow/internal/mcpserver"
	"meetflow/internal/queueaccess"
	"meetflow/internal/records"
)

func newMCPCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve queue and action item tools over MCP (stdio)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.withQueue(cmd.Context(), func(access queueaccess.Access) error {
				if access.Remote() {
					client, err := ctx.apiClient()
					if err != nil {
						return err
					}
					return mcpserver.New(access, client, version).ServeStdio()
				}
				return ctx.withRecords(func(store *records.Store) error {
					if err := mcpserver.New(access, api.NewRecordsService(store), version).ServeStdio(); err != nil {
						return fmt.Errorf("mcp server: %w", err)
					}
					return nil
				})
			})
		},
	}
}
