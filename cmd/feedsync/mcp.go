// ABOUTME: MCP server command for feedsync CLI
// ABOUTME: Starts stdio-based MCP server for AI agent integration

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harper/feedsync/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI agents",
	Long: `Start the Model Context Protocol (MCP) server on stdio.

This allows AI agents like Claude to browse your feeds, refresh them,
star articles, and manage subscriptions through structured tools.

Feeds are refreshed in the background as the server starts.
The server communicates via JSON-RPC on stdin/stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := openCollection(cmd.Context(), false)
		if err != nil {
			return err
		}
		// Refresh in the background so the server answers immediately.
		go func() {
			if _, err := m.RefreshAll(cmd.Context()); err != nil {
				logger.Debug("startup refresh stopped", "err", err)
			}
		}()

		server := mcp.NewServer(m, newDiscoverer(), Version)
		if err := server.ServeStdio(); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
