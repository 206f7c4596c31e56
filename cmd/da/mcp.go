package main

import (
	"github.com/spf13/cobra"

	"da/internal/dependency"
	"da/internal/mcp"
	"da/internal/storage"
	"da/internal/version"
)

var mcpHistory bool

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol (MCP) server on stdio.

The server exposes the following tools:
  - analyze_package: metrics of every type of a package directory
  - type_dependencies: providers and clients of one type
  - metric_history: stored metrics of a type (with --history)

Analysis defaults (interface mode, classpath, strict resolution, workers,
precision) come from the configuration.

This command is typically invoked by MCP clients and not directly by users.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().BoolVar(&mcpHistory, "history", false, "Offer the metric_history tool backed by storage.path")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	var history *storage.DB
	if mcpHistory {
		db, err := openHistory()
		if err != nil {
			return err
		}
		defer db.Close()
		history = db
	}

	logger.Info("Starting MCP server", "version", version.Version)
	server := mcp.NewServer(version.Version, newEngine(logger), history, mcp.Defaults{
		InterfaceMode: dependency.InterfaceMode(cfg.InterfaceMode),
		Classpath:     cfg.Classpath,
		Strict:        cfg.StrictResolution,
		Workers:       cfg.Workers,
		Precision:     cfg.Precision,
	}, logger)
	return server.ServeStdio()
}
