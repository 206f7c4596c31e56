package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"da/internal/export"
)

var (
	graphURI      string
	graphUser     string
	graphPassword string
	graphDatabase string
)

var graphCmd = &cobra.Command{
	Use:   "graph <path>",
	Short: "Export the dependency graph of a package to Neo4j",
	Long: `Load the package in <path> into Neo4j: a DaPackage node, one DaType node
per type carrying its metrics, and DEPENDS_ON relationships between types
with the mechanisms that create them. Types previously exported for the
same package are replaced.

Connection settings come from the neo4j section of the config or the
DA_NEO4J_* environment variables; the flags below override them.

Examples:
  da graph build/classes/com/example/shapes
  da graph build/classes/com/example/shapes --neo4j-uri bolt://graph:7687 --neo4j-database design`,
	Args: cobra.ExactArgs(1),
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().StringVar(&graphURI, "neo4j-uri", "", "Neo4j URI (default: neo4j.uri)")
	graphCmd.Flags().StringVar(&graphUser, "neo4j-user", "", "Neo4j user (default: neo4j.user)")
	graphCmd.Flags().StringVar(&graphPassword, "neo4j-password", "", "Neo4j password (default: neo4j.password)")
	graphCmd.Flags().StringVar(&graphDatabase, "neo4j-database", "", "Neo4j database (default: server default)")
	rootCmd.AddCommand(graphCmd)
}

// exportConfig merges the graph flags over the configured connection.
func exportConfig() export.Config {
	c := export.Config{
		URI:       cfg.Neo4j.URI,
		User:      cfg.Neo4j.User,
		Password:  cfg.Neo4j.Password,
		Database:  cfg.Neo4j.Database,
		BatchSize: cfg.Neo4j.BatchSize,
	}
	if graphURI != "" {
		c.URI = graphURI
	}
	if graphUser != "" {
		c.User = graphUser
	}
	if graphPassword != "" {
		c.Password = graphPassword
	}
	if graphDatabase != "" {
		c.Database = graphDatabase
	}
	return c
}

func runGraph(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newEngine(logger).Analyze(ctx, args[0], analysisOptions())
	if err != nil {
		return err
	}

	exporter, err := export.NewExporter(ctx, exportConfig(), logger)
	if err != nil {
		return err
	}
	defer exporter.Close(ctx)

	stats, err := exporter.Export(ctx, a.Graph())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", a.Package, stats)
	return nil
}
