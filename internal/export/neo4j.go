// Package export writes an analyzed package into Neo4j: one DaPackage node,
// a DaType node per type carrying its metrics, and DEPENDS_ON relationships
// between types labelled with the mechanisms that create them.
package export

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"da/internal/dependency"
	daerrors "da/internal/errors"
	"da/internal/metrics"
)

// DefaultBatchSize bounds the rows sent in one UNWIND statement.
const DefaultBatchSize = 500

// Graph is the content of one export.
type Graph struct {
	Package       string
	InterfaceMode string
	Records       []metrics.Record
	Edges         []dependency.Edge
}

// Config holds the connection settings.
type Config struct {
	URI      string
	User     string
	Password string
	// Database selects a database; empty uses the server default.
	Database  string
	BatchSize int
}

// Stats summarizes an export.
type Stats struct {
	Types int `json:"types"`
	Edges int `json:"edges"`
}

type runFunc func(ctx context.Context, cypher string, params map[string]any) error

// Exporter loads graphs into Neo4j with batch UNWIND queries.
type Exporter struct {
	driver    neo4j.DriverWithContext
	run       runFunc
	batchSize int
	logger    *slog.Logger
}

var indexQueries = []string{
	"CREATE INDEX da_type_name IF NOT EXISTS FOR (n:DaType) ON (n.name)",
	"CREATE INDEX da_type_package IF NOT EXISTS FOR (n:DaType) ON (n.package)",
	"CREATE INDEX da_package_name IF NOT EXISTS FOR (n:DaPackage) ON (n.name)",
}

const (
	cleanQuery = `MATCH (n:DaType {package: $package}) DETACH DELETE n`

	packageQuery = `MERGE (p:DaPackage {name: $package})
		 SET p.interface_mode = $mode, p.type_count = $count`

	typeQuery = `UNWIND $batch AS row
		 MERGE (n:DaType {name: row.name})
		 SET n.simple_name = row.simple_name, n.package = row.package,
		     n.in_depth = row.in_depth, n.instability = row.instability,
		     n.responsibility = row.responsibility, n.workload = row.workload
		 WITH n, row
		 MATCH (p:DaPackage {name: row.package})
		 MERGE (n)-[:IN_PACKAGE]->(p)`

	edgeQuery = `UNWIND $batch AS row
		 MATCH (a:DaType {name: row.from})
		 MATCH (b:DaType {name: row.to})
		 MERGE (a)-[r:DEPENDS_ON]->(b)
		 SET r.mechanisms = row.mechanisms`
)

// NewExporter connects to Neo4j and verifies connectivity.
func NewExporter(ctx context.Context, cfg Config, logger *slog.Logger) (*Exporter, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, daerrors.New(daerrors.ExportError, daerrors.StageExport, "cannot create neo4j driver for "+cfg.URI, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, daerrors.New(daerrors.ExportError, daerrors.StageExport, "cannot reach neo4j at "+cfg.URI, err)
	}

	var opts []neo4j.ExecuteQueryConfigurationOption
	if cfg.Database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(cfg.Database))
	}
	run := func(ctx context.Context, cypher string, params map[string]any) error {
		_, err := neo4j.ExecuteQuery(ctx, driver, cypher, params, neo4j.EagerResultTransformer, opts...)
		return err
	}
	return newExporter(driver, run, cfg.BatchSize, logger), nil
}

func newExporter(driver neo4j.DriverWithContext, run runFunc, batchSize int, logger *slog.Logger) *Exporter {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{driver: driver, run: run, batchSize: batchSize, logger: logger}
}

// Close releases the driver.
func (e *Exporter) Close(ctx context.Context) error {
	if e.driver == nil {
		return nil
	}
	return e.driver.Close(ctx)
}

// CreateIndexes ensures the lookup indexes exist.
func (e *Exporter) CreateIndexes(ctx context.Context) error {
	for _, q := range indexQueries {
		if err := e.run(ctx, q, nil); err != nil {
			return exportError("create indexes", err)
		}
	}
	return nil
}

// Export replaces the package's types in the graph with g.
func (e *Exporter) Export(ctx context.Context, g Graph) (Stats, error) {
	if err := e.CreateIndexes(ctx); err != nil {
		return Stats{}, err
	}

	e.logger.Debug("Cleaning package types", "package", g.Package)
	if err := e.run(ctx, cleanQuery, map[string]any{"package": g.Package}); err != nil {
		return Stats{}, exportError("clean package "+g.Package, err)
	}

	params := map[string]any{"package": g.Package, "mode": g.InterfaceMode, "count": len(g.Records)}
	if err := e.run(ctx, packageQuery, params); err != nil {
		return Stats{}, exportError("write package "+g.Package, err)
	}

	e.logger.Info("Loading types", "package", g.Package, "count", len(g.Records))
	for _, batch := range chunk(typeRows(g.Package, g.Records), e.batchSize) {
		if err := e.run(ctx, typeQuery, map[string]any{"batch": batch}); err != nil {
			return Stats{}, exportError("write types", err)
		}
	}

	e.logger.Info("Loading dependencies", "package", g.Package, "count", len(g.Edges))
	for _, batch := range chunk(edgeRows(g.Edges), e.batchSize) {
		if err := e.run(ctx, edgeQuery, map[string]any{"batch": batch}); err != nil {
			return Stats{}, exportError("write dependencies", err)
		}
	}

	return Stats{Types: len(g.Records), Edges: len(g.Edges)}, nil
}

func exportError(what string, err error) error {
	return daerrors.New(daerrors.ExportError, daerrors.StageExport, "cannot "+what, err)
}

func typeRows(pkg string, records []metrics.Record) []map[string]any {
	rows := make([]map[string]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, map[string]any{
			"name":           r.Name,
			"simple_name":    r.SimpleName,
			"package":        pkg,
			"in_depth":       int64(r.InDepth),
			"instability":    r.Instability,
			"responsibility": r.Responsibility,
			"workload":       r.Workload,
		})
	}
	return rows
}

func edgeRows(edges []dependency.Edge) []map[string]any {
	rows := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		mechanisms := make([]string, len(e.Mechanisms))
		for i, m := range e.Mechanisms {
			mechanisms[i] = string(m)
		}
		rows = append(rows, map[string]any{
			"from":       e.From,
			"to":         e.To,
			"mechanisms": mechanisms,
		})
	}
	return rows
}

func chunk(rows []map[string]any, size int) [][]map[string]any {
	var out [][]map[string]any
	for len(rows) > 0 {
		n := size
		if n > len(rows) {
			n = len(rows)
		}
		out = append(out, rows[:n])
		rows = rows[n:]
	}
	return out
}

// String renders stats for the CLI.
func (s Stats) String() string {
	return fmt.Sprintf("exported %d types and %d dependencies", s.Types, s.Edges)
}
