package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"da/internal/dependency"
	"da/internal/metrics"
)

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one stored analysis.
type Run struct {
	ID            string    `json:"id"`
	Package       string    `json:"package"`
	SourcePath    string    `json:"sourcePath"`
	InterfaceMode string    `json:"interfaceMode"`
	TypeCount     int       `json:"typeCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Snapshot is what SaveRun persists.
type Snapshot struct {
	Package       string
	SourcePath    string
	InterfaceMode string
	Records       []metrics.Record
	Edges         []dependency.Edge
}

// TypePoint is the metrics of one type in one run.
type TypePoint struct {
	RunID     string         `json:"runId"`
	CreatedAt time.Time      `json:"createdAt"`
	Record    metrics.Record `json:"record"`
}

// SaveRun stores a snapshot under a new run ID.
func (db *DB) SaveRun(s Snapshot) (*Run, error) {
	run := &Run{
		ID:            uuid.New().String(),
		Package:       s.Package,
		SourcePath:    s.SourcePath,
		InterfaceMode: s.InterfaceMode,
		TypeCount:     len(s.Records),
		CreatedAt:     db.now().UTC(),
	}

	err := db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO runs (id, package, source_path, interface_mode, type_count, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, run.ID, run.Package, run.SourcePath, run.InterfaceMode, run.TypeCount, run.CreatedAt.Format(timeLayout))
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}

		metricStmt, err := tx.Prepare(`
			INSERT INTO type_metrics (run_id, name, simple_name, in_depth, instability, responsibility, workload)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer metricStmt.Close()
		for _, r := range s.Records {
			if _, err := metricStmt.Exec(run.ID, r.Name, r.SimpleName, r.InDepth, r.Instability, r.Responsibility, r.Workload); err != nil {
				return fmt.Errorf("insert metrics of %s: %w", r.Name, err)
			}
		}

		edgeStmt, err := tx.Prepare(`
			INSERT INTO dependency_edges (run_id, from_type, to_type, mechanisms)
			VALUES (?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer edgeStmt.Close()
		for _, e := range s.Edges {
			if _, err := edgeStmt.Exec(run.ID, e.From, e.To, joinMechanisms(e.Mechanisms)); err != nil {
				return fmt.Errorf("insert edge %s -> %s: %w", e.From, e.To, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	db.logger.Debug("Saved run", "id", run.ID, "package", run.Package, "types", run.TypeCount, "edges", len(s.Edges))
	return run, nil
}

// ListRuns returns the newest runs first. An empty pkg lists every package;
// limit <= 0 means no limit.
func (db *DB) ListRuns(pkg string, limit int) ([]Run, error) {
	query := `SELECT id, package, source_path, interface_mode, type_count, created_at FROM runs`
	var args []interface{}
	if pkg != "" {
		query += ` WHERE package = ?`
		args = append(args, pkg)
	}
	query += ` ORDER BY seq DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var createdAt string
		if err := rows.Scan(&r.ID, &r.Package, &r.SourcePath, &r.InterfaceMode, &r.TypeCount, &createdAt); err != nil {
			return nil, err
		}
		if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("run %s: bad timestamp %q: %w", r.ID, createdAt, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns one run by ID; the bool is false when no such run exists.
func (db *DB) GetRun(id string) (*Run, bool, error) {
	var r Run
	var createdAt string
	err := db.QueryRow(`
		SELECT id, package, source_path, interface_mode, type_count, created_at
		FROM runs WHERE id = ?
	`, id).Scan(&r.ID, &r.Package, &r.SourcePath, &r.InterfaceMode, &r.TypeCount, &createdAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, false, err
	}
	return &r, true, nil
}

// RunRecords returns the metrics of a run ordered by qualified name.
func (db *DB) RunRecords(runID string) ([]metrics.Record, error) {
	rows, err := db.Query(`
		SELECT name, simple_name, in_depth, instability, responsibility, workload
		FROM type_metrics WHERE run_id = ? ORDER BY name
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []metrics.Record
	for rows.Next() {
		var r metrics.Record
		if err := rows.Scan(&r.Name, &r.SimpleName, &r.InDepth, &r.Instability, &r.Responsibility, &r.Workload); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// RunEdges returns the dependency edges of a run ordered by (from, to).
func (db *DB) RunEdges(runID string) ([]dependency.Edge, error) {
	rows, err := db.Query(`
		SELECT from_type, to_type, mechanisms
		FROM dependency_edges WHERE run_id = ? ORDER BY from_type, to_type
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []dependency.Edge
	for rows.Next() {
		var e dependency.Edge
		var mechanisms string
		if err := rows.Scan(&e.From, &e.To, &mechanisms); err != nil {
			return nil, err
		}
		e.Mechanisms = splitMechanisms(mechanisms)
		out = append(out, e)
	}
	return out, rows.Err()
}

// TypeHistory returns the metrics of one type across runs, newest first. name
// matches the qualified name, or the simple name when no qualified name matches.
func (db *DB) TypeHistory(pkg, name string, limit int) ([]TypePoint, error) {
	query := `
		SELECT r.id, r.created_at, m.name, m.simple_name, m.in_depth, m.instability, m.responsibility, m.workload
		FROM type_metrics m JOIN runs r ON r.id = m.run_id
		WHERE (m.name = ? OR (m.simple_name = ? AND NOT EXISTS (
			SELECT 1 FROM type_metrics q WHERE q.name = ?)))`
	args := []interface{}{name, name, name}
	if pkg != "" {
		query += ` AND r.package = ?`
		args = append(args, pkg)
	}
	query += ` ORDER BY r.seq DESC, m.name`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TypePoint
	for rows.Next() {
		var p TypePoint
		var createdAt string
		r := &p.Record
		if err := rows.Scan(&p.RunID, &createdAt, &r.Name, &r.SimpleName, &r.InDepth, &r.Instability, &r.Responsibility, &r.Workload); err != nil {
			return nil, err
		}
		if p.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeleteRunsBefore removes runs older than cutoff with their metrics and edges.
func (db *DB) DeleteRunsBefore(cutoff time.Time) (int64, error) {
	ts := cutoff.UTC().Format(timeLayout)
	var deleted int64
	err := db.WithTx(func(tx *sql.Tx) error {
		for _, table := range []string{"type_metrics", "dependency_edges"} {
			if _, err := tx.Exec(`DELETE FROM `+table+` WHERE run_id IN (SELECT id FROM runs WHERE created_at < ?)`, ts); err != nil {
				return err
			}
		}
		res, err := tx.Exec(`DELETE FROM runs WHERE created_at < ?`, ts)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}

func joinMechanisms(ms []dependency.Mechanism) string {
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = string(m)
	}
	return strings.Join(parts, ",")
}

func splitMechanisms(s string) []dependency.Mechanism {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]dependency.Mechanism, len(parts))
	for i, p := range parts {
		out[i] = dependency.Mechanism(p)
	}
	return out
}
