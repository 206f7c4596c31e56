package storage

import (
	"database/sql"
)

// Schema version tracking
const currentSchemaVersion = 1

// initializeSchema creates all tables for a new database
func (db *DB) initializeSchema() error {
	return db.WithTx(func(tx *sql.Tx) error {
		if err := createSchemaVersionTable(tx); err != nil {
			return err
		}
		if err := createRunsTable(tx); err != nil {
			return err
		}
		if err := createTypeMetricsTable(tx); err != nil {
			return err
		}
		if err := createDependencyEdgesTable(tx); err != nil {
			return err
		}
		if err := setSchemaVersion(tx, currentSchemaVersion); err != nil {
			return err
		}

		db.logger.Info("Database schema initialized", "version", currentSchemaVersion)
		return nil
	})
}

// runMigrations runs any pending schema migrations
func (db *DB) runMigrations() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version == currentSchemaVersion {
		db.logger.Debug("Database schema is up to date", "version", version)
		return nil
	}
	if version == 0 {
		// File existed but was never initialized (e.g. an empty file).
		return db.initializeSchema()
	}

	db.logger.Info("Running database migrations", "from_version", version, "to_version", currentSchemaVersion)
	return nil
}

// getSchemaVersion gets the current schema version
func (db *DB) getSchemaVersion() (int, error) {
	var tableName string
	err := db.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='schema_version'
	`).Scan(&tableName)

	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	return version, nil
}

// setSchemaVersion sets the schema version
func setSchemaVersion(tx *sql.Tx, version int) error {
	_, err := tx.Exec("DELETE FROM schema_version")
	if err != nil {
		return err
	}
	_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version)
	return err
}

// createSchemaVersionTable creates the schema_version tracking table
func createSchemaVersionTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	return err
}

// createRunsTable creates one row per analysis run.
func createRunsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			package TEXT NOT NULL,
			source_path TEXT NOT NULL,
			interface_mode TEXT NOT NULL,
			type_count INTEGER NOT NULL,
			created_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return err
	}
	_, err = tx.Exec("CREATE INDEX IF NOT EXISTS idx_runs_package ON runs(package)")
	return err
}

// createTypeMetricsTable creates the per-type metric rows of a run.
func createTypeMetricsTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS type_metrics (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			simple_name TEXT NOT NULL,
			in_depth INTEGER NOT NULL,
			instability REAL NOT NULL,
			responsibility REAL NOT NULL,
			workload REAL NOT NULL,
			PRIMARY KEY (run_id, name)
		)
	`)
	if err != nil {
		return err
	}
	_, err = tx.Exec("CREATE INDEX IF NOT EXISTS idx_type_metrics_name ON type_metrics(name)")
	return err
}

// createDependencyEdgesTable creates the consumer → provider edges of a run.
func createDependencyEdgesTable(tx *sql.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS dependency_edges (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			from_type TEXT NOT NULL,
			to_type TEXT NOT NULL,
			mechanisms TEXT NOT NULL,
			PRIMARY KEY (run_id, from_type, to_type)
		)
	`)
	return err
}
