package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"da/internal/dependency"
	"da/internal/metrics"
	"da/internal/slogutil"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"), slogutil.NewDiscardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// fixedClock returns a clock that advances one minute per call.
func fixedClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Minute)
		return now
	}
}

func snapshot(pkg string, responsibility float64) Snapshot {
	return Snapshot{
		Package:       pkg,
		SourcePath:    "/src/" + pkg,
		InterfaceMode: "faithful",
		Records: []metrics.Record{
			{Name: pkg + ".Shape", SimpleName: "Shape", Responsibility: responsibility, Workload: 0.25},
			{Name: pkg + ".Circle", SimpleName: "Circle", InDepth: 1, Instability: 0.5, Workload: 0.75},
		},
		Edges: []dependency.Edge{
			{From: pkg + ".Circle", To: pkg + ".Shape", Mechanisms: []dependency.Mechanism{dependency.ViaSupertype, dependency.ViaField}},
		},
	}
}

func TestDatabaseInitialization(t *testing.T) {
	db := setupTestDB(t)

	for _, table := range []string{"schema_version", "runs", "type_metrics", "dependency_edges"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}

	version, err := db.getSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
}

func TestReopenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := Open(path, nil)
	require.NoError(t, err)
	_, err = db.SaveRun(snapshot("shapes", 1))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path, nil)
	require.NoError(t, err)
	defer db.Close()
	runs, err := db.ListRuns("", 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.Equal(t, path, db.Path())
}

func TestOpen_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	db, err := Open(path, nil)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.SaveRun(snapshot("shapes", 1))
	assert.NoError(t, err)
}

func TestSaveRunAndRead(t *testing.T) {
	db := setupTestDB(t)
	db.now = fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	run, err := db.SaveRun(snapshot("shapes", 1))
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)
	assert.Equal(t, 2, run.TypeCount)

	got, ok, err := db.GetRun(run.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, *run, *got)

	_, ok, err = db.GetRun("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	records, err := db.RunRecords(run.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "shapes.Circle", records[0].Name)
	assert.Equal(t, metrics.Record{Name: "shapes.Shape", SimpleName: "Shape", Responsibility: 1, Workload: 0.25}, records[1])

	edges, err := db.RunEdges(run.ID)
	require.NoError(t, err)
	require.Len(t, edges, 1)
	assert.Equal(t, []dependency.Mechanism{dependency.ViaSupertype, dependency.ViaField}, edges[0].Mechanisms)
}

func TestListRuns(t *testing.T) {
	db := setupTestDB(t)
	db.now = fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	first, err := db.SaveRun(snapshot("shapes", 1))
	require.NoError(t, err)
	_, err = db.SaveRun(snapshot("other", 1))
	require.NoError(t, err)
	third, err := db.SaveRun(snapshot("shapes", 0.5))
	require.NoError(t, err)

	runs, err := db.ListRuns("shapes", 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, third.ID, runs[0].ID)
	assert.Equal(t, first.ID, runs[1].ID)

	runs, err = db.ListRuns("", 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
	assert.Equal(t, third.ID, runs[0].ID)
}

func TestTypeHistory(t *testing.T) {
	db := setupTestDB(t)
	db.now = fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))

	_, err := db.SaveRun(snapshot("shapes", 1))
	require.NoError(t, err)
	_, err = db.SaveRun(snapshot("shapes", 0.5))
	require.NoError(t, err)
	_, err = db.SaveRun(snapshot("other", 2))
	require.NoError(t, err)

	points, err := db.TypeHistory("shapes", "shapes.Shape", 0)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 0.5, points[0].Record.Responsibility)
	assert.Equal(t, 1.0, points[1].Record.Responsibility)
	assert.True(t, points[0].CreatedAt.After(points[1].CreatedAt))

	// Simple names match across packages when no qualified name does.
	points, err = db.TypeHistory("", "Shape", 0)
	require.NoError(t, err)
	assert.Len(t, points, 3)
	assert.Equal(t, "other.Shape", points[0].Record.Name)

	points, err = db.TypeHistory("", "Shape", 1)
	require.NoError(t, err)
	assert.Len(t, points, 1)

	points, err = db.TypeHistory("", "Missing", 0)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestDeleteRunsBefore(t *testing.T) {
	db := setupTestDB(t)
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	db.now = fixedClock(start)

	old, err := db.SaveRun(snapshot("shapes", 1))
	require.NoError(t, err)
	recent, err := db.SaveRun(snapshot("shapes", 1))
	require.NoError(t, err)

	deleted, err := db.DeleteRunsBefore(start.Add(30 * time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	records, err := db.RunRecords(old.ID)
	require.NoError(t, err)
	assert.Empty(t, records)
	edges, err := db.RunEdges(old.ID)
	require.NoError(t, err)
	assert.Empty(t, edges)

	records, err = db.RunRecords(recent.ID)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestMechanismsRoundTrip(t *testing.T) {
	assert.Nil(t, splitMechanisms(""))
	ms := []dependency.Mechanism{dependency.ViaInterface, dependency.ViaParameter}
	assert.Equal(t, ms, splitMechanisms(joinMechanisms(ms)))
}
