package query

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"da/internal/dependency"
	daerrors "da/internal/errors"
	"da/internal/loader"
	"da/internal/slogutil"
	"da/internal/typeset"
)

type staticLoader struct {
	set  *typeset.TypeSet
	err  error
	path string
}

func (l *staticLoader) Load(ctx context.Context, dir string) (*typeset.TypeSet, error) {
	l.path = dir
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return l.set, l.err
}

func shapes() *typeset.TypeSet {
	return typeset.MustNew("shapes",
		&typeset.TypeDescriptor{
			Name: "shapes.Shape", SimpleName: "Shape",
			Methods: []typeset.MethodSignature{{Name: "area"}},
		},
		&typeset.TypeDescriptor{
			Name: "shapes.Circle", SimpleName: "Circle", Supertype: "shapes.Shape",
			Fields: []string{"shapes.Point", "double"},
			Methods: []typeset.MethodSignature{
				{Name: "area"},
				{Name: "scale", Params: []string{"double"}},
			},
		},
		&typeset.TypeDescriptor{Name: "shapes.Point", SimpleName: "Point"},
	)
}

func newTestEngine(l *staticLoader) *Engine {
	return NewEngine(slogutil.NewDiscardLogger(), WithLoader(l))
}

func TestAnalyze(t *testing.T) {
	l := &staticLoader{set: shapes()}
	a, err := newTestEngine(l).Analyze(context.Background(), "build/shapes", Options{})
	require.NoError(t, err)

	assert.Equal(t, "build/shapes", l.path)
	assert.Equal(t, "shapes", a.Package)
	assert.Equal(t, dependency.InterfacesFaithful, a.InterfaceMode)
	assert.True(t, filepath.IsAbs(a.SourcePath))
	require.Len(t, a.Records, 3)

	circle := a.Records[0]
	assert.Equal(t, "shapes.Circle", circle.Name)
	assert.Equal(t, 1, circle.InDepth)
	assert.InDelta(t, 2.0/3.0, circle.Instability, 1e-9)
	assert.InDelta(t, 2.0/3.0, circle.Workload, 1e-9)

	shape := a.Records[2]
	assert.InDelta(t, 1.0/3.0, shape.Responsibility, 1e-9)

	rep := a.Report()
	assert.Equal(t, "faithful", rep.InterfaceMode)
	assert.Len(t, rep.Types, 3)
}

func TestAnalyze_Workers(t *testing.T) {
	seq, err := newTestEngine(&staticLoader{set: shapes()}).Analyze(context.Background(), "shapes", Options{})
	require.NoError(t, err)
	par, err := newTestEngine(&staticLoader{set: shapes()}).Analyze(context.Background(), "shapes", Options{Workers: 4})
	require.NoError(t, err)
	assert.Equal(t, seq.Records, par.Records)
}

func TestAnalyze_Errors(t *testing.T) {
	loadErr := daerrors.New(daerrors.IOError, daerrors.StageLoad, "missing", nil)

	tests := []struct {
		name  string
		l     *staticLoader
		code  daerrors.ErrorCode
		stage daerrors.Stage
	}{
		{"typed load error", &staticLoader{err: loadErr}, daerrors.IOError, daerrors.StageLoad},
		{"empty package", &staticLoader{set: typeset.MustNew("empty")}, daerrors.EmptyProject, daerrors.StageCompute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestEngine(tt.l).Analyze(context.Background(), "x", Options{})
			require.Error(t, err)
			de, ok := daerrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.code, de.Code)
			assert.Equal(t, tt.stage, de.Stage)
		})
	}
}

func TestAnalyze_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(&staticLoader{set: shapes()}).Analyze(ctx, "shapes", Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualError(t, err, "load interrupted: context canceled")
	_, typed := daerrors.As(err)
	assert.False(t, typed, "cancellation is not an analyzer failure")
}

func TestStageError(t *testing.T) {
	typed := daerrors.New(daerrors.IOError, daerrors.StageLoad, "missing", nil)
	assert.Same(t, typed, stageError(daerrors.StageCompute, "x", typed))

	err := stageError(daerrors.StageCompute, "cannot compute metrics", context.DeadlineExceeded)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, daerrors.IsCode(err, daerrors.InternalError))

	err = stageError(daerrors.StageCompute, "cannot compute metrics", assert.AnError)
	assert.True(t, daerrors.IsCode(err, daerrors.InternalError))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestAnalysis_Dependencies(t *testing.T) {
	a, err := newTestEngine(&staticLoader{set: shapes()}).Analyze(context.Background(), "shapes", Options{})
	require.NoError(t, err)

	deps, err := a.Dependencies("Circle")
	require.NoError(t, err)
	assert.Equal(t, "shapes.Circle", deps.Type)
	require.Len(t, deps.Providers, 2)
	assert.Equal(t, "shapes.Point", deps.Providers[0].Name)
	assert.Equal(t, []dependency.Mechanism{dependency.ViaField}, deps.Providers[0].Mechanisms)
	assert.Equal(t, []dependency.Mechanism{dependency.ViaSupertype}, deps.Providers[1].Mechanisms)
	assert.Empty(t, deps.Clients)

	deps, err = a.Dependencies("shapes.Shape")
	require.NoError(t, err)
	assert.Empty(t, deps.Providers)
	require.Len(t, deps.Clients, 1)
	assert.Equal(t, "shapes.Circle", deps.Clients[0].Name)
	assert.Equal(t, []string{typeset.RootType}, deps.Clients[0].References)

	_, err = a.Dependencies("Square")
	assert.True(t, daerrors.IsCode(err, daerrors.ResolutionError))
}

func TestAnalysis_SnapshotAndGraph(t *testing.T) {
	a, err := newTestEngine(&staticLoader{set: shapes()}).Analyze(context.Background(), "shapes", Options{
		InterfaceMode: dependency.InterfacesSymmetric,
	})
	require.NoError(t, err)

	snap := a.Snapshot()
	assert.Equal(t, "shapes", snap.Package)
	assert.Equal(t, "symmetric", snap.InterfaceMode)
	assert.Len(t, snap.Records, 3)
	require.Len(t, snap.Edges, 2)
	assert.Equal(t, "shapes.Circle", snap.Edges[0].From)

	g := a.Graph()
	assert.Equal(t, snap.Edges, g.Edges)
	assert.Equal(t, snap.Records, g.Records)
}

func TestNewEngine_SourceUnavailable(t *testing.T) {
	e := NewEngine(nil)
	e.newLoader = func(Options, *slog.Logger) (closingLoader, error) {
		return nil, loader.ErrNoCGO
	}
	_, err := e.Analyze(context.Background(), "shapes", Options{Source: true})
	assert.True(t, daerrors.IsCode(err, daerrors.ConfigInvalid))
}
