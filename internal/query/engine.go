// Package query runs the analysis pipeline shared by the CLI and the MCP
// server: load a package directory, compute its metrics and derive the views
// (report, dependencies, snapshot, graph) the front ends need.
package query

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"da/internal/dependency"
	daerrors "da/internal/errors"
	"da/internal/export"
	"da/internal/loader"
	"da/internal/metrics"
	"da/internal/report"
	"da/internal/storage"
	"da/internal/typeset"
)

// Options selects how a package is loaded and measured.
type Options struct {
	// Source parses .java files instead of compiled classes.
	Source        bool
	InterfaceMode dependency.InterfaceMode
	Classpath     []string
	Strict        bool
	Workers       int
}

type closingLoader interface {
	loader.Loader
	io.Closer
}

// Engine runs analyses.
type Engine struct {
	logger    *slog.Logger
	newLoader func(opts Options, logger *slog.Logger) (closingLoader, error)
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithLoader makes the engine use l for every analysis instead of reading the
// package from disk.
func WithLoader(l loader.Loader) EngineOption {
	return func(e *Engine) {
		e.newLoader = func(Options, *slog.Logger) (closingLoader, error) {
			return nopCloser{l}, nil
		}
	}
}

type nopCloser struct{ loader.Loader }

func (nopCloser) Close() error { return nil }

// NewEngine creates an engine that reads packages from disk.
func NewEngine(logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &Engine{logger: logger, newLoader: newDiskLoader}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newDiskLoader(opts Options, logger *slog.Logger) (closingLoader, error) {
	lopts := loader.Options{Classpath: opts.Classpath, Strict: opts.Strict}
	if opts.Source {
		l, err := loader.NewSourceLoader(lopts, logger)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
	l, err := loader.NewClassLoader(lopts, logger)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// Analysis is the outcome of one pass over a package.
type Analysis struct {
	Package       string
	SourcePath    string
	InterfaceMode dependency.InterfaceMode
	Set           *typeset.TypeSet
	Records       []metrics.Record
	Duration      time.Duration

	calc *metrics.Calculator
}

// Analyze loads the package at path and computes the metrics of its types.
func (e *Engine) Analyze(ctx context.Context, path string, opts Options) (*Analysis, error) {
	start := time.Now()

	l, err := e.newLoader(opts, e.logger)
	if err != nil {
		if errors.Is(err, loader.ErrNoCGO) {
			return nil, daerrors.New(daerrors.ConfigInvalid, daerrors.StageLoad, "java source loading is unavailable in this build", err)
		}
		return nil, stageError(daerrors.StageLoad, "cannot create loader", err)
	}
	defer l.Close()

	e.logger.Debug("Loading package", "path", path, "source", opts.Source, "classpath", len(opts.Classpath))
	set, err := l.Load(ctx, path)
	if err != nil {
		return nil, stageError(daerrors.StageLoad, "cannot load "+path, err)
	}

	calc, err := metrics.NewCalculator(set, metrics.Options{InterfaceMode: opts.InterfaceMode, Workers: opts.Workers}, e.logger)
	if err != nil {
		return nil, err
	}
	records, err := calc.Compute(ctx)
	if err != nil {
		return nil, stageError(daerrors.StageCompute, "cannot compute metrics", err)
	}

	a := &Analysis{
		Package:       set.Package(),
		SourcePath:    absPath(path),
		InterfaceMode: calc.Evaluator().Mode(),
		Set:           set,
		Records:       records,
		Duration:      time.Since(start),
		calc:          calc,
	}
	e.logger.Info("Analyzed package", "package", a.Package, "types", len(records), "duration", a.Duration)
	return a, nil
}

// stageError keeps typed errors as they are, reports cancellation as an
// interruption rather than a failure of the analyzer, and wraps everything
// else as INTERNAL_ERROR.
func stageError(stage daerrors.Stage, msg string, err error) error {
	if _, ok := daerrors.As(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s interrupted: %w", stage, err)
	}
	return daerrors.New(daerrors.InternalError, stage, msg, err)
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// Report returns the records as a renderable report.
func (a *Analysis) Report() *report.Report {
	return report.New(a.Package, string(a.InterfaceMode), a.Records)
}

// Edges returns the dependency relation of the package.
func (a *Analysis) Edges() []dependency.Edge {
	return a.calc.Evaluator().Edges()
}

// Snapshot returns the analysis in the form the history store keeps.
func (a *Analysis) Snapshot() storage.Snapshot {
	return storage.Snapshot{
		Package:       a.Package,
		SourcePath:    a.SourcePath,
		InterfaceMode: string(a.InterfaceMode),
		Records:       a.Records,
		Edges:         a.Edges(),
	}
}

// Graph returns the analysis in the form the graph exporter loads.
func (a *Analysis) Graph() export.Graph {
	return export.Graph{
		Package:       a.Package,
		InterfaceMode: string(a.InterfaceMode),
		Records:       a.Records,
		Edges:         a.Edges(),
	}
}

// Dependency is one neighbour of a type.
type Dependency struct {
	Name       string                 `json:"name"`
	SimpleName string                 `json:"simpleName"`
	Mechanisms []dependency.Mechanism `json:"mechanisms,omitempty"`
	// References is what a client contributes to the type's responsibility.
	References []string `json:"references,omitempty"`
}

// TypeDependencies lists the providers and clients of one type.
type TypeDependencies struct {
	Type      string         `json:"type"`
	Metrics   metrics.Record `json:"metrics"`
	Providers []Dependency   `json:"providers"`
	Clients   []Dependency   `json:"clients"`
}

// Dependencies looks name up by qualified or unambiguous simple name and
// returns its neighbours.
func (a *Analysis) Dependencies(name string) (*TypeDependencies, error) {
	c, ok := a.Set.Find(name)
	if !ok {
		return nil, daerrors.New(daerrors.ResolutionError, daerrors.StageCompute,
			fmt.Sprintf("no type %q in package %s (or the simple name is ambiguous)", name, a.Package), nil)
	}
	eval := a.calc.Evaluator()

	out := &TypeDependencies{
		Type:      c.Name,
		Metrics:   a.calc.Record(c),
		Providers: []Dependency{},
		Clients:   []Dependency{},
	}
	for _, p := range eval.Providers(c) {
		out.Providers = append(out.Providers, Dependency{
			Name:       p.Name,
			SimpleName: p.SimpleName,
			Mechanisms: dependency.Mechanisms(c, p),
		})
	}
	for _, cls := range eval.Clients(c) {
		out.Clients = append(out.Clients, Dependency{
			Name:       cls.Name,
			SimpleName: cls.SimpleName,
			Mechanisms: dependency.Mechanisms(cls, c),
			References: eval.ClientReferences(c, cls),
		})
	}
	return out, nil
}
