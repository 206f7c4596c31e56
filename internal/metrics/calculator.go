// Package metrics computes the per-type design metrics of a TypeSet:
//
//   - inDepth: number of supertypes above the type, the root excluded
//   - instability: providers / N
//   - responsibility: summed client references / N
//   - workload: declared methods / declared methods of the whole set
package metrics

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"da/internal/dependency"
	daerrors "da/internal/errors"
	"da/internal/typeset"
)

// Record is the metric tuple of one type.
type Record struct {
	Name           string  `json:"name" yaml:"name" toml:"name"`
	SimpleName     string  `json:"simpleName" yaml:"simpleName" toml:"simple_name"`
	InDepth        int     `json:"inDepth" yaml:"inDepth" toml:"in_depth"`
	Instability    float64 `json:"instability" yaml:"instability" toml:"instability"`
	Responsibility float64 `json:"responsibility" yaml:"responsibility" toml:"responsibility"`
	Workload       float64 `json:"workload" yaml:"workload" toml:"workload"`
}

// Options configures a Calculator.
type Options struct {
	InterfaceMode dependency.InterfaceMode
	// Workers bounds parallel record computation; values below 2 compute sequentially.
	Workers int
}

// Calculator computes metrics over one TypeSet. It holds no mutable state and is
// safe for concurrent use.
type Calculator struct {
	set          *typeset.TypeSet
	eval         *dependency.Evaluator
	totalMethods int
	workers      int
	logger       *slog.Logger
}

// NewCalculator returns a calculator for set. An empty set is an EMPTY_PROJECT
// error, since every ratio would divide by zero.
func NewCalculator(set *typeset.TypeSet, opts Options, logger *slog.Logger) (*Calculator, error) {
	if set == nil || set.Len() == 0 {
		pkg := ""
		if set != nil {
			pkg = set.Package()
		}
		return nil, daerrors.New(daerrors.EmptyProject, daerrors.StageCompute,
			fmt.Sprintf("no types to analyze in package %q", pkg), nil)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Calculator{
		set:          set,
		eval:         dependency.NewEvaluator(set, opts.InterfaceMode),
		totalMethods: set.TotalDeclaredMethods(),
		workers:      opts.Workers,
		logger:       logger,
	}, nil
}

// Evaluator returns the dependency evaluator the calculator uses.
func (c *Calculator) Evaluator() *dependency.Evaluator { return c.eval }

// TypeSet returns the analyzed set.
func (c *Calculator) TypeSet() *typeset.TypeSet { return c.set }

// InDepth counts the supertypes above t, excluding the root. The walk follows
// member descriptors and the external ancestry recorded in the set; it stops at
// the first supertype the set knows nothing about (counting it) and at cycles.
func (c *Calculator) InDepth(t *typeset.TypeDescriptor) int {
	depth := 0
	visited := map[string]bool{t.Name: true}
	name := t.Supertype
	for name != "" && name != typeset.RootType {
		if visited[name] {
			c.logger.Warn("Supertype cycle detected", "type", t.Name, "at", name)
			break
		}
		visited[name] = true
		depth++

		super, known := c.set.SupertypeOf(name)
		if !known {
			break
		}
		name = super
	}
	return depth
}

// Instability is |providers(t)| / N.
func (c *Calculator) Instability(t *typeset.TypeDescriptor) float64 {
	return float64(len(c.eval.Providers(t))) / float64(c.set.Len())
}

// Responsibility sums, over every type of the set, the size of the client
// reference set it contributes to t, and divides by N.
func (c *Calculator) Responsibility(t *typeset.TypeDescriptor) float64 {
	count := 0
	for _, cls := range c.set.Types() {
		count += len(c.eval.ClientReferences(t, cls))
	}
	return float64(count) / float64(c.set.Len())
}

// Workload is t's share of all declared methods in the set. A set without any
// declared method yields 0 for every type.
func (c *Calculator) Workload(t *typeset.TypeDescriptor) float64 {
	if c.totalMethods == 0 {
		return 0
	}
	return float64(t.DeclaredMethodCount()) / float64(c.totalMethods)
}

// Record computes all four metrics for t.
func (c *Calculator) Record(t *typeset.TypeDescriptor) Record {
	return Record{
		Name:           t.Name,
		SimpleName:     t.SimpleName,
		InDepth:        c.InDepth(t),
		Instability:    c.Instability(t),
		Responsibility: c.Responsibility(t),
		Workload:       c.Workload(t),
	}
}

// Compute returns one record per type, ordered by qualified name.
func (c *Calculator) Compute(ctx context.Context) ([]Record, error) {
	types := c.set.Types()
	records := make([]Record, len(types))

	if c.totalMethods == 0 {
		c.logger.Debug("No declared methods in set, workload is 0 for every type", "package", c.set.Package())
	}

	if c.workers < 2 {
		for i, t := range types {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			records[i] = c.Record(t)
		}
		return records, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, t := range types {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i] = c.Record(t)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}
