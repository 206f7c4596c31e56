//go:build !cgo

package loader

import (
	"context"
	"log/slog"

	"da/internal/typeset"
)

// SourceLoader is a stub for non-CGO builds.
type SourceLoader struct{}

// NewSourceLoader always fails without CGO.
func NewSourceLoader(opts Options, logger *slog.Logger) (*SourceLoader, error) {
	return nil, ErrNoCGO
}

// Close is a no-op.
func (l *SourceLoader) Close() error { return nil }

// Load always fails without CGO.
func (l *SourceLoader) Load(ctx context.Context, dir string) (*typeset.TypeSet, error) {
	return nil, ErrNoCGO
}
