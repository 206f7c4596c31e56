package mcp

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"da/internal/envelope"
	daerrors "da/internal/errors"
	"da/internal/report"
)

const defaultHistoryLimit = 20

func (s *Server) handleAnalyzePackage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a, err := s.analyze(ctx, request)
	if err != nil {
		return errorResult(err)
	}

	precision := int(request.GetFloat("precision", float64(s.defaults.Precision)))
	r, err := report.NewRenderer(report.Options{Format: report.FormatJSON, Precision: precision})
	if err != nil {
		return errorResult(err)
	}
	var buf bytes.Buffer
	if err := r.Render(&buf, a.Report()); err != nil {
		return errorResult(err)
	}

	b := envelope.New().
		Data(json.RawMessage(bytes.TrimSpace(buf.Bytes()))).
		WithProvenance(provenance(a)).
		WithDuration(a.Duration)
	if a.Set.TotalDeclaredMethods() == 0 {
		b.WarningWithCode("NO_METHODS", "the package declares no methods; workload is 0 for every type")
	}
	if least := leastStable(a.Report()); least != "" {
		b.Suggest("type_dependencies", "inspect the least stable type",
			map[string]interface{}{"path": a.SourcePath, "type": least})
	}
	return result(b.Build())
}

// leastStable returns the type with the highest instability, or "" when every
// type is fully stable.
func leastStable(rep *report.Report) string {
	best, name := 0.0, ""
	for _, rec := range rep.Types {
		if rec.Instability > best {
			best, name = rec.Instability, rec.Name
		}
	}
	return name
}

func (s *Server) handleTypeDependencies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typeName, err := request.RequireString("type")
	if err != nil {
		return errorResult(invalidArgument(err))
	}
	a, err := s.analyze(ctx, request)
	if err != nil {
		return errorResult(err)
	}
	deps, err := a.Dependencies(typeName)
	if err != nil {
		return errorResult(err)
	}
	return result(envelope.New().
		Data(deps).
		WithProvenance(provenance(a)).
		WithDuration(a.Duration).
		Build())
}

func (s *Server) handleMetricHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	typeName, err := request.RequireString("type")
	if err != nil {
		return errorResult(invalidArgument(err))
	}
	pkg := request.GetString("package", "")
	limit := int(request.GetFloat("limit", defaultHistoryLimit))

	// One extra point tells whether the result was cut.
	fetch := limit + 1
	if limit <= 0 {
		fetch = 0
	}
	points, err := s.history.TypeHistory(pkg, typeName, fetch)
	if err != nil {
		return errorResult(daerrors.New(daerrors.StorageError, daerrors.StageStore, "cannot read history", err))
	}
	truncated := limit > 0 && len(points) > limit
	if truncated {
		points = points[:limit]
	}
	return result(envelope.New().
		Data(points).
		WithProvenance(envelope.Provenance{Package: pkg}).
		WithTruncation(truncated, len(points), 0, "limit").
		Build())
}
