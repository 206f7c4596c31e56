// Package mcp serves the analyzer as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"da/internal/dependency"
	"da/internal/envelope"
	daerrors "da/internal/errors"
	"da/internal/query"
	"da/internal/storage"
)

// Defaults are the analysis settings used when a tool call leaves them out.
type Defaults struct {
	InterfaceMode dependency.InterfaceMode
	Classpath     []string
	Strict        bool
	Workers       int
	Precision     int
}

// Server exposes the analyzer tools.
type Server struct {
	mcp      *server.MCPServer
	engine   *query.Engine
	history  *storage.DB
	defaults Defaults
	logger   *slog.Logger
}

// NewServer registers the tools. history may be nil, in which case the history
// tool is not offered.
func NewServer(version string, engine *query.Engine, history *storage.DB, defaults Defaults, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		mcp: server.NewMCPServer(
			"da",
			version,
			server.WithToolCapabilities(false),
		),
		engine:   engine,
		history:  history,
		defaults: defaults,
		logger:   logger,
	}
	s.registerTools()
	return s
}

// ServeStdio blocks serving requests on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("Serving MCP over stdio")
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) registerTools() {
	s.mcp.AddTool(mcp.NewTool("analyze_package",
		mcp.WithDescription("Compute inDepth, instability, responsibility and workload for every type of a package directory"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Directory holding the package's .class files (or .java files with source=true)"),
		),
		mcp.WithString("interface_mode",
			mcp.Description("faithful (default) or symmetric"),
			mcp.Enum(string(dependency.InterfacesFaithful), string(dependency.InterfacesSymmetric)),
		),
		mcp.WithBoolean("source",
			mcp.Description("Parse .java sources instead of compiled classes (default: false)"),
		),
		mcp.WithNumber("precision",
			mcp.Description("Decimal places of the ratios (default: 2)"),
		),
	), s.handleAnalyzePackage)

	s.mcp.AddTool(mcp.NewTool("type_dependencies",
		mcp.WithDescription("List the providers and clients of one type, with the mechanisms that link them"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Directory holding the package"),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Qualified or simple name of the type"),
		),
		mcp.WithString("interface_mode",
			mcp.Description("faithful (default) or symmetric"),
			mcp.Enum(string(dependency.InterfacesFaithful), string(dependency.InterfacesSymmetric)),
		),
		mcp.WithBoolean("source",
			mcp.Description("Parse .java sources instead of compiled classes (default: false)"),
		),
	), s.handleTypeDependencies)

	if s.history != nil {
		s.mcp.AddTool(mcp.NewTool("metric_history",
			mcp.WithDescription("Show stored metrics of a type across saved runs, newest first"),
			mcp.WithString("type",
				mcp.Required(),
				mcp.Description("Qualified or simple name of the type"),
			),
			mcp.WithString("package",
				mcp.Description("Restrict to one package"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of points (default: 20)"),
			),
		), s.handleMetricHistory)
	}
}

// options merges per-call arguments over the defaults.
func (s *Server) options(request mcp.CallToolRequest) (query.Options, error) {
	opts := query.Options{
		Source:        request.GetBool("source", false),
		InterfaceMode: s.defaults.InterfaceMode,
		Classpath:     s.defaults.Classpath,
		Strict:        s.defaults.Strict,
		Workers:       s.defaults.Workers,
	}
	if raw := request.GetString("interface_mode", ""); raw != "" {
		mode, err := dependency.ParseInterfaceMode(raw)
		if err != nil {
			return opts, daerrors.New(daerrors.ConfigInvalid, daerrors.StageConfig, "invalid interface_mode", err)
		}
		opts.InterfaceMode = mode
	}
	return opts, nil
}

// result marshals an envelope as the text content of a tool result. Envelopes
// carrying an error are flagged as tool errors.
func result(resp *envelope.Response) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	if resp.Error != nil {
		return mcp.NewToolResultError(string(data)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func errorResult(err error) (*mcp.CallToolResult, error) {
	return result(envelope.New().Error(err).Build())
}

func invalidArgument(err error) error {
	return daerrors.New(daerrors.ConfigInvalid, daerrors.StageConfig, "invalid tool arguments", err)
}

func provenance(a *query.Analysis) envelope.Provenance {
	return envelope.Provenance{
		Package:       a.Package,
		SourcePath:    a.SourcePath,
		InterfaceMode: string(a.InterfaceMode),
	}
}

func (s *Server) analyze(ctx context.Context, request mcp.CallToolRequest) (*query.Analysis, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return nil, invalidArgument(err)
	}
	opts, err := s.options(request)
	if err != nil {
		return nil, err
	}
	return s.engine.Analyze(ctx, path, opts)
}
