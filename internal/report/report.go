// Package report renders metric records. Every format renders into a buffer
// first; nothing reaches the writer unless rendering succeeds.
package report

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	daerrors "da/internal/errors"
	"da/internal/metrics"
	"da/internal/output"
)

// Format names an output format.
type Format string

const (
	FormatTable      Format = "table"
	FormatPretty     Format = "pretty"
	FormatJSON       Format = "json"
	FormatYAML       Format = "yaml"
	FormatTOML       Format = "toml"
	FormatPrometheus Format = "prometheus"
)

var allFormats = []Format{FormatTable, FormatPretty, FormatJSON, FormatYAML, FormatTOML, FormatPrometheus}

// Formats lists the supported formats.
func Formats() []Format {
	return append([]Format(nil), allFormats...)
}

// ParseFormat validates a format name. The empty string selects the table.
func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatTable, nil
	}
	for _, f := range allFormats {
		if strings.EqualFold(s, string(f)) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q (want one of %s)", s, joinFormats())
}

func joinFormats() string {
	names := make([]string, len(allFormats))
	for i, f := range allFormats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

// Report is the analysis result of one package.
type Report struct {
	Package       string           `json:"package" yaml:"package" toml:"package"`
	InterfaceMode string           `json:"interfaceMode" yaml:"interfaceMode" toml:"interface_mode"`
	Types         []metrics.Record `json:"types" yaml:"types" toml:"type"`
}

// New builds a report with its records sorted by qualified name.
func New(pkg, interfaceMode string, records []metrics.Record) *Report {
	types := append([]metrics.Record(nil), records...)
	sort.SliceStable(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return &Report{Package: pkg, InterfaceMode: interfaceMode, Types: types}
}

// rounded returns a copy of the report with every ratio rounded to places.
func (r *Report) rounded(places int) *Report {
	out := *r
	out.Types = make([]metrics.Record, len(r.Types))
	for i, rec := range r.Types {
		rec.Instability = output.RoundFloat(rec.Instability, places)
		rec.Responsibility = output.RoundFloat(rec.Responsibility, places)
		rec.Workload = output.RoundFloat(rec.Workload, places)
		out.Types[i] = rec
	}
	return &out
}

// Options configures a Renderer.
type Options struct {
	Format    Format
	Precision int
	// Color enables terminal styling in the pretty format.
	Color bool
}

// Renderer writes reports in one format.
type Renderer struct {
	opts Options
}

// NewRenderer validates opts and returns a renderer.
func NewRenderer(opts Options) (*Renderer, error) {
	if opts.Format == "" {
		opts.Format = FormatTable
	}
	if _, err := ParseFormat(string(opts.Format)); err != nil {
		return nil, daerrors.New(daerrors.ConfigInvalid, daerrors.StageRender, err.Error(), nil)
	}
	if opts.Precision < 0 || opts.Precision > output.MaxPrecision {
		return nil, daerrors.New(daerrors.ConfigInvalid, daerrors.StageRender,
			fmt.Sprintf("precision %d out of range 0..%d", opts.Precision, output.MaxPrecision), nil)
	}
	return &Renderer{opts: opts}, nil
}

// Format returns the renderer's format.
func (r *Renderer) Format() Format { return r.opts.Format }

// Render writes rep to w.
func (r *Renderer) Render(w io.Writer, rep *Report) error {
	var buf bytes.Buffer
	var err error
	switch r.opts.Format {
	case FormatTable:
		err = renderTable(&buf, rep, r.opts.Precision)
	case FormatPretty:
		err = renderPretty(&buf, rep, r.opts.Precision, r.opts.Color)
	case FormatJSON:
		err = renderJSON(&buf, rep, r.opts.Precision)
	case FormatYAML:
		err = renderYAML(&buf, rep, r.opts.Precision)
	case FormatTOML:
		err = renderTOML(&buf, rep, r.opts.Precision)
	case FormatPrometheus:
		err = renderPrometheus(&buf, rep, r.opts.Precision)
	}
	if err != nil {
		return daerrors.New(daerrors.InternalError, daerrors.StageRender, "cannot render "+string(r.opts.Format)+" report", err)
	}

	if _, err := w.Write(buf.Bytes()); err != nil {
		return daerrors.New(daerrors.IOError, daerrors.StageRender, "cannot write report", err)
	}
	return nil
}
