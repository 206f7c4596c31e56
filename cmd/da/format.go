package main

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"da/internal/envelope"
	"da/internal/output"
	"da/internal/query"
	"da/internal/storage"
)

// OutputFormat represents the output format of the non-report commands
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
	FormatHuman OutputFormat = "human"
)

// responseFormat maps a configured report format to the format used by
// commands that print something other than a metrics report.
func responseFormat(reportFormat string) OutputFormat {
	switch reportFormat {
	case "table", "pretty":
		return FormatHuman
	case "yaml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// FormatResponse formats a response according to the specified format
func FormatResponse(resp interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(resp)
	case FormatYAML:
		return formatYAML(resp)
	case FormatHuman:
		return formatHuman(resp)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := output.DeterministicEncodeIndented(resp, "  ", output.MaxPrecision)
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

// formatYAML goes through JSON first so that YAML keys match the JSON tags.
func formatYAML(resp interface{}) (string, error) {
	data, err := output.DeterministicEncode(resp, output.MaxPrecision)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	var generic interface{}
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// formatHuman formats the response in human-readable format
func formatHuman(resp interface{}) (string, error) {
	data := resp
	if env, ok := resp.(*envelope.Response); ok {
		data = env.Data
	}
	switch v := data.(type) {
	case *query.TypeDependencies:
		return formatDependenciesHuman(v), nil
	case []storage.Run:
		return formatRunsHuman(v), nil
	case []storage.TypePoint:
		return formatPointsHuman(v), nil
	case *checkResult:
		return formatCheckHuman(v), nil
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}
}

var headerStyle = lipgloss.NewStyle().Bold(true)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func ratio(f float64) string {
	return output.FormatFloat(f, cfg.Precision)
}

func formatDependenciesHuman(d *query.TypeDependencies) string {
	var b strings.Builder
	m := d.Metrics
	fmt.Fprintf(&b, "%s\n", d.Type)
	fmt.Fprintf(&b, "  inDepth %d, instability %s, responsibility %s, workload %s\n\n",
		m.InDepth, ratio(m.Instability), ratio(m.Responsibility), ratio(m.Workload))

	fmt.Fprintf(&b, "Providers (%d):\n", len(d.Providers))
	for _, p := range d.Providers {
		fmt.Fprintf(&b, "  %-40s %s\n", p.Name, joinMechanisms(p))
	}
	fmt.Fprintf(&b, "\nClients (%d):\n", len(d.Clients))
	for _, c := range d.Clients {
		fmt.Fprintf(&b, "  %-40s %s (refs: %s)\n", c.Name, joinMechanisms(c), strings.Join(c.References, ", "))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func joinMechanisms(d query.Dependency) string {
	parts := make([]string, len(d.Mechanisms))
	for i, m := range d.Mechanisms {
		parts[i] = string(m)
	}
	return strings.Join(parts, ", ")
}

func formatRunsHuman(runs []storage.Run) string {
	if len(runs) == 0 {
		return "No stored runs."
	}
	t := newTable("Run", "Package", "Types", "Mode", "Created")
	for _, r := range runs {
		t.Row(r.ID, r.Package, fmt.Sprint(r.TypeCount), r.InterfaceMode, r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	return t.Render()
}

func formatPointsHuman(points []storage.TypePoint) string {
	if len(points) == 0 {
		return "No stored metrics for this type."
	}
	t := newTable("Created", "Type", "inDepth", "instability", "responsibility", "workload")
	for _, p := range points {
		r := p.Record
		t.Row(p.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Name, fmt.Sprint(r.InDepth),
			ratio(r.Instability), ratio(r.Responsibility), ratio(r.Workload))
	}
	return t.Render()
}

func formatCheckHuman(c *checkResult) string {
	if len(c.Violations) == 0 {
		return fmt.Sprintf("%s: %d rules, %d types, no violations", c.Package, c.Rules, c.Types)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d violation(s)\n", c.Package, len(c.Violations))
	for _, v := range c.Violations {
		fmt.Fprintf(&b, "  %s\n", v.String())
	}
	return strings.TrimSuffix(b.String(), "\n")
}
