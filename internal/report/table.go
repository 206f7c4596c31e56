package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"da/internal/output"
)

// TableHeader is the first line of the table format.
const TableHeader = "Class(C)          inDepth(C)          instability(C)          responsibility(C)          workload(C)"

// renderTable writes the fixed-width table: left-aligned columns of 8, 10, 14,
// 17 and 11 characters separated by ten spaces. Ratios are rounded half up.
func renderTable(w io.Writer, rep *Report, places int) error {
	if _, err := fmt.Fprintln(w, TableHeader); err != nil {
		return err
	}
	for _, rec := range rep.Types {
		_, err := fmt.Fprintf(w, "%-8s          %-10d          %-14s          %-17s          %-11s\n",
			rec.SimpleName,
			rec.InDepth,
			output.FormatFloat(rec.Instability, places),
			output.FormatFloat(rec.Responsibility, places),
			output.FormatFloat(rec.Workload, places),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

var (
	prettyHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("#00FFFF")).
				Padding(0, 1)
	prettyCellStyle   = lipgloss.NewStyle().Padding(0, 1)
	prettyNumberStyle = prettyCellStyle.Align(lipgloss.Right)
	prettyBorderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF00FF"))
)

// renderPretty writes a bordered table with the qualified names. Without color
// the styles keep their layout and drop the ANSI sequences.
func renderPretty(w io.Writer, rep *Report, places int, color bool) error {
	rows := make([][]string, 0, len(rep.Types))
	for _, rec := range rep.Types {
		rows = append(rows, []string{
			rec.Name,
			strconv.Itoa(rec.InDepth),
			output.FormatFloat(rec.Instability, places),
			output.FormatFloat(rec.Responsibility, places),
			output.FormatFloat(rec.Workload, places),
		})
	}

	header, cell, number, border := prettyHeaderStyle, prettyCellStyle, prettyNumberStyle, prettyBorderStyle
	if !color {
		header = lipgloss.NewStyle().Padding(0, 1)
		number = cell.Align(lipgloss.Right)
		border = lipgloss.NewStyle()
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(border).
		Headers("Type", "inDepth", "instability", "responsibility", "workload").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return header
			case col == 0:
				return cell
			default:
				return number
			}
		})

	if _, err := fmt.Fprintf(w, "Package %s (%d types)\n", rep.Package, len(rep.Types)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
