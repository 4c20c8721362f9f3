package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/report"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	urgentStyle = cellStyle.Foreground(lipgloss.Color("9"))
	soonStyle   = cellStyle.Foreground(lipgloss.Color("11"))
)

var tableColumns = []string{"SKU", "Vendor", "Class", "Tier", "Decision", "Risk", "Weekly", "Lead Wk", "On Hand", "Cover Wk"}

func validFormat(format string) bool {
	switch format {
	case "table", "csv", "json", "xlsx":
		return true
	}
	return false
}

// openOutput returns w itself when path is empty.
func openOutput(w io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" {
		return w, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return f, f.Close, nil
}

func writeDecisions(w io.Writer, format, path string, records []domain.DecisionRecord, rep domain.ValidationReport) error {
	if format == "xlsx" {
		return report.WriteWorkbook(path, records, rep)
	}

	out, closeFn, err := openOutput(w, path)
	if err != nil {
		return err
	}

	switch format {
	case "csv":
		err = report.WriteDecisionsCSV(out, records)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(records)
	default:
		_, err = fmt.Fprintln(out, decisionTable(records))
		if err == nil {
			_, err = fmt.Fprintf(out, "%d SKUs, validation: %s\n", len(records), rep.Status())
		}
	}
	if cerr := closeFn(); err == nil {
		err = cerr
	}
	return err
}

func writeValidation(w io.Writer, format, path string, rep domain.ValidationReport) error {
	out, closeFn, err := openOutput(w, path)
	if err != nil {
		return err
	}

	switch format {
	case "csv", "xlsx":
		err = report.WriteValidationCSV(out, rep)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		err = enc.Encode(rep)
	default:
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("Metric", "Value").
			Rows(report.ValidationRows(rep)...).
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle
				}
				return cellStyle
			})
		_, err = fmt.Fprintln(out, t)
	}
	if cerr := closeFn(); err == nil {
		err = cerr
	}
	return err
}

func decisionTable(records []domain.DecisionRecord) *table.Table {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, decisionCells(r))
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(tableColumns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 4 && row >= 0 && row < len(records) {
				switch records[row].Decision {
				case domain.DecisionOrderNow:
					return urgentStyle
				case domain.DecisionOrderSoon:
					return soonStyle
				}
			}
			return cellStyle
		})
}

func decisionCells(r domain.DecisionRecord) []string {
	risk := "-"
	if r.RiskScore != nil {
		risk = fmt.Sprintf("%.1f", *r.RiskScore)
	}
	onHand := "-"
	if r.OnHand != nil {
		onHand = fmt.Sprintf("%g", *r.OnHand)
	}
	cover := "-"
	if r.CoverageWeeks.Finite() {
		cover = fmt.Sprintf("%.1f", float64(r.CoverageWeeks))
	}
	return []string{
		r.SKU,
		r.Vendor,
		string(r.Classification),
		string(r.Tier),
		string(r.Decision),
		risk,
		fmt.Sprintf("%.2f", r.WeeklyUsage),
		fmt.Sprintf("%.1f", r.LeadWeeks),
		onHand,
		cover,
	}
}
