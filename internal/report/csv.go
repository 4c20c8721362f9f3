// Package report writes decision records and validation reports as CSV and
// XLSX exports.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/andresuchdata/replenish/internal/domain"
)

// DecisionHeader is the column order shared by the CSV and workbook exports.
var DecisionHeader = []string{
	"SKU", "Description", "Vendor", "Classification", "Tier", "Usage", "Pattern",
	"Decision", "Risk Score", "Estimator", "Daily Usage", "Weekly Usage",
	"Planning Window", "Planning Usage", "Lead Weeks", "Lead Source", "Lead Days",
	"Lead Time Demand", "On Hand", "On Hand Date", "Coverage Weeks", "Volatility",
	"Acceleration", "Runout Min Weeks", "Runout Max Weeks", "Open Orders",
	"Forecast", "MAPE %", "Recommendation",
}

// DecisionRow renders one record in DecisionHeader order.
func DecisionRow(r domain.DecisionRecord) []string {
	return []string{
		r.SKU,
		r.Description,
		r.Vendor,
		string(r.Classification),
		string(r.Tier),
		r.UsageLabel,
		r.PatternLabel,
		string(r.Decision),
		formatOptional(r.RiskScore, 1),
		string(r.EstimatorKind),
		formatFloat(r.DailyUsage, 3),
		formatFloat(r.WeeklyUsage, 2),
		strconv.Itoa(r.PlanningWindowDays),
		formatFloat(r.PlanningUsage, 3),
		formatFloat(r.LeadWeeks, 2),
		string(r.LeadSource),
		strconv.Itoa(r.LeadDays),
		formatFloat(r.LeadTimeDemand, 2),
		formatOptional(r.OnHand, 2),
		formatDate(r.OnHandDate),
		formatMeasure(r.CoverageWeeks, 2),
		formatFloat(r.Volatility, 3),
		formatFloat(r.Acceleration, 3),
		formatMeasure(r.RunoutMinWeeks, 1),
		formatMeasure(r.RunoutMaxWeeks, 1),
		strconv.Itoa(r.OpenOrders),
		formatSeries(r.Forecast, 0),
		formatOptional(r.MAPEPercent, 1),
		r.Recommendation,
	}
}

// WriteDecisionsCSV writes a header and one row per record.
func WriteDecisionsCSV(w io.Writer, records []domain.DecisionRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(DecisionHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range records {
		if err := writer.Write(DecisionRow(r)); err != nil {
			return fmt.Errorf("write row %s: %w", r.SKU, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ValidationRows renders the report as metric/value pairs.
func ValidationRows(rep domain.ValidationReport) [][]string {
	rows := [][]string{
		{"Status", rep.Status()},
		{"Demand Columns", strconv.Itoa(rep.DemandColumns)},
		{"Missing Cells", strconv.Itoa(rep.MissingCells)},
		{"Invalid Cells", strconv.Itoa(rep.InvalidCells)},
		{"Non-Chronological Columns", strconv.FormatBool(rep.NonChronologicalColumns)},
		{"Replenishment Events", strconv.Itoa(rep.ReplenishmentEvents)},
		{"Skipped Rows", strconv.Itoa(rep.SkippedRows)},
		{"Duplicate Identifiers", strconv.Itoa(len(rep.DuplicateIdentifiers))},
	}
	for _, sku := range rep.DuplicateIdentifiers {
		rows = append(rows, []string{"Duplicate", sku})
	}
	if rep.Message != "" {
		rows = append(rows, []string{"Message", rep.Message})
	}
	return rows
}

// WriteValidationCSV writes the report as a two-column table.
func WriteValidationCSV(w io.Writer, rep domain.ValidationReport) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := writer.WriteAll(ValidationRows(rep)); err != nil {
		return fmt.Errorf("write validation rows: %w", err)
	}
	return nil
}
