// Package validation tallies data-quality issues found during ingestion.
package validation

import (
	"fmt"
	"sort"

	"github.com/andresuchdata/replenish/internal/domain"
)

// Reporter accumulates counters while rows are read. It is not safe for
// concurrent use; the engine owns one per ingestion.
type Reporter struct {
	report     domain.ValidationReport
	duplicates map[string]struct{}
}

func NewReporter() *Reporter {
	return &Reporter{duplicates: make(map[string]struct{})}
}

// Cell records how one stock cell was read.
func (r *Reporter) Cell(status domain.CellStatus) {
	switch status {
	case domain.CellMissing:
		r.report.MissingCells++
	case domain.CellInvalid:
		r.report.InvalidCells++
	}
}

// Replenishments adds n observation pairs where stock increased.
func (r *Reporter) Replenishments(n int) {
	r.report.ReplenishmentEvents += n
}

// Duplicate records an identifier seen on more than one row.
func (r *Reporter) Duplicate(sku string) {
	r.duplicates[sku] = struct{}{}
}

// SkippedRow counts a row dropped for lacking an identifier.
func (r *Reporter) SkippedRow() {
	r.report.SkippedRows++
}

// NonChronological flags a file whose date columns were out of order.
func (r *Reporter) NonChronological() {
	r.report.NonChronologicalColumns = true
}

// DemandColumns records how many distinct date columns were usable.
func (r *Reporter) DemandColumns(n int) {
	r.report.DemandColumns = n
}

// NoDemandColumns marks the dataset as unusable for derivation.
func (r *Reporter) NoDemandColumns(found int) {
	r.report.DemandColumns = found
	r.report.NoDemandColumns = true
	r.report.Message = fmt.Sprintf("no demand columns found: need at least 2 date columns, got %d", found)
}

// Report returns the accumulated report with sorted duplicate identifiers.
func (r *Reporter) Report() domain.ValidationReport {
	out := r.report
	out.DuplicateIdentifiers = make([]string, 0, len(r.duplicates))
	for sku := range r.duplicates {
		out.DuplicateIdentifiers = append(out.DuplicateIdentifiers, sku)
	}
	sort.Strings(out.DuplicateIdentifiers)
	return out
}
