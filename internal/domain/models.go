// internal/domain/models.go
package domain

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
	"time"
)

// DateColumn is a stock-level column whose header parsed as a date.
type DateColumn struct {
	Index int       `json:"index"`
	Label string    `json:"label"`
	Date  time.Time `json:"date"`
}

// ColumnRoles is the typed contract produced by the column-role resolver.
// Index -1 means the role is absent. DateColumns are listed in file order.
type ColumnRoles struct {
	Identifier  int          `json:"identifier"`
	Description int          `json:"description"`
	Vendor      int          `json:"vendor"`
	LeadTime    int          `json:"lead_time"`
	DateColumns []DateColumn `json:"date_columns"`
}

// Dataset is one parsed cycle-count export ready for ingestion.
type Dataset struct {
	Name  string
	Roles ColumnRoles
	Rows  [][]string
}

// Cell returns the trimmed cell at idx, or "" when the column is absent.
func Cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// PurchaseOrder is a single vendor purchase-order line.
type PurchaseOrder struct {
	SKU         string     `json:"sku"`
	Vendor      string     `json:"vendor"`
	OrderDate   time.Time  `json:"order_date"`
	ReceiveDate *time.Time `json:"receive_date,omitempty"`
}

// IsOpen reports whether the order has not been received yet.
func (po PurchaseOrder) IsOpen() bool {
	return po.ReceiveDate == nil
}

// LeadWeeks returns the observed lead time in weeks. Only finite, positive
// samples are valid.
func (po PurchaseOrder) LeadWeeks() (float64, bool) {
	if po.ReceiveDate == nil {
		return 0, false
	}
	days := po.ReceiveDate.Sub(po.OrderDate).Hours() / 24
	weeks := days / 7
	if math.IsNaN(weeks) || math.IsInf(weeks, 0) || weeks <= 0 {
		return 0, false
	}
	return weeks, true
}

// VendorLeadProfile holds the lead-time samples observed for one vendor.
type VendorLeadProfile struct {
	Vendor   string    `json:"vendor"`
	Samples  []float64 `json:"samples"`
	Override *float64  `json:"override,omitempty"`
}

// Median returns the median sample, false when there are none.
func (p VendorLeadProfile) Median() (float64, bool) {
	if len(p.Samples) == 0 {
		return 0, false
	}
	s := append([]float64(nil), p.Samples...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid], true
	}
	return (s[mid-1] + s[mid]) / 2, true
}

// LeadWeeks resolves the lead time: override, then observed median, then the
// supplied default.
func (p VendorLeadProfile) LeadWeeks(defaultWeeks float64) (float64, LeadSource) {
	if p.Override != nil {
		return *p.Override, LeadFromOverride
	}
	if m, ok := p.Median(); ok {
		return m, LeadFromObserved
	}
	return defaultWeeks, LeadFromDefault
}

// ValidationReport tallies data-quality issues found while building series.
type ValidationReport struct {
	MissingCells            int      `json:"missing_cells"`
	InvalidCells            int      `json:"invalid_cells"`
	NonChronologicalColumns bool     `json:"non_chronological_columns"`
	ReplenishmentEvents     int      `json:"replenishment_events"`
	DuplicateIdentifiers    []string `json:"duplicate_identifiers"`
	SkippedRows             int      `json:"skipped_rows"`
	DemandColumns           int      `json:"demand_columns"`
	NoDemandColumns         bool     `json:"no_demand_columns"`
	Message                 string   `json:"message,omitempty"`
}

// HasIssues reports whether anything in the report needs attention.
func (r ValidationReport) HasIssues() bool {
	return r.MissingCells > 0 ||
		r.InvalidCells > 0 ||
		r.NonChronologicalColumns ||
		r.ReplenishmentEvents > 0 ||
		len(r.DuplicateIdentifiers) > 0 ||
		r.NoDemandColumns
}

// Status is the one-word badge shown next to the report.
func (r ValidationReport) Status() string {
	if r.HasIssues() {
		return "Needs Attention"
	}
	return "Good"
}

// MarshalJSON adds the derived status to the encoded report.
func (r ValidationReport) MarshalJSON() ([]byte, error) {
	type plain ValidationReport
	return json.Marshal(struct {
		plain
		Status string `json:"status"`
	}{plain(r), r.Status()})
}
