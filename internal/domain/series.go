package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// CellStatus describes how a raw stock cell was interpreted.
type CellStatus int

const (
	CellOK CellStatus = iota
	CellMissing
	CellInvalid
)

func (s CellStatus) String() string {
	switch s {
	case CellOK:
		return "ok"
	case CellMissing:
		return "missing"
	case CellInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// ParseStock converts a raw stock cell into a quantity. Blank cells are
// missing, anything non-numeric, non-finite or negative is invalid. Both
// coerce to 0 so delta math never fails.
func ParseStock(raw string) (float64, CellStatus) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0, CellMissing
	}
	v = strings.ReplaceAll(v, ",", "")
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0, CellInvalid
	}
	return f, CellOK
}

// Observation is a single dated stock-level cell for one SKU.
type Observation struct {
	Date time.Time `json:"date"`
	Raw  string    `json:"raw"`
}

// Quantity returns the parsed stock level and how the cell was read.
func (o Observation) Quantity() (float64, CellStatus) {
	return ParseStock(o.Raw)
}

// ConsumptionEvent is the usage derived between two consecutive observations.
// Date is the later of the two.
type ConsumptionEvent struct {
	Date              time.Time `json:"date"`
	QuantityMoved     float64   `json:"quantity_moved"`
	WorkingDays       int       `json:"working_days"`
	RatePerWorkingDay float64   `json:"rate_per_working_day"`
}

// WindowStat summarizes usage over a trailing window of calendar days.
type WindowStat struct {
	RawTotal     float64 `json:"raw_total"`
	WorkingDays  int     `json:"working_days"`
	AdjustedRate float64 `json:"adjusted_rate"`
}

// Windows holds the three trailing windows every SKU carries.
type Windows struct {
	W30 WindowStat `json:"window_30"`
	W60 WindowStat `json:"window_60"`
	W90 WindowStat `json:"window_90"`
}

// ForDays returns the window matching days, and false for any other length.
func (w Windows) ForDays(days int) (WindowStat, bool) {
	switch days {
	case 30:
		return w.W30, true
	case 60:
		return w.W60, true
	case 90:
		return w.W90, true
	default:
		return WindowStat{}, false
	}
}

// StockReading is an on-hand quantity observed on a given date.
type StockReading struct {
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"`
}

// SkuSeries is the aggregate unit of work for one SKU.
type SkuSeries struct {
	SKU              string             `json:"sku"`
	Description      string             `json:"description,omitempty"`
	Vendor           string             `json:"vendor,omitempty"`
	Observations     []Observation      `json:"observations"`
	History          []ConsumptionEvent `json:"history"`
	TotalQty         float64            `json:"total_qty"`
	Periods          int                `json:"periods"`
	PositivePeriods  int                `json:"positive_periods"`
	TotalWorkingDays int                `json:"total_working_days"`
	Classification   Classification     `json:"classification"`
	Tier             Tier               `json:"tier"`
	Windows          Windows            `json:"windows"`
	AvgDemand        float64            `json:"avg_demand"`
	AvgPerWorkingDay float64            `json:"avg_per_working_day"`
	CurrentStock     *StockReading      `json:"current_stock,omitempty"`
}

// Rates returns the per-period working-day rates in chronological order.
func (s *SkuSeries) Rates() []float64 {
	rates := make([]float64, len(s.History))
	for i, ev := range s.History {
		rates[i] = ev.RatePerWorkingDay
	}
	return rates
}
