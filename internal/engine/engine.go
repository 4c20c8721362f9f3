// Package engine owns one ingested dataset and its derived outputs. Every
// mutation builds a new immutable snapshot and swaps it in whole, so readers
// never observe a half-derived dataset.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/andresuchdata/replenish/internal/calendar"
	"github.com/andresuchdata/replenish/internal/decision"
	"github.com/andresuchdata/replenish/internal/demand"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/leadtime"
)

var (
	ErrNoDemandColumns = errors.New("no demand columns found")
	ErrUnknownSKU      = errors.New("unknown sku")
	ErrInvalidLeadTime = leadtime.ErrInvalidLeadTime
	ErrInvalidWindow   = errors.New("planning window must be 0, 30, 60 or 90 days")
)

// PlanningWindows lists the accepted planning windows. 0 plans from the whole
// history.
var PlanningWindows = []int{0, 30, 60, 90}

// Config is injected at construction and never changes afterwards.
type Config struct {
	Calendar           *calendar.Calendar
	DefaultLeadWeeks   float64
	PlanningWindowDays int
	Estimator          demand.EstimatorConfig
	// Now supplies the evaluation date for current stock.
	Now func() time.Time
}

// DefaultConfig uses the built-in calendar, a 2 week lead default and the
// 90 day planning window.
func DefaultConfig() Config {
	return Config{
		Calendar:           calendar.Default(),
		DefaultLeadWeeks:   decision.DefaultLeadWeeks,
		PlanningWindowDays: 90,
		Estimator:          demand.DefaultEstimatorConfig(),
		Now:                time.Now,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Calendar == nil {
		c.Calendar = d.Calendar
	}
	if c.DefaultLeadWeeks <= 0 {
		c.DefaultLeadWeeks = d.DefaultLeadWeeks
	}
	if !validWindow(c.PlanningWindowDays) {
		c.PlanningWindowDays = d.PlanningWindowDays
	}
	if c.Now == nil {
		c.Now = d.Now
	}
	return c
}

// Result is what Ingest hands back to the caller.
type Result struct {
	Series []domain.SkuSeries
	Report domain.ValidationReport
}

// POSummary describes a purchase-order load.
type POSummary = leadtime.Tally

// Engine is safe for concurrent use. Writers are serialized; readers load
// the current snapshot without locking.
type Engine struct {
	cfg   Config
	mu    sync.Mutex
	state atomic.Pointer[snapshot]
}

// New creates an engine with an empty dataset.
func New(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{cfg: cfg}
	e.state.Store(&snapshot{
		window:     cfg.PlanningWindowDays,
		leads:      leadtime.NewTable(cfg.DefaultLeadWeeks),
		poLeads:    leadtime.NewTable(cfg.DefaultLeadWeeks),
		openOrders: map[string]int{},
		index:      map[string]int{},
		report:     domain.ValidationReport{DuplicateIdentifiers: []string{}},
	})
	return e
}

func (e *Engine) load() *snapshot { return e.state.Load() }

// Series returns every SKU in file order.
func (e *Engine) Series() []domain.SkuSeries {
	snap := e.load()
	out := make([]domain.SkuSeries, len(snap.series))
	for i, s := range snap.series {
		out[i] = *s
	}
	return out
}

// SeriesFor returns one SKU's series.
func (e *Engine) SeriesFor(sku string) (domain.SkuSeries, error) {
	snap := e.load()
	i, ok := snap.index[sku]
	if !ok {
		return domain.SkuSeries{}, fmt.Errorf("%w: %s", ErrUnknownSKU, sku)
	}
	return *snap.series[i], nil
}

// DecisionFor returns the decision record of one SKU.
func (e *Engine) DecisionFor(sku string) (domain.DecisionRecord, error) {
	snap := e.load()
	i, ok := snap.index[sku]
	if !ok {
		return domain.DecisionRecord{}, fmt.Errorf("%w: %s", ErrUnknownSKU, sku)
	}
	return snap.decisions[i], nil
}

// Decisions returns every decision record in file order.
func (e *Engine) Decisions() []domain.DecisionRecord {
	snap := e.load()
	return append([]domain.DecisionRecord(nil), snap.decisions...)
}

// Report returns the validation report of the current dataset.
func (e *Engine) Report() domain.ValidationReport {
	return e.load().report
}

// Vendors returns the lead-time profile of every known vendor.
func (e *Engine) Vendors() []domain.VendorLeadProfile {
	return e.load().leads.Profiles()
}

// VendorLeadTime resolves the lead time used for a vendor.
func (e *Engine) VendorLeadTime(vendor string) (float64, domain.LeadSource) {
	return e.load().leads.LeadWeeks(vendor)
}

// PlanningWindow returns the active planning window in days.
func (e *Engine) PlanningWindow() int {
	return e.load().window
}

// DatasetName returns the name of the ingested dataset.
func (e *Engine) DatasetName() string {
	return e.load().dataset
}

// EvaluatedAt is the evaluation date used to pick current stock.
func (e *Engine) EvaluatedAt() time.Time {
	return e.load().evaluatedAt
}

func validWindow(days int) bool {
	for _, w := range PlanningWindows {
		if w == days {
			return true
		}
	}
	return false
}
