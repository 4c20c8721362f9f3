package engine

import (
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/calendar"
	"github.com/andresuchdata/replenish/internal/demand"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/validation"
)

// Ingest derives the whole dataset synchronously and replaces the current
// one. Duplicate identifiers keep their first row; later rows are only
// reported. A dataset with fewer than two date columns yields an empty
// series set, a report explaining why, and ErrNoDemandColumns.
func (e *Engine) Ingest(ds domain.Dataset) (*Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.load()
	rep := validation.NewReporter()
	evalDate := calendar.Day(e.cfg.Now())

	cols, reordered := chronological(ds.Roles.DateColumns)
	if reordered {
		rep.NonChronological()
	}

	next := &snapshot{
		dataset:      ds.Name,
		evaluatedAt:  evalDate,
		window:       prev.window,
		index:        map[string]int{},
		poLeads:      prev.poLeads.Clone(),
		datasetLeads: map[string][]float64{},
		openOrders:   prev.openOrders,
	}

	if len(cols) < 2 {
		rep.NoDemandColumns(len(cols))
		next.report = rep.Report()
		next.rebuildLeads()
		next.derive(e.cfg)
		e.state.Store(next)
		log.Warn().Str("dataset", ds.Name).Int("date_columns", len(cols)).Msg("engine: no demand columns")
		return &Result{Series: []domain.SkuSeries{}, Report: next.report}, ErrNoDemandColumns
	}
	rep.DemandColumns(len(cols))

	for _, row := range ds.Rows {
		sku := domain.Cell(row, ds.Roles.Identifier)
		if sku == "" {
			rep.SkippedRow()
			continue
		}
		if _, seen := next.index[sku]; seen {
			rep.Duplicate(sku)
			continue
		}

		ss := e.buildSeries(row, ds.Roles, cols, evalDate, rep)
		ss.SKU = sku
		if ss.Vendor != "" && ds.Roles.LeadTime >= 0 {
			if w, status := domain.ParseStock(domain.Cell(row, ds.Roles.LeadTime)); status == domain.CellOK && w > 0 {
				next.datasetLeads[ss.Vendor] = append(next.datasetLeads[ss.Vendor], w)
			}
		}

		next.index[sku] = len(next.series)
		next.series = append(next.series, ss)
	}

	next.report = rep.Report()
	next.rebuildLeads()
	next.derive(e.cfg)
	e.state.Store(next)

	log.Info().
		Str("dataset", ds.Name).
		Int("skus", len(next.series)).
		Int("date_columns", len(cols)).
		Str("status", next.report.Status()).
		Msg("engine: dataset ingested")

	res := &Result{Series: make([]domain.SkuSeries, len(next.series)), Report: next.report}
	for i, ss := range next.series {
		res.Series[i] = *ss
	}
	return res, nil
}

func (e *Engine) buildSeries(row []string, roles domain.ColumnRoles, cols []domain.DateColumn, evalDate time.Time, rep *validation.Reporter) *domain.SkuSeries {
	ss := &domain.SkuSeries{
		Description:  domain.Cell(row, roles.Description),
		Vendor:       domain.Cell(row, roles.Vendor),
		Observations: make([]domain.Observation, 0, len(cols)),
	}
	for _, c := range cols {
		raw := domain.Cell(row, c.Index)
		qty, status := domain.ParseStock(raw)
		rep.Cell(status)
		ss.Observations = append(ss.Observations, domain.Observation{Date: c.Date, Raw: raw})
		if status == domain.CellOK && !c.Date.After(evalDate) {
			ss.CurrentStock = &domain.StockReading{Date: c.Date, Quantity: qty}
		}
	}

	built := demand.BuildSeries(e.cfg.Calendar, ss.Observations)
	rep.Replenishments(built.Replenishments)

	ss.History = built.Events
	ss.TotalQty = built.TotalQty
	ss.Periods = built.Periods
	ss.PositivePeriods = built.PositivePeriods
	ss.TotalWorkingDays = built.TotalWorkingDays
	ss.AvgDemand = built.AvgDemand()
	ss.AvgPerWorkingDay = built.AvgPerWorkingDay()
	return ss
}

// chronological sorts date columns by date, drops columns repeating a date
// and reports whether file order differed from date order.
func chronological(cols []domain.DateColumn) ([]domain.DateColumn, bool) {
	sorted := append([]domain.DateColumn(nil), cols...)
	reordered := false
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Date.Before(sorted[i-1].Date) {
			reordered = true
			break
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	out := sorted[:0]
	for _, c := range sorted {
		if len(out) > 0 && calendar.Day(c.Date).Equal(calendar.Day(out[len(out)-1].Date)) {
			continue
		}
		out = append(out, c)
	}
	return out, reordered
}

// IngestPurchaseOrders adds lead-time samples and open orders, then
// recomputes decisions. Histories are untouched.
func (e *Engine) IngestPurchaseOrders(pos []domain.PurchaseOrder) POSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.load().clone()
	tally := next.poLeads.AddPurchaseOrders(pos)
	for sku, n := range tally.OpenBySKU {
		next.openOrders[sku] += n
	}
	next.rebuildLeads()
	next.derive(e.cfg)
	e.state.Store(next)

	log.Info().
		Int("orders", tally.Orders).
		Int("samples", tally.Samples).
		Int("discarded", tally.Discarded).
		Int("open", tally.Open).
		Msg("engine: purchase orders ingested")
	return tally
}
