package engine

import (
	"time"

	"github.com/andresuchdata/replenish/internal/classify"
	"github.com/andresuchdata/replenish/internal/decision"
	"github.com/andresuchdata/replenish/internal/demand"
	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/leadtime"
)

// snapshot is never mutated after it is stored. Edits copy it, replace the
// pieces they touch and re-derive; consumption histories are shared.
type snapshot struct {
	dataset     string
	evaluatedAt time.Time
	window      int

	series    []*domain.SkuSeries
	index     map[string]int
	decisions []domain.DecisionRecord
	report    domain.ValidationReport

	// poLeads holds purchase-order samples and manual overrides, which
	// survive a re-ingest. leads adds the dataset's lead column on top.
	poLeads      *leadtime.Table
	leads        *leadtime.Table
	datasetLeads map[string][]float64
	openOrders   map[string]int
}

func (s *snapshot) clone() *snapshot {
	c := *s
	c.series = make([]*domain.SkuSeries, len(s.series))
	for i, ss := range s.series {
		cp := *ss
		c.series[i] = &cp
	}
	c.poLeads = s.poLeads.Clone()
	c.leads = s.leads.Clone()
	c.openOrders = make(map[string]int, len(s.openOrders))
	for k, v := range s.openOrders {
		c.openOrders[k] = v
	}
	return &c
}

// rebuildLeads layers the dataset lead column over the purchase-order table.
func (s *snapshot) rebuildLeads() {
	s.leads = s.poLeads.Clone()
	for vendor, samples := range s.datasetLeads {
		for _, w := range samples {
			s.leads.AddSample(vendor, w)
		}
	}
}

// derive recomputes windows, tiers, labels and decisions from the stored
// histories.
func (s *snapshot) derive(cfg Config) {
	inputs := make([]classify.TierInput, len(s.series))
	for i, ss := range s.series {
		ss.Windows = demand.ComputeWindows(ss.History)
		ss.Classification = classify.Movement(ss.TotalQty, ss.PositivePeriods)
		inputs[i] = classify.TierInput{
			SKU:    ss.SKU,
			Usage:  ss.AvgPerWorkingDay,
			Rate90: ss.Windows.W90.AdjustedRate,
		}
	}

	tiers := classify.AssignTiers(inputs)
	s.decisions = make([]domain.DecisionRecord, len(s.series))
	for i, ss := range s.series {
		ss.Tier = tiers[ss.SKU]
		s.decisions[i] = s.decide(cfg, ss)
	}
}

func (s *snapshot) decide(cfg Config, ss *domain.SkuSeries) domain.DecisionRecord {
	lead, source := s.leads.LeadWeeks(ss.Vendor)

	events := demand.EventsInWindow(ss.History, s.window)
	rates := make([]float64, len(events))
	for i, ev := range events {
		rates[i] = ev.RatePerWorkingDay
	}
	est := demand.Estimator(rates, cfg.Estimator)

	in := decision.Input{
		DailyUsage: est.Rate,
		LeadWeeks:  lead,
		TotalQty:   ss.TotalQty,
		Periods:    ss.Periods,
		Rates:      est.Samples,
		RecentRate: ss.Windows.W30.AdjustedRate,
		BaseRate:   ss.Windows.W90.AdjustedRate,
		Kind:       est.Kind,
	}
	rec := domain.DecisionRecord{
		SKU:                ss.SKU,
		Description:        ss.Description,
		Vendor:             ss.Vendor,
		Classification:     ss.Classification,
		Tier:               ss.Tier,
		UsageLabel:         decision.UsageLabel(ss.Classification),
		PatternLabel:       decision.PatternLabel(ss.Classification, ss.Windows.W30.AdjustedRate, ss.Windows.W90.AdjustedRate),
		PlanningWindowDays: s.window,
		PlanningUsage:      demand.PlanningUsage(ss, s.window),
		EstimatorKind:      est.Kind,
		DailyUsage:         est.Rate,
		LeadSource:         source,
		OpenOrders:         s.openOrders[ss.SKU],
		MAPEPercent:        decision.MAPE(ss.History),
	}
	if ss.CurrentStock != nil {
		qty := ss.CurrentStock.Quantity
		date := ss.CurrentStock.Date
		in.OnHand = &qty
		rec.OnHand = &qty
		rec.OnHandDate = &date
	}

	out := decision.Evaluate(in)
	rec.WeeklyUsage = out.WeeklyUsage
	rec.LeadWeeks = out.LeadWeeks
	rec.LeadDays = out.LeadDays
	rec.LeadTimeDemand = out.LeadTimeDemand
	rec.CoverageWeeks = domain.Measure(out.CoverageWeeks)
	rec.Volatility = out.Volatility
	rec.Acceleration = out.Acceleration
	rec.Decision = out.Decision
	rec.RiskScore = out.RiskScore
	rec.RunoutMinWeeks = domain.Measure(out.RunoutMin)
	rec.RunoutMaxWeeks = domain.Measure(out.RunoutMax)

	rec.Recommendation = decision.Recommendation(decision.RecommendationInput{
		Classification: ss.Classification,
		PlanningUsage:  rec.PlanningUsage,
		Window90Raw:    ss.Windows.W90.RawTotal,
		TotalQty:       ss.TotalQty,
		Vendor:         ss.Vendor,
		LeadWeeks:      out.LeadWeeks,
	})
	if ss.Classification == domain.ClassActive {
		rec.Forecast = decision.Forecast(ss.History, decision.ForecastWindow, decision.ForecastHorizon)
	}
	return rec
}
