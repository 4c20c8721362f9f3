// Package decision turns a smoothed usage rate, lead time and on-hand stock
// into a stocking decision, a stockout risk score and a runout range.
package decision

import (
	"math"

	"github.com/andresuchdata/replenish/internal/demand"
	"github.com/andresuchdata/replenish/internal/domain"
)

const (
	DefaultLeadWeeks   = 2.0
	WorkingDaysPerWeek = 5.0
	OrderSoonFactor    = 1.2

	riskBase          = 40.0
	riskLeadWeight    = 12.0
	riskVolWeight     = 20.0
	riskAccelWeight   = 15.0
	riskCeiling       = 95.0
	riskBaseShare     = 0.6
	penaltyIntermit   = 20.0
	penaltyDefault    = 10.0
	runoutAccelFloor  = 0.5
	accelerationOnset = 1.0
)

// Input is everything the rule needs for one SKU. OnHand is nil when no
// usable, non-future observation exists.
type Input struct {
	DailyUsage float64
	LeadWeeks  float64
	OnHand     *float64
	TotalQty   float64
	Periods    int
	Rates      []float64
	RecentRate float64
	BaseRate   float64
	Kind       domain.EstimatorKind
}

// Outcome carries the derived quantities and the decision. Coverage and
// runout are +Inf when weekly usage is 0.
type Outcome struct {
	WeeklyUsage    float64
	LeadWeeks      float64
	LeadDays       int
	LeadTimeDemand float64
	CoverageWeeks  float64
	Volatility     float64
	Acceleration   float64
	Decision       domain.Decision
	RiskScore      *float64
	RunoutMin      float64
	RunoutMax      float64
}

// Evaluate applies the decision rule in priority order: no history, no
// visibility, order now, order soon, watch. It never panics.
func Evaluate(in Input) Outcome {
	daily := finiteOrZero(in.DailyUsage)
	if daily < 0 {
		daily = 0
	}
	lead := in.LeadWeeks
	if !finite(lead) || lead <= 0 {
		lead = DefaultLeadWeeks
	}
	total := finiteOrZero(in.TotalQty)

	out := Outcome{
		WeeklyUsage:   daily * WorkingDaysPerWeek,
		LeadWeeks:     lead,
		LeadDays:      int(math.Round(lead * 7)),
		CoverageWeeks: math.Inf(1),
		Volatility:    Volatility(in.Rates),
		Acceleration:  Acceleration(in.RecentRate, in.BaseRate),
	}
	// usage is per working day, so lead time demand is counted in working days
	out.LeadTimeDemand = out.WeeklyUsage * lead
	out.RunoutMin, out.RunoutMax = Runout(total, out.WeeklyUsage, out.Volatility, out.Acceleration)

	if in.Periods == 0 || total <= 0 || daily == 0 {
		out.Decision = domain.DecisionDoNotStock
		return out
	}

	if in.OnHand == nil || !finite(*in.OnHand) || *in.OnHand < 0 {
		out.Decision = domain.DecisionInsufficient
		return out
	}

	onHand := *in.OnHand
	out.CoverageWeeks = onHand / out.WeeklyUsage
	switch {
	case onHand < out.LeadTimeDemand:
		out.Decision = domain.DecisionOrderNow
	case out.CoverageWeeks < lead*OrderSoonFactor:
		out.Decision = domain.DecisionOrderSoon
	default:
		out.Decision = domain.DecisionWatch
	}

	risk := RiskScore(lead, out.CoverageWeeks, out.Volatility, out.Acceleration, in.Kind)
	out.RiskScore = &risk
	return out
}

// Volatility is the coefficient of variation of recent rates.
func Volatility(rates []float64) float64 {
	return finiteOrZero(demand.CoefficientOfVariation(rates))
}

// Acceleration compares a recent window rate to a baseline. A baseline of 0
// yields 0 when recent usage is also 0, and 1 when it is positive.
func Acceleration(recent, base float64) float64 {
	if !finite(recent) || !finite(base) {
		return 0
	}
	if base == 0 {
		if recent > 0 {
			return accelerationOnset
		}
		return 0
	}
	return (recent - base) / base
}

// RiskScore blends the clamped base risk 60/40 with an estimator penalty.
func RiskScore(leadWeeks, coverageWeeks, volatility, acceleration float64, kind domain.EstimatorKind) float64 {
	base := riskBase +
		(leadWeeks-coverageWeeks)*riskLeadWeight +
		volatility*riskVolWeight -
		acceleration*riskAccelWeight
	base = clamp(base, 0, riskCeiling)

	penalty := penaltyDefault
	if kind == domain.EstimatorIntermittent {
		penalty = penaltyIntermit
	}
	return riskBaseShare*base + (1-riskBaseShare)*penalty
}

// Runout estimates the weeks until stock reaches zero. Both bounds are +Inf
// when weekly usage is 0 and never negative.
func Runout(totalQty, weeklyUsage, volatility, acceleration float64) (lo, hi float64) {
	if weeklyUsage <= 0 || !finite(weeklyUsage) {
		return math.Inf(1), math.Inf(1)
	}
	if totalQty < 0 {
		totalQty = 0
	}
	vol := math.Max(volatility, 0)
	lo = totalQty / (weeklyUsage * (1 + vol))
	hi = totalQty / (weeklyUsage * math.Max(runoutAccelFloor, 1+acceleration))
	return lo, hi
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(math.Max(v, lo), hi)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func finiteOrZero(f float64) float64 {
	if !finite(f) {
		return 0
	}
	return f
}
