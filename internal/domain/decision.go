package domain

import (
	"math"
	"strconv"
	"time"
)

// Measure is a float that may legitimately be infinite (coverage with no
// usage, runout with no usage). It encodes non-finite values as JSON null.
type Measure float64

// Finite reports whether the measure holds a usable number.
func (m Measure) Finite() bool {
	f := float64(m)
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

func (m Measure) MarshalJSON() ([]byte, error) {
	if !m.Finite() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(float64(m), 'f', -1, 64)), nil
}

func (m *Measure) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Measure(math.Inf(1))
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return err
	}
	*m = Measure(f)
	return nil
}

// DecisionRecord is the per-SKU output consumed by any presentation layer.
type DecisionRecord struct {
	SKU                string         `json:"sku"`
	Description        string         `json:"description,omitempty"`
	Vendor             string         `json:"vendor,omitempty"`
	Classification     Classification `json:"classification"`
	Tier               Tier           `json:"tier"`
	UsageLabel         string         `json:"usage_label"`
	PatternLabel       string         `json:"pattern_label"`
	PlanningWindowDays int            `json:"planning_window_days"`
	PlanningUsage      float64        `json:"planning_usage"`

	EstimatorKind  EstimatorKind `json:"estimator_kind"`
	DailyUsage     float64       `json:"daily_usage"`
	WeeklyUsage    float64       `json:"weekly_usage"`
	LeadWeeks      float64       `json:"lead_weeks"`
	LeadSource     LeadSource    `json:"lead_source"`
	LeadDays       int           `json:"lead_days"`
	LeadTimeDemand float64       `json:"lead_time_demand"`

	OnHand        *float64   `json:"on_hand,omitempty"`
	OnHandDate    *time.Time `json:"on_hand_date,omitempty"`
	CoverageWeeks Measure    `json:"coverage_weeks"`
	Volatility    float64    `json:"volatility"`
	Acceleration  float64    `json:"acceleration"`

	Decision       Decision `json:"decision"`
	RiskScore      *float64 `json:"risk_score,omitempty"`
	RunoutMinWeeks Measure  `json:"runout_min_weeks"`
	RunoutMaxWeeks Measure  `json:"runout_max_weeks"`

	OpenOrders     int       `json:"open_orders"`
	Recommendation string    `json:"recommendation"`
	Forecast       []float64 `json:"forecast,omitempty"`
	MAPEPercent    *float64  `json:"mape_percent,omitempty"`
}
