package decision

import (
	"fmt"
	"math"
	"strconv"

	"github.com/andresuchdata/replenish/internal/domain"
)

const patternBand = 0.25

// UsageLabel is the plain-language movement label.
func UsageLabel(c domain.Classification) string {
	switch c {
	case domain.ClassActive:
		return "Regular mover"
	case domain.ClassLowMovement:
		return "Slow mover"
	default:
		return "No recent usage"
	}
}

// PatternLabel compares the 30-day rate against the 90-day rate.
func PatternLabel(c domain.Classification, rate30, rate90 float64) string {
	switch c {
	case domain.ClassDead:
		return "No recent usage"
	case domain.ClassLowMovement:
		return "Infrequent usage"
	}
	if rate90 == 0 && rate30 == 0 {
		return "Stable at low usage"
	}
	ratio := 0.0
	if rate90 > 0 {
		ratio = (rate30 - rate90) / rate90
	}
	switch {
	case ratio > patternBand:
		return "Demand increasing (last 30d > 90d)"
	case ratio < -patternBand:
		return "Demand slowing (last 30d < 90d)"
	default:
		return "Stable demand"
	}
}

// RecommendationInput is what the guidance text is built from.
type RecommendationInput struct {
	Classification domain.Classification
	PlanningUsage  float64
	Window90Raw    float64
	TotalQty       float64
	Vendor         string
	LeadWeeks      float64
}

// Recommendation returns the guidance sentence shown next to a decision.
func Recommendation(in RecommendationInput) string {
	if in.Classification == domain.ClassDead || (in.Window90Raw == 0 && in.TotalQty == 0) {
		return "Hold at zero and order only when a real requirement appears."
	}
	if in.Classification == domain.ClassLowMovement {
		return fmt.Sprintf("Keep minimal stock based on roughly %.2f units per working day.", in.PlanningUsage)
	}

	lead := in.LeadWeeks
	if lead <= 0 || math.IsNaN(lead) || math.IsInf(lead, 0) {
		lead = DefaultLeadWeeks
	}
	weekly := in.PlanningUsage * WorkingDaysPerWeek
	buffer := math.Max(math.Round(weekly*lead), 1)
	leadText := strconv.FormatFloat(math.Round(lead*10)/10, 'f', -1, 64)

	if in.Vendor != "" {
		return fmt.Sprintf("Plan for about %.0f units per week and keep %.0f units (~%s weeks of cover for %s).",
			math.Round(weekly), buffer, leadText, in.Vendor)
	}
	return fmt.Sprintf("Plan for about %.0f units per week and keep %.0f units (~%s weeks of cover).",
		math.Round(weekly), buffer, leadText)
}
