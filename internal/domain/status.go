package domain

import "strings"

// Classification is the movement tier of a SKU.
type Classification string

const (
	ClassActive      Classification = "Active"
	ClassLowMovement Classification = "Low-Movement"
	ClassDead        Classification = "Dead"
)

// Tier is the ABC volume tier.
type Tier string

const (
	TierA Tier = "A"
	TierB Tier = "B"
	TierC Tier = "C"
)

// EstimatorKind tells which smoothing method produced a usage rate.
type EstimatorKind string

const (
	EstimatorStable       EstimatorKind = "stable"
	EstimatorVolatile     EstimatorKind = "volatile"
	EstimatorIntermittent EstimatorKind = "intermittent"
)

// Decision is the discrete stocking outcome for a SKU.
type Decision string

const (
	DecisionDoNotStock   Decision = "Do Not Stock"
	DecisionInsufficient Decision = "Insufficient Inventory Visibility"
	DecisionOrderNow     Decision = "Order Now"
	DecisionOrderSoon    Decision = "Order Soon"
	DecisionWatch        Decision = "Watch"
)

var decisionCodes = map[string]Decision{
	"do_not_stock": DecisionDoNotStock,
	"insufficient": DecisionInsufficient,
	"order_now":    DecisionOrderNow,
	"order_soon":   DecisionOrderSoon,
	"watch":        DecisionWatch,
}

// ParseDecision accepts either the display label or a snake_case code
// (case-insensitive), as used by query filters.
func ParseDecision(label string) (Decision, bool) {
	key := strings.ToLower(strings.TrimSpace(label))
	if d, ok := decisionCodes[key]; ok {
		return d, true
	}
	for _, d := range decisionCodes {
		if strings.EqualFold(string(d), key) {
			return d, true
		}
	}
	return "", false
}

// LeadSource records where a vendor lead time came from.
type LeadSource string

const (
	LeadFromOverride LeadSource = "override"
	LeadFromObserved LeadSource = "observed"
	LeadFromDefault  LeadSource = "default"
)
