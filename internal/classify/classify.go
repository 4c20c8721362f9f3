// Package classify assigns movement classes and ABC volume tiers.
package classify

import (
	"math"
	"sort"

	"github.com/andresuchdata/replenish/internal/demand"
	"github.com/andresuchdata/replenish/internal/domain"
)

const (
	// ParetoCVThreshold switches tiering from rank split to Pareto cut.
	ParetoCVThreshold = 1.0

	paretoShareA = 0.80
	paretoShareB = 0.95
	rankShareA   = 0.20
	rankShareAB  = 0.50
	shareEpsilon = 1e-9
)

// Policy names the tiering rule used for a population.
type Policy string

const (
	PolicyPareto Policy = "pareto"
	PolicyRank   Policy = "rank"
	PolicyNone   Policy = "none"
)

// Movement classifies a SKU from its history totals.
func Movement(totalQty float64, positivePeriods int) domain.Classification {
	switch {
	case totalQty <= 0:
		return domain.ClassDead
	case positivePeriods <= 2:
		return domain.ClassLowMovement
	default:
		return domain.ClassActive
	}
}

// TierInput is one SKU's entry in the ABC population. Usage is the average
// usage per working day; Rate90 breaks ties.
type TierInput struct {
	SKU    string
	Usage  float64
	Rate90 float64
}

// AssignTiers returns the ABC tier of every input SKU.
func AssignTiers(items []TierInput) map[string]domain.Tier {
	tiers, _ := AssignTiersWithPolicy(items)
	return tiers
}

// AssignTiersWithPolicy tiers SKUs with positive usage and reports which
// policy applied. SKUs with zero usage are always C.
func AssignTiersWithPolicy(items []TierInput) (map[string]domain.Tier, Policy) {
	tiers := make(map[string]domain.Tier, len(items))
	ranked := make([]TierInput, 0, len(items))
	for _, it := range items {
		tiers[it.SKU] = domain.TierC
		if it.Usage > 0 && !math.IsInf(it.Usage, 0) {
			ranked = append(ranked, it)
		}
	}
	if len(ranked) == 0 {
		return tiers, PolicyNone
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Usage != b.Usage {
			return a.Usage > b.Usage
		}
		if a.Rate90 != b.Rate90 {
			return a.Rate90 > b.Rate90
		}
		return a.SKU < b.SKU
	})

	usages := make([]float64, len(ranked))
	total := 0.0
	for i, it := range ranked {
		usages[i] = it.Usage
		total += it.Usage
	}

	if demand.CoefficientOfVariation(usages) >= ParetoCVThreshold {
		cumulative := 0.0
		for i, it := range ranked {
			cumulative += it.Usage
			share := cumulative / total
			switch {
			case i == 0 || share <= paretoShareA+shareEpsilon:
				tiers[it.SKU] = domain.TierA
			case share <= paretoShareB+shareEpsilon:
				tiers[it.SKU] = domain.TierB
			default:
				tiers[it.SKU] = domain.TierC
			}
		}
		return tiers, PolicyPareto
	}

	n := float64(len(ranked))
	cutA := int(math.Ceil(n * rankShareA))
	cutB := int(math.Ceil(n * rankShareAB))
	for i, it := range ranked {
		switch {
		case i < cutA:
			tiers[it.SKU] = domain.TierA
		case i < cutB:
			tiers[it.SKU] = domain.TierB
		default:
			tiers[it.SKU] = domain.TierC
		}
	}
	return tiers, PolicyRank
}
