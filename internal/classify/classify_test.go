package classify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/andresuchdata/replenish/internal/demand"
	"github.com/andresuchdata/replenish/internal/domain"
)

func TestMovement(t *testing.T) {
	tests := []struct {
		name     string
		total    float64
		positive int
		want     domain.Classification
	}{
		{"No usage", 0, 0, domain.ClassDead},
		{"Two positive periods", 10, 2, domain.ClassLowMovement},
		{"One positive period", 3, 1, domain.ClassLowMovement},
		{"Five positive periods", 10, 5, domain.ClassActive},
		{"Three positive periods", 10, 3, domain.ClassActive},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Movement(tt.total, tt.positive))
		})
	}
}

func TestAssignTiers_ParetoOnSkewedPopulation(t *testing.T) {
	usages := []float64{100, 20, 10, 5, 3, 2, 1, 1, 0.5, 0.5}
	items := make([]TierInput, len(usages))
	for i, u := range usages {
		items[i] = TierInput{SKU: fmt.Sprintf("SKU-%02d", i), Usage: u}
	}
	assert.GreaterOrEqual(t, demand.CoefficientOfVariation(usages), 1.0)

	tiers, policy := AssignTiersWithPolicy(items)
	assert.Equal(t, PolicyPareto, policy)

	want := map[string]domain.Tier{
		"SKU-00": domain.TierA,
		"SKU-01": domain.TierB,
		"SKU-02": domain.TierB,
		"SKU-03": domain.TierB,
		"SKU-04": domain.TierC,
		"SKU-05": domain.TierC,
		"SKU-06": domain.TierC,
		"SKU-07": domain.TierC,
		"SKU-08": domain.TierC,
		"SKU-09": domain.TierC,
	}
	assert.Equal(t, want, tiers)

	total := 0.0
	for _, u := range usages {
		total += u
	}
	cumulative := 0.0
	for i, u := range usages {
		cumulative += u
		share := cumulative / total
		assert.LessOrEqual(t, share, 1.0+1e-9)
		if i > 0 && share <= 0.8 {
			assert.Equal(t, domain.TierA, tiers[items[i].SKU])
		}
	}
}

func TestAssignTiers_RankOnEvenPopulation(t *testing.T) {
	items := []TierInput{
		{SKU: "E", Usage: 6},
		{SKU: "A", Usage: 10},
		{SKU: "C", Usage: 8},
		{SKU: "B", Usage: 9},
		{SKU: "D", Usage: 7},
	}
	tiers, policy := AssignTiersWithPolicy(items)
	assert.Equal(t, PolicyRank, policy)
	// ceil(20% of 5) = 1 A, ceil(50% of 5) - 1 = 2 B
	assert.Equal(t, map[string]domain.Tier{
		"A": domain.TierA,
		"B": domain.TierB,
		"C": domain.TierB,
		"D": domain.TierC,
		"E": domain.TierC,
	}, tiers)
}

func TestAssignTiers_TieBreak(t *testing.T) {
	items := []TierInput{
		{SKU: "Z", Usage: 5, Rate90: 1},
		{SKU: "Y", Usage: 5, Rate90: 2},
		{SKU: "B", Usage: 5, Rate90: 1},
		{SKU: "A", Usage: 5, Rate90: 1},
		{SKU: "X", Usage: 5, Rate90: 1},
	}
	tiers := AssignTiers(items)
	assert.Equal(t, domain.TierA, tiers["Y"])
	assert.Equal(t, domain.TierB, tiers["A"])
	assert.Equal(t, domain.TierB, tiers["B"])
	assert.Equal(t, domain.TierC, tiers["X"])
	assert.Equal(t, domain.TierC, tiers["Z"])
}

func TestAssignTiers_ZeroUsageIsC(t *testing.T) {
	items := []TierInput{
		{SKU: "idle", Usage: 0},
		{SKU: "busy", Usage: 3},
	}
	tiers, policy := AssignTiersWithPolicy(items)
	assert.Equal(t, PolicyRank, policy)
	assert.Equal(t, domain.TierC, tiers["idle"])
	assert.Equal(t, domain.TierA, tiers["busy"])

	tiers, policy = AssignTiersWithPolicy([]TierInput{{SKU: "idle"}})
	assert.Equal(t, PolicyNone, policy)
	assert.Equal(t, domain.TierC, tiers["idle"])
}
