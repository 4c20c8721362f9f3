package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/calendar"
	"github.com/andresuchdata/replenish/internal/domain"
)

var juneDates = []string{"2024-06-03", "2024-06-10", "2024-06-17", "2024-06-24"}

func fixedNow(s string) func() time.Time {
	return func() time.Time {
		t, _ := calendar.ParseISO(s)
		return t.Add(15 * time.Hour)
	}
}

func testEngine(now string) *Engine {
	cfg := DefaultConfig()
	cfg.Now = fixedNow(now)
	return New(cfg)
}

// dataset builds header-less rows: sku, description, vendor, then one stock
// cell per date in dates (listed in the given order).
func dataset(dates []string, rows ...[]string) domain.Dataset {
	roles := domain.ColumnRoles{Identifier: 0, Description: 1, Vendor: 2, LeadTime: -1}
	for i, d := range dates {
		t, err := calendar.ParseISO(d)
		if err != nil {
			panic(err)
		}
		roles.DateColumns = append(roles.DateColumns, domain.DateColumn{Index: 3 + i, Label: d, Date: t})
	}
	return domain.Dataset{Name: "counts.csv", Roles: roles, Rows: rows}
}

func standardDataset() domain.Dataset {
	return dataset(juneDates,
		[]string{"A", "Widget", "Bolt", "100", "90", "80", "70"},
		[]string{"B", "Gasket", "Acme", "20", "15", "10", "5"},
		[]string{"C", "Spare", "", "5", "5", "5", "5"},
		[]string{"D", "", "", "", "", "", ""},
		[]string{"", "orphan", "", "1", "1", "1", "1"},
		[]string{"A", "Widget again", "Bolt", "500", "1", "1", "1"},
	)
}

func TestEngine_Ingest(t *testing.T) {
	e := testEngine("2024-07-01")
	res, err := e.Ingest(standardDataset())
	require.NoError(t, err)

	require.Len(t, res.Series, 4)
	assert.Equal(t, []string{"A"}, res.Report.DuplicateIdentifiers)
	assert.Equal(t, 1, res.Report.SkippedRows)
	assert.Equal(t, 4, res.Report.MissingCells)
	assert.Equal(t, 4, res.Report.DemandColumns)
	assert.False(t, res.Report.NonChronologicalColumns)

	a, err := e.SeriesFor("A")
	require.NoError(t, err)
	assert.Equal(t, "Widget", a.Description)
	assert.Len(t, a.History, 3)
	assert.InDelta(t, 30.0, a.TotalQty, 1e-9)
	assert.Equal(t, domain.ClassActive, a.Classification)
	assert.Equal(t, domain.TierA, a.Tier)
	assert.InDelta(t, 2.0, a.Windows.W30.AdjustedRate, 1e-9)
	require.NotNil(t, a.CurrentStock)
	assert.Equal(t, 70.0, a.CurrentStock.Quantity)

	c, _ := e.SeriesFor("C")
	assert.Equal(t, domain.ClassDead, c.Classification)
	assert.Equal(t, domain.TierC, c.Tier)

	tests := []struct {
		sku  string
		want domain.Decision
	}{
		{"A", domain.DecisionWatch},
		{"B", domain.DecisionOrderNow},
		{"C", domain.DecisionDoNotStock},
		{"D", domain.DecisionDoNotStock},
	}
	for _, tt := range tests {
		t.Run(tt.sku, func(t *testing.T) {
			rec, err := e.DecisionFor(tt.sku)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Decision)
		})
	}

	b, _ := e.DecisionFor("B")
	assert.InDelta(t, 10.0, b.LeadTimeDemand, 1e-9)
	assert.Equal(t, domain.LeadFromDefault, b.LeadSource)
	assert.Equal(t, "Regular mover", b.UsageLabel)
	assert.Len(t, b.Forecast, 4)
	require.NotNil(t, b.RiskScore)

	_, err = e.DecisionFor("nope")
	assert.True(t, errors.Is(err, ErrUnknownSKU))
}

func TestEngine_Deterministic(t *testing.T) {
	first := testEngine("2024-07-01")
	second := testEngine("2024-07-01")

	_, err := first.Ingest(standardDataset())
	require.NoError(t, err)
	_, err = second.Ingest(standardDataset())
	require.NoError(t, err)
	assert.Equal(t, first.Series(), second.Series())
	assert.Equal(t, first.Decisions(), second.Decisions())

	again := first.Decisions()
	_, err = first.Ingest(standardDataset())
	require.NoError(t, err)
	assert.Equal(t, again, first.Decisions())
}

func TestEngine_CurrentStockNeverFuture(t *testing.T) {
	e := testEngine("2024-06-12")
	_, err := e.Ingest(standardDataset())
	require.NoError(t, err)

	a, _ := e.SeriesFor("A")
	require.NotNil(t, a.CurrentStock)
	assert.Equal(t, "2024-06-10", calendar.FormatISO(a.CurrentStock.Date))
	assert.Equal(t, 90.0, a.CurrentStock.Quantity)

	e = testEngine("2024-06-01")
	_, err = e.Ingest(standardDataset())
	require.NoError(t, err)
	b, _ := e.DecisionFor("B")
	assert.Nil(t, b.OnHand)
	assert.Equal(t, domain.DecisionInsufficient, b.Decision)
	assert.Nil(t, b.RiskScore)
}

func TestEngine_CurrentStockSkipsInvalidCells(t *testing.T) {
	e := testEngine("2024-07-01")
	_, err := e.Ingest(dataset(juneDates, []string{"E", "", "", "10", "8", "6", "oops"}))
	require.NoError(t, err)

	s, _ := e.SeriesFor("E")
	require.NotNil(t, s.CurrentStock)
	assert.Equal(t, 6.0, s.CurrentStock.Quantity)
	assert.Equal(t, 1, e.Report().InvalidCells)
}

func TestEngine_NonChronologicalColumns(t *testing.T) {
	reversed := []string{juneDates[3], juneDates[2], juneDates[1], juneDates[0]}
	e := testEngine("2024-07-01")
	res, err := e.Ingest(dataset(reversed, []string{"A", "", "", "70", "80", "90", "100"}))
	require.NoError(t, err)

	assert.True(t, res.Report.NonChronologicalColumns)
	a, _ := e.SeriesFor("A")
	assert.InDelta(t, 30.0, a.TotalQty, 1e-9)
	assert.Zero(t, res.Report.ReplenishmentEvents)
}

func TestEngine_NoDemandColumns(t *testing.T) {
	e := testEngine("2024-07-01")
	_, err := e.Ingest(standardDataset())
	require.NoError(t, err)

	res, err := e.Ingest(dataset(juneDates[:1], []string{"A", "", "", "5"}))
	assert.True(t, errors.Is(err, ErrNoDemandColumns))
	require.NotNil(t, res)
	assert.Empty(t, res.Series)
	assert.True(t, res.Report.NoDemandColumns)
	assert.Empty(t, e.Series())
	assert.Empty(t, e.Decisions())
	assert.True(t, e.Report().NoDemandColumns)
}

func TestEngine_SetVendorLeadTime(t *testing.T) {
	e := testEngine("2024-07-01")
	_, err := e.Ingest(standardDataset())
	require.NoError(t, err)

	require.NoError(t, e.SetVendorLeadTime("Acme", 0.5))
	b, _ := e.DecisionFor("B")
	assert.Equal(t, 0.5, b.LeadWeeks)
	assert.Equal(t, domain.LeadFromOverride, b.LeadSource)
	assert.InDelta(t, 2.5, b.LeadTimeDemand, 1e-9)
	assert.Equal(t, domain.DecisionWatch, b.Decision)

	err = e.SetVendorLeadTime("Acme", -1)
	assert.True(t, errors.Is(err, ErrInvalidLeadTime))

	e.ClearVendorLeadTime("Acme")
	b, _ = e.DecisionFor("B")
	assert.Equal(t, domain.DecisionOrderNow, b.Decision)
	assert.Equal(t, domain.LeadFromDefault, b.LeadSource)
}

func TestEngine_OverrideSurvivesReingest(t *testing.T) {
	e := testEngine("2024-07-01")
	_, err := e.Ingest(standardDataset())
	require.NoError(t, err)
	require.NoError(t, e.SetVendorLeadTime("Acme", 0.5))

	_, err = e.Ingest(standardDataset())
	require.NoError(t, err)
	b, _ := e.DecisionFor("B")
	assert.Equal(t, domain.LeadFromOverride, b.LeadSource)
}

func TestEngine_SetPlanningWindow(t *testing.T) {
	e := testEngine("2024-07-01")
	_, err := e.Ingest(standardDataset())
	require.NoError(t, err)
	assert.Equal(t, 90, e.PlanningWindow())

	err = e.SetPlanningWindow(45)
	assert.True(t, errors.Is(err, ErrInvalidWindow))
	assert.Equal(t, 90, e.PlanningWindow())

	require.NoError(t, e.SetPlanningWindow(0))
	a, _ := e.DecisionFor("A")
	assert.Equal(t, 0, a.PlanningWindowDays)
	assert.InDelta(t, 2.0, a.PlanningUsage, 1e-9)
}

func TestEngine_SetSkuVendorKeepsHistory(t *testing.T) {
	e := testEngine("2024-07-01")
	_, err := e.Ingest(standardDataset())
	require.NoError(t, err)
	before := e.Series()

	require.NoError(t, e.SetSkuVendor("C", " Acme "))
	c, _ := e.SeriesFor("C")
	assert.Equal(t, "Acme", c.Vendor)
	assert.Equal(t, before[2].History, c.History)
	assert.Equal(t, "", before[2].Vendor)

	err = e.SetSkuVendor("missing", "Acme")
	assert.True(t, errors.Is(err, ErrUnknownSKU))
}

func TestEngine_IngestPurchaseOrders(t *testing.T) {
	e := testEngine("2024-07-01")
	_, err := e.Ingest(standardDataset())
	require.NoError(t, err)

	order, _ := calendar.ParseISO("2024-01-01")
	recv, _ := calendar.ParseISO("2024-01-22")
	open, _ := calendar.ParseISO("2024-06-20")
	summary := e.IngestPurchaseOrders([]domain.PurchaseOrder{
		{SKU: "B", Vendor: "Acme", OrderDate: order, ReceiveDate: &recv},
		{SKU: "B", Vendor: "Acme", OrderDate: open},
		{SKU: "B", Vendor: "Acme", OrderDate: recv, ReceiveDate: &order},
	})
	assert.Equal(t, 1, summary.Samples)
	assert.Equal(t, 1, summary.Discarded)
	assert.Equal(t, 1, summary.Open)

	b, _ := e.DecisionFor("B")
	assert.InDelta(t, 3.0, b.LeadWeeks, 1e-9)
	assert.Equal(t, domain.LeadFromObserved, b.LeadSource)
	assert.Equal(t, 1, b.OpenOrders)

	vendors := e.Vendors()
	require.Len(t, vendors, 1)
	assert.Equal(t, "Acme", vendors[0].Vendor)
}

func TestEngine_LeadColumnFeedsVendorSamples(t *testing.T) {
	ds := dataset(juneDates,
		[]string{"A", "", "Bolt", "100", "90", "80", "70", "4"},
		[]string{"B", "", "Bolt", "20", "15", "10", "5", "6"},
	)
	ds.Roles.LeadTime = 7

	e := testEngine("2024-07-01")
	_, err := e.Ingest(ds)
	require.NoError(t, err)

	weeks, src := e.VendorLeadTime("Bolt")
	assert.Equal(t, 5.0, weeks)
	assert.Equal(t, domain.LeadFromObserved, src)
}

func TestEngine_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	e := testEngine("2024-07-01")
	_, err := e.Ingest(standardDataset())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				recs := e.Decisions()
				for _, r := range recs {
					assert.Equal(t, recs[0].PlanningWindowDays, r.PlanningWindowDays)
				}
				assert.Len(t, recs, 4)
			}
		}()
	}
	for _, w := range []int{30, 60, 90, 0} {
		require.NoError(t, e.SetPlanningWindow(w))
	}
	wg.Wait()
}
