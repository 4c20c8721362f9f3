package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/engine"
	"github.com/andresuchdata/replenish/internal/ingest"
)

const countsCSV = "SKU,Description,Vendor,2024-06-03,2024-06-10,2024-06-17\n" +
	"A-1,Blue widget,Acme,40,20,5\n" +
	"B-2,Red widget,Acme,10,9,8\n" +
	"C-3,Gasket,Globex,3,3,3\n"

func newService(t *testing.T) (*AnalysisService, string) {
	t.Helper()
	today := time.Date(2024, 6, 24, 0, 0, 0, 0, time.UTC)
	cfg := engine.DefaultConfig()
	cfg.Now = func() time.Time { return today }
	dir := t.TempDir()
	svc := NewAnalysisService(engine.New(cfg), dir, ingest.ResolveOptions{Today: today})

	path, err := svc.UploadPath("counts.csv")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(countsCSV), 0o644))
	return svc, path
}

func TestAnalysisService_LoadDataset(t *testing.T) {
	svc, path := newService(t)
	ctx := context.Background()

	res, err := svc.LoadDataset(ctx, path)
	require.NoError(t, err)
	assert.Len(t, res.Series, 3)

	skus, total := svc.ListSkus(ctx, Filter{})
	assert.Equal(t, 3, total)
	assert.Equal(t, "A-1", skus[0].SKU)

	planning := svc.Planning(ctx)
	assert.Equal(t, "counts.csv", planning.Dataset)
	assert.Equal(t, "2024-06-24", planning.Evaluated)
	assert.Equal(t, 90, planning.WindowDays)
}

func TestAnalysisService_NoDemandColumns(t *testing.T) {
	svc, _ := newService(t)
	path := filepath.Join(t.TempDir(), "flat.csv")
	require.NoError(t, os.WriteFile(path, []byte("SKU,2024-06-03\nA-1,4\n"), 0o644))

	res, err := svc.LoadDataset(context.Background(), path)
	assert.ErrorIs(t, err, engine.ErrNoDemandColumns)
	require.NotNil(t, res)
	assert.True(t, res.Report.NoDemandColumns)
}

func TestAnalysisService_Filters(t *testing.T) {
	svc, path := newService(t)
	ctx := context.Background()
	_, err := svc.LoadDataset(ctx, path)
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"vendor", Filter{Vendor: "acme"}, 2},
		{"search description", Filter{Search: "gasket"}, 1},
		{"search sku", Filter{Search: "b-2"}, 1},
		{"no match", Filter{Vendor: "Initech"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, total := svc.ListSkus(ctx, tt.filter)
			assert.Equal(t, tt.want, total)
			decisions, total := svc.ListDecisions(ctx, tt.filter)
			assert.Equal(t, tt.want, total)
			assert.Len(t, decisions, tt.want)
		})
	}
}

func TestAnalysisService_Paging(t *testing.T) {
	svc, path := newService(t)
	ctx := context.Background()
	_, err := svc.LoadDataset(ctx, path)
	require.NoError(t, err)

	page, total := svc.ListSkus(ctx, Filter{Page: 2, PageSize: 2})
	assert.Equal(t, 3, total)
	require.Len(t, page, 1)
	assert.Equal(t, "C-3", page[0].SKU)

	page, _ = svc.ListSkus(ctx, Filter{Page: 5, PageSize: 2})
	assert.Empty(t, page)
}

func TestAnalysisService_DecisionsSortedByRisk(t *testing.T) {
	svc, path := newService(t)
	ctx := context.Background()
	_, err := svc.LoadDataset(ctx, path)
	require.NoError(t, err)

	decisions, _ := svc.ListDecisions(ctx, Filter{})
	for i := 1; i < len(decisions); i++ {
		assert.GreaterOrEqual(t, riskOf(decisions[i-1]), riskOf(decisions[i]))
	}
}

func TestAnalysisService_Edits(t *testing.T) {
	svc, path := newService(t)
	ctx := context.Background()
	_, err := svc.LoadDataset(ctx, path)
	require.NoError(t, err)

	lead, err := svc.SetVendorLeadTime(ctx, "Acme", 3)
	require.NoError(t, err)
	assert.Equal(t, VendorLead{Vendor: "Acme", LeadWeeks: 3, Source: domain.LeadFromOverride}, lead)

	d, err := svc.GetDecision(ctx, "A-1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, d.LeadWeeks)

	_, err = svc.SetVendorLeadTime(ctx, "Acme", -1)
	assert.ErrorIs(t, err, engine.ErrInvalidLeadTime)

	lead = svc.ClearVendorLeadTime(ctx, "Acme")
	assert.Equal(t, domain.LeadFromDefault, lead.Source)

	d, err = svc.SetSkuVendor(ctx, "C-3", "Acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", d.Vendor)

	_, err = svc.SetSkuVendor(ctx, "Z-9", "Acme")
	assert.ErrorIs(t, err, engine.ErrUnknownSKU)

	st, err := svc.SetPlanningWindow(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, st.WindowDays)

	_, err = svc.SetPlanningWindow(ctx, 45)
	assert.ErrorIs(t, err, engine.ErrInvalidWindow)
}

func TestAnalysisService_LoadPurchaseOrders(t *testing.T) {
	svc, path := newService(t)
	ctx := context.Background()
	_, err := svc.LoadDataset(ctx, path)
	require.NoError(t, err)

	poPath := filepath.Join(t.TempDir(), "po.csv")
	content := "SKU,Vendor,Order Date,Received Date\n" +
		"A-1,Acme,2024-05-01,2024-05-22\n" +
		"B-2,Acme,2024-06-10,\n" +
		",Acme,2024-06-10,\n"
	require.NoError(t, os.WriteFile(poPath, []byte(content), 0o644))

	imp, err := svc.LoadPurchaseOrders(ctx, poPath)
	require.NoError(t, err)
	assert.Equal(t, 1, imp.Parse.Skipped)
	assert.Equal(t, 1, imp.Summary.Samples)
	assert.Equal(t, 1, imp.Summary.Open)

	d, err := svc.GetDecision(ctx, "A-1")
	require.NoError(t, err)
	assert.Equal(t, 3.0, d.LeadWeeks)
	assert.Equal(t, domain.LeadFromObserved, d.LeadSource)
}
