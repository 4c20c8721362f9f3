package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/domain"
	"github.com/andresuchdata/replenish/internal/engine"
	"github.com/andresuchdata/replenish/internal/ingest"
)

// Filter narrows SKU and decision listings. Empty fields match everything.
type Filter struct {
	Search         string
	Vendor         string
	Classification domain.Classification
	Tier           domain.Tier
	Decision       domain.Decision
	Page           int
	PageSize       int
}

func (f Filter) matches(sku, description, vendor string, class domain.Classification, tier domain.Tier) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(sku), q) && !strings.Contains(strings.ToLower(description), q) {
			return false
		}
	}
	if f.Vendor != "" && !strings.EqualFold(f.Vendor, vendor) {
		return false
	}
	if f.Classification != "" && f.Classification != class {
		return false
	}
	if f.Tier != "" && f.Tier != tier {
		return false
	}
	return true
}

// page returns the [lo, hi) bounds of the requested page over n items.
func (f Filter) page(n int) (int, int) {
	if f.PageSize <= 0 {
		return 0, n
	}
	p := f.Page
	if p < 1 {
		p = 1
	}
	lo := (p - 1) * f.PageSize
	if lo > n {
		lo = n
	}
	hi := lo + f.PageSize
	if hi > n {
		hi = n
	}
	return lo, hi
}

// SkuSummary is the list view of a series, without the full history.
type SkuSummary struct {
	SKU              string                `json:"sku"`
	Description      string                `json:"description,omitempty"`
	Vendor           string                `json:"vendor,omitempty"`
	Classification   domain.Classification `json:"classification"`
	Tier             domain.Tier           `json:"tier"`
	TotalQty         float64               `json:"total_qty"`
	Periods          int                   `json:"periods"`
	AvgPerWorkingDay float64               `json:"avg_per_working_day"`
	CurrentStock     *domain.StockReading  `json:"current_stock,omitempty"`
}

// PlanningState describes the active planning window.
type PlanningState struct {
	WindowDays int    `json:"window_days"`
	Options    []int  `json:"options"`
	Dataset    string `json:"dataset"`
	Evaluated  string `json:"evaluated_at,omitempty"`
	Report     string `json:"validation_status"`
}

// POImport is what a purchase-order upload produced.
type POImport struct {
	Parse   ingest.POParseStats `json:"parse"`
	Summary engine.POSummary    `json:"summary"`
}

// AnalysisService fronts a single engine for the HTTP binding.
type AnalysisService struct {
	engine    *engine.Engine
	uploadDir string
	opts      ingest.ResolveOptions
}

func NewAnalysisService(eng *engine.Engine, uploadDir string, opts ingest.ResolveOptions) *AnalysisService {
	if uploadDir == "" {
		uploadDir = "data/uploads"
	}
	return &AnalysisService{engine: eng, uploadDir: uploadDir, opts: opts}
}

// UploadPath prepares the upload directory and returns where a file with
// the given name is stored.
func (s *AnalysisService) UploadPath(filename string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	return filepath.Join(s.uploadDir, filepath.Base(filename)), nil
}

// LoadDataset reads a stored counts export and replaces the engine dataset.
// On ErrNoDemandColumns the returned result still carries the report.
func (s *AnalysisService) LoadDataset(ctx context.Context, path string) (*engine.Result, error) {
	ds, err := ingest.LoadCounts(path, s.opts)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.Ingest(ds)
	if err != nil && !errors.Is(err, engine.ErrNoDemandColumns) {
		return nil, err
	}
	log.Info().Str("file", filepath.Base(path)).Int("skus", len(res.Series)).Msg("analysis: dataset loaded")
	return res, err
}

// LoadPurchaseOrders reads a stored purchase-order export into the engine.
func (s *AnalysisService) LoadPurchaseOrders(ctx context.Context, path string) (*POImport, error) {
	pos, stats, err := ingest.LoadPurchaseOrders(path)
	if err != nil {
		return nil, err
	}
	summary := s.engine.IngestPurchaseOrders(pos)
	return &POImport{Parse: stats, Summary: summary}, nil
}

// ListSkus returns matching series summaries and the unpaged total.
func (s *AnalysisService) ListSkus(ctx context.Context, f Filter) ([]SkuSummary, int) {
	out := make([]SkuSummary, 0)
	for _, ss := range s.engine.Series() {
		if !f.matches(ss.SKU, ss.Description, ss.Vendor, ss.Classification, ss.Tier) {
			continue
		}
		out = append(out, SkuSummary{
			SKU:              ss.SKU,
			Description:      ss.Description,
			Vendor:           ss.Vendor,
			Classification:   ss.Classification,
			Tier:             ss.Tier,
			TotalQty:         ss.TotalQty,
			Periods:          ss.Periods,
			AvgPerWorkingDay: ss.AvgPerWorkingDay,
			CurrentStock:     ss.CurrentStock,
		})
	}
	lo, hi := f.page(len(out))
	return out[lo:hi], len(out)
}

func (s *AnalysisService) GetSku(ctx context.Context, sku string) (domain.SkuSeries, error) {
	return s.engine.SeriesFor(sku)
}

func (s *AnalysisService) GetDecision(ctx context.Context, sku string) (domain.DecisionRecord, error) {
	return s.engine.DecisionFor(sku)
}

// ListDecisions returns matching decisions, most at-risk first, and the
// unpaged total.
func (s *AnalysisService) ListDecisions(ctx context.Context, f Filter) ([]domain.DecisionRecord, int) {
	out := make([]domain.DecisionRecord, 0)
	for _, d := range s.engine.Decisions() {
		if !f.matches(d.SKU, d.Description, d.Vendor, d.Classification, d.Tier) {
			continue
		}
		if f.Decision != "" && f.Decision != d.Decision {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return riskOf(out[i]) > riskOf(out[j])
	})
	lo, hi := f.page(len(out))
	return out[lo:hi], len(out)
}

func riskOf(d domain.DecisionRecord) float64 {
	if d.RiskScore == nil {
		return -1
	}
	return *d.RiskScore
}

// AllDecisions returns every decision in dataset order, for exports.
func (s *AnalysisService) AllDecisions(ctx context.Context) []domain.DecisionRecord {
	return s.engine.Decisions()
}

func (s *AnalysisService) Report(ctx context.Context) domain.ValidationReport {
	return s.engine.Report()
}

func (s *AnalysisService) SetSkuVendor(ctx context.Context, sku, vendor string) (domain.DecisionRecord, error) {
	if err := s.engine.SetSkuVendor(sku, vendor); err != nil {
		return domain.DecisionRecord{}, err
	}
	return s.engine.DecisionFor(sku)
}

func (s *AnalysisService) Vendors(ctx context.Context) []domain.VendorLeadProfile {
	return s.engine.Vendors()
}

// VendorLead is the resolved lead time of one vendor.
type VendorLead struct {
	Vendor    string            `json:"vendor"`
	LeadWeeks float64           `json:"lead_weeks"`
	Source    domain.LeadSource `json:"source"`
}

func (s *AnalysisService) SetVendorLeadTime(ctx context.Context, vendor string, weeks float64) (VendorLead, error) {
	if err := s.engine.SetVendorLeadTime(vendor, weeks); err != nil {
		return VendorLead{}, err
	}
	return s.vendorLead(vendor), nil
}

func (s *AnalysisService) ClearVendorLeadTime(ctx context.Context, vendor string) VendorLead {
	s.engine.ClearVendorLeadTime(vendor)
	return s.vendorLead(vendor)
}

func (s *AnalysisService) vendorLead(vendor string) VendorLead {
	weeks, src := s.engine.VendorLeadTime(vendor)
	return VendorLead{Vendor: vendor, LeadWeeks: weeks, Source: src}
}

func (s *AnalysisService) Planning(ctx context.Context) PlanningState {
	st := PlanningState{
		WindowDays: s.engine.PlanningWindow(),
		Options:    append([]int(nil), engine.PlanningWindows...),
		Dataset:    s.engine.DatasetName(),
		Report:     s.engine.Report().Status(),
	}
	if t := s.engine.EvaluatedAt(); !t.IsZero() {
		st.Evaluated = t.Format("2006-01-02")
	}
	return st
}

func (s *AnalysisService) SetPlanningWindow(ctx context.Context, days int) (PlanningState, error) {
	if err := s.engine.SetPlanningWindow(days); err != nil {
		return PlanningState{}, err
	}
	return s.Planning(ctx), nil
}
