// Package leadtime keeps per-vendor lead-time samples and overrides.
package leadtime

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/andresuchdata/replenish/internal/domain"
)

// ErrInvalidLeadTime is returned for a non-positive or non-finite override.
var ErrInvalidLeadTime = errors.New("lead time must be a positive number of weeks")

// Table maps vendor names to lead-time profiles. A Table is not safe for
// concurrent mutation; callers Clone before editing a shared one.
type Table struct {
	defaultWeeks float64
	profiles     map[string]*domain.VendorLeadProfile
}

// NewTable returns an empty table that falls back to defaultWeeks.
func NewTable(defaultWeeks float64) *Table {
	if !valid(defaultWeeks) {
		defaultWeeks = 2
	}
	return &Table{
		defaultWeeks: defaultWeeks,
		profiles:     make(map[string]*domain.VendorLeadProfile),
	}
}

// DefaultWeeks is the lead time used for vendors with no data.
func (t *Table) DefaultWeeks() float64 { return t.defaultWeeks }

func (t *Table) profile(vendor string) *domain.VendorLeadProfile {
	p, ok := t.profiles[vendor]
	if !ok {
		p = &domain.VendorLeadProfile{Vendor: vendor}
		t.profiles[vendor] = p
	}
	return p
}

// AddSample appends an observed lead time. Non-positive and non-finite
// samples, and samples without a vendor, are discarded.
func (t *Table) AddSample(vendor string, weeks float64) bool {
	vendor = strings.TrimSpace(vendor)
	if vendor == "" || !valid(weeks) {
		return false
	}
	p := t.profile(vendor)
	p.Samples = append(p.Samples, weeks)
	return true
}

// SetOverride pins the vendor's lead time regardless of samples.
func (t *Table) SetOverride(vendor string, weeks float64) error {
	vendor = strings.TrimSpace(vendor)
	if vendor == "" {
		return fmt.Errorf("set lead time: empty vendor name")
	}
	if !valid(weeks) {
		return fmt.Errorf("set lead time for %s: %w", vendor, ErrInvalidLeadTime)
	}
	w := weeks
	t.profile(vendor).Override = &w
	return nil
}

// ClearOverride removes a manual override. It reports whether one existed.
func (t *Table) ClearOverride(vendor string) bool {
	p, ok := t.profiles[strings.TrimSpace(vendor)]
	if !ok || p.Override == nil {
		return false
	}
	p.Override = nil
	return true
}

// Profile returns a copy of the vendor's profile.
func (t *Table) Profile(vendor string) (domain.VendorLeadProfile, bool) {
	p, ok := t.profiles[strings.TrimSpace(vendor)]
	if !ok {
		return domain.VendorLeadProfile{}, false
	}
	return copyProfile(p), true
}

// LeadWeeks resolves override, then median sample, then the default. An
// empty vendor always gets the default.
func (t *Table) LeadWeeks(vendor string) (float64, domain.LeadSource) {
	p, ok := t.profiles[strings.TrimSpace(vendor)]
	if !ok {
		return t.defaultWeeks, domain.LeadFromDefault
	}
	return p.LeadWeeks(t.defaultWeeks)
}

// Profiles returns every profile sorted by vendor name.
func (t *Table) Profiles() []domain.VendorLeadProfile {
	out := make([]domain.VendorLeadProfile, 0, len(t.profiles))
	for _, p := range t.profiles {
		out = append(out, copyProfile(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Vendor < out[j].Vendor })
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	c := &Table{
		defaultWeeks: t.defaultWeeks,
		profiles:     make(map[string]*domain.VendorLeadProfile, len(t.profiles)),
	}
	for k, p := range t.profiles {
		cp := copyProfile(p)
		c.profiles[k] = &cp
	}
	return c
}

// Tally summarizes a purchase-order load.
type Tally struct {
	Orders    int            `json:"orders"`
	Samples   int            `json:"samples"`
	Discarded int            `json:"discarded"`
	Open      int            `json:"open"`
	OpenBySKU map[string]int `json:"open_by_sku"`
}

// AddPurchaseOrders appends a sample for every received order and counts
// open orders per SKU.
func (t *Table) AddPurchaseOrders(pos []domain.PurchaseOrder) Tally {
	tally := Tally{Orders: len(pos), OpenBySKU: make(map[string]int)}
	for _, po := range pos {
		if po.IsOpen() {
			tally.Open++
			if sku := strings.TrimSpace(po.SKU); sku != "" {
				tally.OpenBySKU[sku]++
			}
			continue
		}
		weeks, ok := po.LeadWeeks()
		if ok && t.AddSample(po.Vendor, weeks) {
			tally.Samples++
			continue
		}
		tally.Discarded++
	}
	return tally
}

func copyProfile(p *domain.VendorLeadProfile) domain.VendorLeadProfile {
	cp := domain.VendorLeadProfile{
		Vendor:  p.Vendor,
		Samples: append([]float64(nil), p.Samples...),
	}
	if p.Override != nil {
		w := *p.Override
		cp.Override = &w
	}
	return cp
}

func valid(weeks float64) bool {
	return weeks > 0 && !math.IsInf(weeks, 0) && !math.IsNaN(weeks)
}
