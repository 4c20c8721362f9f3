package engine

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

func (e *Engine) mutate(fn func(*snapshot) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	next := e.load().clone()
	if err := fn(next); err != nil {
		return err
	}
	next.derive(e.cfg)
	e.state.Store(next)
	return nil
}

// SetVendorLeadTime overrides a vendor's lead time in weeks.
func (e *Engine) SetVendorLeadTime(vendor string, weeks float64) error {
	return e.mutate(func(s *snapshot) error {
		if err := s.poLeads.SetOverride(vendor, weeks); err != nil {
			return err
		}
		s.rebuildLeads()
		log.Info().Str("vendor", vendor).Float64("weeks", weeks).Msg("engine: lead time override set")
		return nil
	})
}

// ClearVendorLeadTime drops a manual override. It is a no-op for vendors
// without one.
func (e *Engine) ClearVendorLeadTime(vendor string) {
	_ = e.mutate(func(s *snapshot) error {
		if s.poLeads.ClearOverride(vendor) {
			s.rebuildLeads()
		}
		return nil
	})
}

// SetSkuVendor reassigns a SKU to another vendor.
func (e *Engine) SetSkuVendor(sku, vendor string) error {
	return e.mutate(func(s *snapshot) error {
		i, ok := s.index[sku]
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownSKU, sku)
		}
		s.series[i].Vendor = strings.TrimSpace(vendor)
		return nil
	})
}

// SetPlanningWindow selects the window feeding planning usage and the
// estimator: 30, 60, 90, or 0 for the whole history.
func (e *Engine) SetPlanningWindow(days int) error {
	if !validWindow(days) {
		return fmt.Errorf("%w: got %d", ErrInvalidWindow, days)
	}
	return e.mutate(func(s *snapshot) error {
		s.window = days
		return nil
	})
}
