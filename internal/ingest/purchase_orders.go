package ingest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/replenish/internal/domain"
)

// ErrMissingColumn is returned when a required purchase-order column is absent.
var ErrMissingColumn = errors.New("required column not found")

var poDateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"02-Jan-2006",
	"2-Jan-06",
}

// POColumns locates the purchase-order fields in a header. -1 means absent.
type POColumns struct {
	SKU         int
	Vendor      int
	OrderDate   int
	ReceiveDate int
}

// POParseStats counts what happened to each purchase-order row.
type POParseStats struct {
	Rows    int `json:"rows"`
	Parsed  int `json:"parsed"`
	Skipped int `json:"skipped"`
}

// ResolvePurchaseOrders finds the identifier, vendor, order date and
// receive date columns. Identifier and order date are required.
func ResolvePurchaseOrders(header []string) (POColumns, error) {
	lower := make([]string, len(header))
	for i, h := range header {
		lower[i] = strings.ToLower(strings.TrimSpace(h))
	}

	cols := POColumns{
		SKU: firstMatch(lower,
			func(h string) bool { return h == "sku" },
			func(h string) bool { return strings.Contains(h, "sku") },
			func(h string) bool { return strings.Contains(h, "item") && !strings.Contains(h, "desc") },
			func(h string) bool { return strings.Contains(h, "part") && !strings.Contains(h, "desc") },
		),
		Vendor: firstMatch(lower, func(h string) bool {
			return strings.Contains(h, "vendor") || strings.Contains(h, "supplier")
		}),
		OrderDate: firstMatch(lower,
			func(h string) bool { return strings.Contains(h, "order") && strings.Contains(h, "date") },
			func(h string) bool { return strings.Contains(h, "ordered") },
		),
		ReceiveDate: firstMatch(lower, func(h string) bool {
			return strings.Contains(h, "receiv") || strings.Contains(h, "arriv")
		}),
	}

	if cols.SKU < 0 {
		return cols, fmt.Errorf("purchase orders: identifier: %w", ErrMissingColumn)
	}
	if cols.OrderDate < 0 {
		return cols, fmt.Errorf("purchase orders: order date: %w", ErrMissingColumn)
	}
	return cols, nil
}

// ReadPurchaseOrders converts table rows into purchase orders. Rows without
// an identifier or a parseable order date are skipped, as are rows whose
// receive date is present but unreadable.
func ReadPurchaseOrders(t Table) ([]domain.PurchaseOrder, POParseStats, error) {
	cols, err := ResolvePurchaseOrders(t.Header)
	if err != nil {
		return nil, POParseStats{}, err
	}

	stats := POParseStats{Rows: len(t.Rows)}
	out := make([]domain.PurchaseOrder, 0, len(t.Rows))
	for _, row := range t.Rows {
		sku := domain.Cell(row, cols.SKU)
		ordered, ok := ParseDate(domain.Cell(row, cols.OrderDate))
		if sku == "" || !ok {
			stats.Skipped++
			continue
		}

		po := domain.PurchaseOrder{
			SKU:       sku,
			Vendor:    domain.Cell(row, cols.Vendor),
			OrderDate: ordered,
		}
		if raw := domain.Cell(row, cols.ReceiveDate); raw != "" {
			received, ok := ParseDate(raw)
			if !ok {
				stats.Skipped++
				continue
			}
			po.ReceiveDate = &received
		}
		out = append(out, po)
		stats.Parsed++
	}
	return out, stats, nil
}

// LoadPurchaseOrders reads a purchase-order export from disk.
func LoadPurchaseOrders(path string) ([]domain.PurchaseOrder, POParseStats, error) {
	t, err := ReadFile(path)
	if err != nil {
		return nil, POParseStats{}, fmt.Errorf("load purchase orders: %w", err)
	}
	return ReadPurchaseOrders(t)
}

// ParseDate accepts the date layouts purchase-order exports use.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range poDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func firstMatch(lower []string, preds ...func(string) bool) int {
	for _, pred := range preds {
		for i, h := range lower {
			if pred(h) {
				return i
			}
		}
	}
	return -1
}
