// Package demand turns dated stock levels into consumption history, windowed
// usage and smoothed rates.
package demand

import (
	"sort"

	"github.com/andresuchdata/replenish/internal/calendar"
	"github.com/andresuchdata/replenish/internal/domain"
)

// Series is the consumption history derived from one SKU's observations.
type Series struct {
	Events           []domain.ConsumptionEvent
	TotalQty         float64
	Periods          int
	PositivePeriods  int
	TotalWorkingDays int
	Replenishments   int
}

// SortObservations orders observations by date and drops any later entry
// repeating a date already seen. The input slice is not modified.
func SortObservations(obs []domain.Observation) []domain.Observation {
	sorted := append([]domain.Observation(nil), obs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})

	out := sorted[:0]
	for _, o := range sorted {
		if len(out) > 0 && calendar.Day(o.Date).Equal(calendar.Day(out[len(out)-1].Date)) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// BuildSeries derives one consumption event per consecutive pair of
// observations. A stock increase is a replenishment, never negative usage.
// Missing and invalid cells count as zero stock for the delta.
func BuildSeries(cal *calendar.Calendar, obs []domain.Observation) Series {
	sorted := SortObservations(obs)
	if len(sorted) < 2 {
		return Series{}
	}

	s := Series{Events: make([]domain.ConsumptionEvent, 0, len(sorted)-1)}
	prev, _ := sorted[0].Quantity()
	for i := 1; i < len(sorted); i++ {
		curr, _ := sorted[i].Quantity()
		if curr > prev {
			s.Replenishments++
		}

		moved := prev - curr
		if moved < 0 {
			moved = 0
		}
		wd := cal.CountWorkingDays(sorted[i-1].Date, sorted[i].Date)
		rate := 0.0
		if wd > 0 {
			rate = moved / float64(wd)
		}

		s.Events = append(s.Events, domain.ConsumptionEvent{
			Date:              calendar.Day(sorted[i].Date),
			QuantityMoved:     moved,
			WorkingDays:       wd,
			RatePerWorkingDay: rate,
		})
		s.TotalQty += moved
		s.TotalWorkingDays += wd
		if moved > 0 {
			s.PositivePeriods++
		}
		prev = curr
	}
	s.Periods = len(s.Events)
	return s
}

// AvgDemand is the mean quantity moved per period.
func (s Series) AvgDemand() float64 {
	if s.Periods == 0 {
		return 0
	}
	return s.TotalQty / float64(s.Periods)
}

// AvgPerWorkingDay is total quantity over total working days elapsed.
func (s Series) AvgPerWorkingDay() float64 {
	if s.TotalWorkingDays == 0 {
		return 0
	}
	return s.TotalQty / float64(s.TotalWorkingDays)
}
