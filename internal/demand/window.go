package demand

import (
	"github.com/andresuchdata/replenish/internal/calendar"
	"github.com/andresuchdata/replenish/internal/domain"
)

// WindowDays are the trailing windows computed for every SKU.
var WindowDays = []int{30, 60, 90}

// ComputeWindow sums the events whose date falls in
// [anchor-(days-1), anchor], where anchor is the last event's date.
func ComputeWindow(events []domain.ConsumptionEvent, days int) domain.WindowStat {
	var ws domain.WindowStat
	if len(events) == 0 || days <= 0 {
		return ws
	}
	anchor := events[len(events)-1].Date
	for _, ev := range events {
		diff := calendar.DaysBetween(ev.Date, anchor)
		if diff >= 0 && diff < days {
			ws.RawTotal += ev.QuantityMoved
			ws.WorkingDays += ev.WorkingDays
		}
	}
	if ws.WorkingDays > 0 {
		ws.AdjustedRate = ws.RawTotal / float64(ws.WorkingDays)
	}
	return ws
}

// ComputeWindows returns the 30/60/90-day windows anchored at the latest event.
func ComputeWindows(events []domain.ConsumptionEvent) domain.Windows {
	return domain.Windows{
		W30: ComputeWindow(events, 30),
		W60: ComputeWindow(events, 60),
		W90: ComputeWindow(events, 90),
	}
}

// EventsInWindow returns the events inside the trailing window. days <= 0
// returns the whole history.
func EventsInWindow(events []domain.ConsumptionEvent, days int) []domain.ConsumptionEvent {
	if days <= 0 || len(events) == 0 {
		return events
	}
	anchor := events[len(events)-1].Date
	for i, ev := range events {
		if calendar.DaysBetween(ev.Date, anchor) < days {
			return events[i:]
		}
	}
	return nil
}

// PlanningUsage is the adjusted rate of the selected planning window, or the
// whole-history average per working day when the window is 0.
func PlanningUsage(s *domain.SkuSeries, windowDays int) float64 {
	if w, ok := s.Windows.ForDays(windowDays); ok {
		return w.AdjustedRate
	}
	return s.AvgPerWorkingDay
}
