package decision

import (
	"math"

	"github.com/andresuchdata/replenish/internal/domain"
)

const (
	ForecastWindow  = 3
	ForecastHorizon = 4
	minMAPEEvents   = 3
)

// Forecast repeats the mean quantity of the last window events over the
// horizon. It returns nil for an empty history.
func Forecast(events []domain.ConsumptionEvent, window, horizon int) []float64 {
	if len(events) == 0 || horizon <= 0 {
		return nil
	}
	if window <= 0 || window > len(events) {
		window = len(events)
	}
	sum := 0.0
	for _, ev := range events[len(events)-window:] {
		sum += ev.QuantityMoved
	}
	avg := math.Max(sum/float64(window), 0)

	out := make([]float64, horizon)
	for i := range out {
		out[i] = avg
	}
	return out
}

// MAPE is the mean absolute percentage error of a naive previous-period
// forecast, over periods with positive actual usage. It is nil with fewer
// than three events or no positive actuals.
func MAPE(events []domain.ConsumptionEvent) *float64 {
	if len(events) < minMAPEEvents {
		return nil
	}
	sum := 0.0
	count := 0
	for i := 1; i < len(events); i++ {
		actual := events[i].QuantityMoved
		if actual <= 0 {
			continue
		}
		sum += math.Abs(actual-events[i-1].QuantityMoved) / actual
		count++
	}
	if count == 0 {
		return nil
	}
	pct := sum / float64(count) * 100
	return &pct
}
