package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/replenish/internal/domain"
)

func events(qty ...float64) []domain.ConsumptionEvent {
	out := make([]domain.ConsumptionEvent, len(qty))
	for i, q := range qty {
		out[i] = domain.ConsumptionEvent{QuantityMoved: q}
	}
	return out
}

func TestForecast(t *testing.T) {
	assert.Nil(t, Forecast(nil, ForecastWindow, ForecastHorizon))
	assert.Equal(t, []float64{6, 6, 6, 6}, Forecast(events(2, 4, 6, 8), ForecastWindow, ForecastHorizon))
	assert.Equal(t, []float64{3, 3}, Forecast(events(2, 4), ForecastWindow, 2))
}

func TestMAPE(t *testing.T) {
	assert.Nil(t, MAPE(events(1, 2)))
	assert.Nil(t, MAPE(events(0, 0, 0, 0)))

	got := MAPE(events(10, 5, 10))
	require.NotNil(t, got)
	assert.InDelta(t, 75.0, *got, 1e-9)
}
