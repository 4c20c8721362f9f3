package report

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/replenish/internal/calendar"
	"github.com/andresuchdata/replenish/internal/domain"
)

// roundFloat rounds v to the given number of decimal places.
func roundFloat(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(v)
	}

	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

// formatFloat renders v rounded to decimals without trailing zeros.
// Non-finite values render as an empty cell.
func formatFloat(v float64, decimals int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(roundFloat(v, decimals), 'f', -1, 64)
}

func formatMeasure(m domain.Measure, decimals int) string {
	return formatFloat(float64(m), decimals)
}

func formatOptional(v *float64, decimals int) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v, decimals)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return calendar.FormatISO(*t)
}

func formatSeries(values []float64, decimals int) string {
	if len(values) == 0 {
		return ""
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatFloat(v, decimals)
	}
	return strings.Join(parts, " ")
}
