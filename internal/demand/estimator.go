package demand

import "github.com/andresuchdata/replenish/internal/domain"

// EstimatorConfig controls the smoothing of per-period rates.
type EstimatorConfig struct {
	Periods             int
	Alpha               float64
	VolatilityThreshold float64
}

// DefaultEstimatorConfig uses the trailing 12 periods, alpha 0.4 and a CV
// threshold of 1.5.
func DefaultEstimatorConfig() EstimatorConfig {
	return EstimatorConfig{
		Periods:             12,
		Alpha:               0.4,
		VolatilityThreshold: 1.5,
	}
}

func (c EstimatorConfig) withDefaults() EstimatorConfig {
	d := DefaultEstimatorConfig()
	if c.Periods <= 0 {
		c.Periods = d.Periods
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		c.Alpha = d.Alpha
	}
	if c.VolatilityThreshold <= 0 {
		c.VolatilityThreshold = d.VolatilityThreshold
	}
	return c
}

// Estimate is a smoothed usage rate and the method that produced it.
type Estimate struct {
	Kind         domain.EstimatorKind
	Rate         float64
	ZeroFraction float64
	CV           float64
	Samples      []float64
}

// Estimator picks Croston for intermittent signals (more than half zeros)
// and EWMA otherwise, tagging high-CV signals as volatile.
func Estimator(rates []float64, cfg EstimatorConfig) Estimate {
	cfg = cfg.withDefaults()
	samples := Tail(rates, cfg.Periods)
	est := Estimate{Kind: domain.EstimatorStable, Samples: samples}
	if len(samples) == 0 {
		return est
	}

	zeros := 0
	for _, r := range samples {
		if r == 0 {
			zeros++
		}
	}
	est.ZeroFraction = float64(zeros) / float64(len(samples))
	est.CV = CoefficientOfVariation(samples)

	switch {
	case est.ZeroFraction > 0.5:
		est.Kind = domain.EstimatorIntermittent
		est.Rate = Croston(samples, cfg.Alpha)
	case est.CV > cfg.VolatilityThreshold:
		est.Kind = domain.EstimatorVolatile
		est.Rate = EWMA(samples, cfg.Alpha)
	default:
		est.Rate = EWMA(samples, cfg.Alpha)
	}
	return est
}

// EWMA is an exponentially weighted moving average seeded with the first value.
func EWMA(values []float64, alpha float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := values[0]
	for _, v := range values[1:] {
		s = alpha*v + (1-alpha)*s
	}
	return s
}

// Croston smooths non-zero demand size z and inter-demand interval p
// separately and returns z/p. The first non-zero observation seeds both.
func Croston(values []float64, alpha float64) float64 {
	var z, p float64
	q := 1.0
	seeded := false
	for _, v := range values {
		if v == 0 {
			q++
			continue
		}
		if !seeded {
			z, p = v, q
			seeded = true
		} else {
			z += alpha * (v - z)
			p += alpha * (q - p)
		}
		q = 1
	}
	if p == 0 {
		return 0
	}
	return z / p
}
