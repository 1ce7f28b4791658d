// Package series builds month-ascending metric series for a scope.
package series

import (
	"context"

	"github.com/dalemusser/safetyhub/internal/app/analytics/rates"
	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	"github.com/dalemusser/safetyhub/internal/app/system/period"
	"go.uber.org/zap"
)

// Point is one month of a series.
type Point struct {
	Month   period.Month  `json:"month"`
	Metrics rates.Metrics `json:"metrics"`
}

// Builder turns aggregator output into series.
type Builder struct {
	agg *rates.Aggregator
	log *zap.Logger
}

func NewBuilder(agg *rates.Aggregator, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{agg: agg, log: logger}
}

// Build returns one point per month of w in ascending order, or an empty
// slice when no month in the window has any data.
func (b *Builder) Build(ctx context.Context, d scopepolicy.Decision, w period.Window) ([]Point, error) {
	ms, err := b.agg.ComputeWindow(ctx, d, w)
	if err != nil {
		return nil, err
	}
	return FromMetrics(ms), nil
}

// FromMetrics converts month-ascending metrics into points.
func FromMetrics(ms []rates.Metrics) []Point {
	hasData := false
	for _, m := range ms {
		if m.HasData {
			hasData = true
			break
		}
	}
	if !hasData {
		return []Point{}
	}
	out := make([]Point, len(ms))
	for i, m := range ms {
		out[i] = Point{Month: m.Month, Metrics: m}
	}
	return out
}

// Metric selects one rate from a month's metrics.
type Metric func(rates.Metrics) rates.Rate

var (
	LTIFR Metric = func(m rates.Metrics) rates.Rate { return m.LTIFR }
	TRIFR Metric = func(m rates.Metrics) rates.Rate { return m.TRIFR }
	MTIFR Metric = func(m rates.Metrics) rates.Rate { return m.MTIFR }
)

// MetricByName maps "ltifr", "trifr" and "mtifr" to selectors.
func MetricByName(name string) (Metric, bool) {
	switch name {
	case "ltifr":
		return LTIFR, true
	case "trifr":
		return TRIFR, true
	case "mtifr":
		return MTIFR, true
	}
	return nil, false
}

// Average is the mean of the comparable values of metric. used is the
// number of months that contributed; ok is false when none did.
func Average(points []Point, metric Metric) (avg float64, used int, ok bool) {
	var sum float64
	for _, p := range points {
		v, comparable := metric(p.Metrics).Comparable()
		if !comparable {
			continue
		}
		sum += v
		used++
	}
	if used == 0 {
		return 0, 0, false
	}
	return sum / float64(used), used, true
}
