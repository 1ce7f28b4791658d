package series_test

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/analytics/rates"
	"github.com/dalemusser/safetyhub/internal/app/analytics/series"
	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	"github.com/dalemusser/safetyhub/internal/app/system/authz"
	"github.com/dalemusser/safetyhub/internal/app/system/period"
	"github.com/dalemusser/safetyhub/internal/domain/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memSource struct {
	site      models.Site
	incidents []models.Incident
	hours     []models.HoursRecord
}

func (s memSource) Sites(ctx context.Context, d scopepolicy.Decision) ([]models.Site, error) {
	return []models.Site{s.site}, nil
}

func (s memSource) Incidents(ctx context.Context, d scopepolicy.Decision, from, to time.Time) ([]models.Incident, error) {
	var out []models.Incident
	for _, inc := range s.incidents {
		if !inc.OccurredAt.Before(from) && inc.OccurredAt.Before(to) {
			out = append(out, inc)
		}
	}
	return out, nil
}

func (s memSource) HoursRecords(ctx context.Context, d scopepolicy.Decision, first, last period.Month) ([]models.HoursRecord, error) {
	return s.hours, nil
}

func window(t *testing.T, from, to string) period.Window {
	t.Helper()
	w, err := period.NewWindow(period.MustParse(from), period.MustParse(to))
	require.NoError(t, err)
	return w
}

func builder(src rates.Source) *series.Builder {
	return series.NewBuilder(rates.NewAggregator(src, rates.DefaultPolicy(), nil), nil)
}

func TestBuild_AscendingWithDedup(t *testing.T) {
	emp := primitive.NewObjectID()
	site := models.Site{ID: primitive.NewObjectID(), EmployerID: emp}
	at := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)

	src := memSource{
		site: site,
		incidents: []models.Incident{
			{SiteID: site.ID, Category: models.CategoryLTI, OccurredAt: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)},
		},
		hours: []models.HoursRecord{
			// Out of order on purpose; March has a correction.
			{ID: primitive.NewObjectID(), EmployerID: emp, Month: "2025-03", EmployerHours: 100_000, RecordedAt: at},
			{ID: primitive.NewObjectID(), EmployerID: emp, Month: "2025-01", EmployerHours: 50_000, RecordedAt: at},
			{ID: primitive.NewObjectID(), EmployerID: emp, Month: "2025-03", EmployerHours: 10, RecordedAt: at.Add(-time.Hour)},
		},
	}
	d := scopepolicy.Resolve(authz.SystemRole(), primitive.NilObjectID, emp, primitive.NilObjectID)

	points, err := builder(src).Build(context.Background(), d, window(t, "2025-01", "2025-03"))
	require.NoError(t, err)
	require.Len(t, points, 3)

	for i := 1; i < len(points); i++ {
		assert.True(t, points[i-1].Month.Before(points[i].Month), "points must be month-ascending")
	}
	assert.Equal(t, "2025-02", points[1].Month.String())
	assert.False(t, points[1].Metrics.Sufficient(), "empty month is insufficient")
	assert.Equal(t, "100000", points[2].Metrics.TotalHours.String())
	assert.Equal(t, "10.00", points[2].Metrics.LTIFR.String())
}

func TestBuild_NoDataIsEmpty(t *testing.T) {
	emp := primitive.NewObjectID()
	d := scopepolicy.Resolve(authz.SystemRole(), primitive.NilObjectID, emp, primitive.NilObjectID)

	points, err := builder(memSource{}).Build(context.Background(), d, window(t, "2024-01", "2024-12"))
	require.NoError(t, err)
	assert.NotNil(t, points)
	assert.Empty(t, points)
}

func TestBuild_Deterministic(t *testing.T) {
	emp := primitive.NewObjectID()
	src := memSource{hours: []models.HoursRecord{
		{ID: primitive.NewObjectID(), EmployerID: emp, Month: "2025-01", EmployerHours: 5000},
	}}
	d := scopepolicy.Resolve(authz.SystemRole(), primitive.NilObjectID, emp, primitive.NilObjectID)
	b := builder(src)

	first, err := b.Build(context.Background(), d, window(t, "2025-01", "2025-02"))
	require.NoError(t, err)
	second, err := b.Build(context.Background(), d, window(t, "2025-01", "2025-02"))
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestAverage_SkipsInsufficient(t *testing.T) {
	p := rates.DefaultPolicy()
	m := func(month string, lti int, hours int64) series.Point {
		mm := rates.Calculate(period.MustParse(month), rates.Counts{LTI: lti}, decimal.NewFromInt(hours), true, p)
		return series.Point{Month: mm.Month, Metrics: mm}
	}
	points := []series.Point{
		m("2025-01", 1, 100_000), // 10
		m("2025-02", 3, 100_000), // 30
		m("2025-03", 5, 500),     // insufficient
		m("2025-04", 0, 0),       // undefined
	}

	avg, used, ok := series.Average(points, series.LTIFR)
	require.True(t, ok)
	assert.Equal(t, 2, used)
	assert.InDelta(t, 20.0, avg, 0.0001)

	_, _, ok = series.Average(points[2:], series.LTIFR)
	assert.False(t, ok, "only insufficient months must not average to zero")
}

func TestMetricByName(t *testing.T) {
	for _, name := range []string{"ltifr", "trifr", "mtifr"} {
		_, ok := series.MetricByName(name)
		assert.True(t, ok, name)
	}
	_, ok := series.MetricByName("dart")
	assert.False(t, ok)
}
