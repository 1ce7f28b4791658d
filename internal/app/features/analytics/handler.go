// internal/app/features/analytics/handler.go
package analytics

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/analytics/ranking"
	"github.com/dalemusser/safetyhub/internal/app/analytics/rates"
	"github.com/dalemusser/safetyhub/internal/app/analytics/series"
	apierrors "github.com/dalemusser/safetyhub/internal/app/features/errors"
	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	"github.com/dalemusser/safetyhub/internal/app/system/apperr"
	"github.com/dalemusser/safetyhub/internal/app/system/inputval"
	"github.com/dalemusser/safetyhub/internal/app/system/period"
	"github.com/dalemusser/safetyhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Handler serves the metric, series and ranking endpoints.
type Handler struct {
	Resolver   *scopepolicy.Resolver
	Aggregator *rates.Aggregator
	Series     *series.Builder
	Ranking    *ranking.Engine
	Log        *zap.Logger
	Now        func() time.Time
}

func NewHandler(rv *scopepolicy.Resolver, agg *rates.Aggregator, builder *series.Builder, engine *ranking.Engine, logger *zap.Logger) *Handler {
	return &Handler{
		Resolver:   rv,
		Aggregator: agg,
		Series:     builder,
		Ranking:    engine,
		Log:        logger,
		Now:        time.Now,
	}
}

type metricsResponse struct {
	Scope   scopepolicy.Decision `json:"scope"`
	Metrics rates.Metrics        `json:"metrics"`
	Sites   []siteMetrics        `json:"sites,omitempty"`
}

type siteMetrics struct {
	SiteID   string        `json:"site_id"`
	SiteName string        `json:"site_name"`
	Metrics  rates.Metrics `json:"metrics"`
}

// ServeMetrics handles GET /metrics?employer_id=&month=[&sites=1].
// month defaults to the last complete month.
func (h *Handler) ServeMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month, err := inputval.MonthOr("month", q.Get("month"), inputval.LastCompleteMonth(h.Now()))
	if err != nil {
		apierrors.WriteError(w, h.Log, err)
		return
	}
	d, err := h.Resolver.FromRequest(r, q.Get("employer_id"))
	if err != nil {
		apierrors.WriteError(w, h.Log, err)
		return
	}

	ctx, cancel := h.withBudget(r)
	defer cancel()

	if !truthy(q.Get("sites")) {
		m, err := h.Aggregator.Compute(ctx, d, month)
		if err != nil {
			apierrors.WriteError(w, h.Log, err)
			return
		}
		apierrors.WriteJSON(w, http.StatusOK, metricsResponse{Scope: d, Metrics: m})
		return
	}

	m, sites, err := h.Aggregator.ComputeWithSites(ctx, d, month)
	if err != nil {
		apierrors.WriteError(w, h.Log, err)
		return
	}
	resp := metricsResponse{Scope: d, Metrics: m, Sites: make([]siteMetrics, 0, len(sites))}
	for _, s := range sites {
		resp.Sites = append(resp.Sites, siteMetrics{SiteID: s.Site.ID.Hex(), SiteName: s.Site.Name, Metrics: s.Metrics})
	}
	apierrors.WriteJSON(w, http.StatusOK, resp)
}

type windowJSON struct {
	From period.Month `json:"from"`
	To   period.Month `json:"to"`
}

type averageJSON struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
	Months int     `json:"months"`
}

type seriesResponse struct {
	Scope   scopepolicy.Decision `json:"scope"`
	Window  windowJSON           `json:"window"`
	Points  []series.Point       `json:"points"`
	Average *averageJSON         `json:"average,omitempty"`
}

// ServeSeries handles GET /series?employer_id=&from=&to= (or months=N).
// metric= selects the trailing average (ltifr by default).
func (h *Handler) ServeSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	win, err := inputval.Window(q, h.Now())
	if err != nil {
		apierrors.WriteError(w, h.Log, err)
		return
	}
	metricName := strings.ToLower(strings.TrimSpace(q.Get("metric")))
	if metricName == "" {
		metricName = "ltifr"
	}
	metric, ok := series.MetricByName(metricName)
	if !ok {
		apierrors.WriteError(w, h.Log, fmt.Errorf("%w: metric: must be ltifr, trifr or mtifr", apperr.ErrInvalidInput))
		return
	}
	d, err := h.Resolver.FromRequest(r, q.Get("employer_id"))
	if err != nil {
		apierrors.WriteError(w, h.Log, err)
		return
	}

	ctx, cancel := h.withBudget(r)
	defer cancel()

	points, err := h.Series.Build(ctx, d, win)
	if err != nil {
		apierrors.WriteError(w, h.Log, err)
		return
	}

	resp := seriesResponse{Scope: d, Window: windowJSON{From: win.From, To: win.To}, Points: points}
	if avg, used, ok := series.Average(points, metric); ok {
		resp.Average = &averageJSON{Metric: metricName, Value: avg, Months: used}
	}
	apierrors.WriteJSON(w, http.StatusOK, resp)
}

type rankingsResponse struct {
	Scope    scopepolicy.Decision `json:"scope"`
	Weights  string               `json:"weights"`
	Rankings ranking.Rankings     `json:"rankings"`
}

// ServeRankings handles GET /rankings?employer_id=&month=.
// An employer must be in scope; ALL is rejected.
func (h *Handler) ServeRankings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month, err := inputval.MonthOr("month", q.Get("month"), inputval.LastCompleteMonth(h.Now()))
	if err != nil {
		apierrors.WriteError(w, h.Log, err)
		return
	}
	d, err := h.Resolver.FromRequest(r, q.Get("employer_id"))
	if err != nil {
		apierrors.WriteError(w, h.Log, err)
		return
	}

	ctx, cancel := h.withBudget(r)
	defer cancel()

	rk, err := h.Ranking.Rank(ctx, d, month)
	if err != nil {
		apierrors.WriteError(w, h.Log, err)
		return
	}
	apierrors.WriteJSON(w, http.StatusOK, rankingsResponse{Scope: d, Weights: h.Ranking.Weights().String(), Rankings: rk})
}

// withBudget bounds a request by the aggregator's retry budget so a hung
// read is retried before the request gives up.
func (h *Handler) withBudget(r *http.Request) (context.Context, context.CancelFunc) {
	budget := h.Aggregator.Budget()
	if budget <= 0 {
		budget = timeouts.Aggregate()
	}
	return timeouts.WithTimeout(r.Context(), budget, h.Log, r.URL.Path)
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
