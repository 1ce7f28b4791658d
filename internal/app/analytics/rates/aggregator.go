package rates

import (
	"context"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	"github.com/dalemusser/safetyhub/internal/app/system/period"
	"github.com/dalemusser/safetyhub/internal/app/system/retry"
	"github.com/dalemusser/safetyhub/internal/app/system/timeouts"
	"github.com/dalemusser/safetyhub/internal/domain/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source returns rows already constrained by a scope decision.
type Source interface {
	Sites(ctx context.Context, d scopepolicy.Decision) ([]models.Site, error)
	Incidents(ctx context.Context, d scopepolicy.Decision, from, to time.Time) ([]models.Incident, error)
	HoursRecords(ctx context.Context, d scopepolicy.Decision, first, last period.Month) ([]models.HoursRecord, error)
}

// SiteMetrics pairs a site with its month's metrics.
type SiteMetrics struct {
	Site    models.Site
	Metrics Metrics
}

// Aggregator computes Metrics for a scope.
type Aggregator struct {
	src    Source
	policy Policy
	retry  retry.Policy
	log    *zap.Logger
}

// NewAggregator builds an Aggregator over src.
func NewAggregator(src Source, p Policy, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		src:    src,
		policy: p,
		retry:  retry.DefaultPolicy().WithAttemptTimeout(timeouts.Aggregate()),
		log:    logger,
	}
}

// WithRetry returns a copy of a using p for store reads.
func (a *Aggregator) WithRetry(p retry.Policy) *Aggregator {
	cp := *a
	cp.retry = p
	return &cp
}

// Policy returns the thresholds in use.
func (a *Aggregator) Policy() Policy { return a.policy }

// Budget is the deadline a caller should allow for one Compute,
// ComputeWindow or ComputeWithSites call so that every retry can run.
// The reads inside a call run in parallel, so one retry budget covers them.
func (a *Aggregator) Budget() time.Duration { return a.retry.Budget() }

type rows struct {
	sites     []models.Site
	incidents []models.Incident
	hours     *HoursIndex
}

func (a *Aggregator) load(ctx context.Context, d scopepolicy.Decision, w period.Window, withSites bool) (rows, error) {
	if d.IsDenied() {
		return rows{}, d.Err()
	}
	var out rows
	g, gctx := errgroup.WithContext(ctx)
	if withSites {
		g.Go(func() error {
			sites, err := retry.Do(gctx, a.retry, a.log, "rates.sites", func(ctx context.Context) ([]models.Site, error) {
				return a.src.Sites(ctx, d)
			})
			out.sites = sites
			return err
		})
	}
	g.Go(func() error {
		incs, err := retry.Do(gctx, a.retry, a.log, "rates.incidents", func(ctx context.Context) ([]models.Incident, error) {
			return a.src.Incidents(ctx, d, w.From.Start(), w.To.End())
		})
		out.incidents = incs
		return err
	})
	g.Go(func() error {
		recs, err := retry.Do(gctx, a.retry, a.log, "rates.hours", func(ctx context.Context) ([]models.HoursRecord, error) {
			return a.src.HoursRecords(ctx, d, w.From, w.To)
		})
		out.hours = NewHoursIndex(recs)
		return err
	})
	if err := g.Wait(); err != nil {
		return rows{}, err
	}
	return out, nil
}

func scopeHours(ix *HoursIndex, d scopepolicy.Decision, m period.Month) (decimal.Decimal, bool) {
	if emp, ok := d.EmployerID(); ok {
		return ix.EmployerTotal(emp, m)
	}
	return ix.Total(m)
}

// Compute returns the scope's metrics for one month.
func (a *Aggregator) Compute(ctx context.Context, d scopepolicy.Decision, month period.Month) (Metrics, error) {
	ms, err := a.ComputeWindow(ctx, d, period.Single(month))
	if err != nil {
		return Metrics{}, err
	}
	return ms[0], nil
}

// ComputeWindow returns one Metrics per month of w, month-ascending. Months
// without rows are present with HasData false.
func (a *Aggregator) ComputeWindow(ctx context.Context, d scopepolicy.Decision, w period.Window) ([]Metrics, error) {
	r, err := a.load(ctx, d, w, false)
	if err != nil {
		return nil, err
	}
	return a.monthly(r, d, w), nil
}

func (a *Aggregator) monthly(r rows, d scopepolicy.Decision, w period.Window) []Metrics {
	counts := make(map[period.Month]*Counts)
	for _, inc := range r.incidents {
		m := period.Of(inc.OccurredAt)
		if !w.Contains(m) {
			continue
		}
		c, ok := counts[m]
		if !ok {
			c = &Counts{}
			counts[m] = c
		}
		c.Add(inc)
	}

	months := w.Months()
	out := make([]Metrics, 0, len(months))
	for _, m := range months {
		hours, hasHours := scopeHours(r.hours, d, m)
		var c Counts
		if p, ok := counts[m]; ok {
			c = *p
		}
		out = append(out, Calculate(m, c, hours, hasHours || c.Total() > 0, a.policy))
	}
	return out
}

// ComputeWithSites returns the employer's metrics for month together with
// metrics for every site it owns, in site id order. Both come from a single
// read of the month's rows. ALL is rejected.
func (a *Aggregator) ComputeWithSites(ctx context.Context, d scopepolicy.Decision, month period.Month) (Metrics, []SiteMetrics, error) {
	if _, err := d.RequireEmployer(); err != nil {
		return Metrics{}, nil, err
	}
	w := period.Single(month)
	r, err := a.load(ctx, d, w, true)
	if err != nil {
		return Metrics{}, nil, err
	}

	bySite := make(map[primitive.ObjectID]*Counts, len(r.sites))
	for _, s := range r.sites {
		bySite[s.ID] = &Counts{}
	}
	for _, inc := range r.incidents {
		if c, ok := bySite[inc.SiteID]; ok {
			c.Add(inc)
		}
	}

	out := make([]SiteMetrics, 0, len(r.sites))
	for _, s := range r.sites {
		c := *bySite[s.ID]
		hours, hasHours := r.hours.SiteTotal(s.ID, month)
		out = append(out, SiteMetrics{
			Site:    s,
			Metrics: Calculate(month, c, hours, hasHours || c.Total() > 0, a.policy),
		})
	}
	return a.monthly(r, d, w)[0], out, nil
}
