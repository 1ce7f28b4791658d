// Package ranking orders an employer's sites by LTI frequency rate,
// recordable count and severity score. Lower is better on every metric.
package ranking

import (
	"bytes"
	"context"
	"sort"

	"github.com/dalemusser/safetyhub/internal/app/analytics/rates"
	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	"github.com/dalemusser/safetyhub/internal/app/system/period"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Entry is one site's position on one metric.
type Entry struct {
	SiteID       primitive.ObjectID `json:"site_id"`
	SiteName     string             `json:"site_name"`
	Rank         int                `json:"rank"`
	TotalSites   int                `json:"total_sites"`
	Value        *float64           `json:"value"`
	Insufficient bool               `json:"insufficient"`
}

// Rankings holds the three orderings for an employer and month.
type Rankings struct {
	EmployerID  primitive.ObjectID `json:"employer_id"`
	Month       period.Month       `json:"month"`
	Employer    rates.Metrics      `json:"employer"`
	LTIFR       []Entry            `json:"ltifr"`
	Recordables []Entry            `json:"recordables"`
	Severity    []Entry            `json:"severity"`
}

type candidate struct {
	entry Entry
	// ordered is false for values that sort after every ordered value.
	ordered bool
	key     float64
}

func idLess(a, b primitive.ObjectID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}

func assign(cands []candidate) []Entry {
	sort.Slice(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.ordered != b.ordered {
			return a.ordered
		}
		if a.ordered && a.key != b.key {
			return a.key < b.key
		}
		return idLess(a.entry.SiteID, b.entry.SiteID)
	})
	out := make([]Entry, len(cands))
	for i, c := range cands {
		c.entry.Rank = i + 1
		c.entry.TotalSites = len(cands)
		out[i] = c.entry
	}
	return out
}

func f64(v float64) *float64 { return &v }

// Rank orders sites on every metric. Each returned slice is sorted by rank
// and its ranks are exactly 1..len(sites).
//
// Sites whose LTI rate is not comparable are flagged and placed after every
// comparable site, in site id order. Count metrics rank every site by value
// and only flag sufficiency.
func Rank(sites []rates.SiteMetrics, w Weights) (ltifr, recordables, severity []Entry) {
	lt := make([]candidate, 0, len(sites))
	rec := make([]candidate, 0, len(sites))
	sev := make([]candidate, 0, len(sites))

	for _, s := range sites {
		base := Entry{
			SiteID:       s.Site.ID,
			SiteName:     s.Site.Name,
			Insufficient: !s.Metrics.Sufficient(),
		}

		c := candidate{entry: base}
		if v, ok := s.Metrics.LTIFR.Value(); ok {
			c.entry.Value = f64(v)
		}
		if v, ok := s.Metrics.LTIFR.Comparable(); ok {
			c.ordered, c.key = true, v
		}
		lt = append(lt, c)

		n := float64(s.Metrics.Counts.Recordable())
		c = candidate{entry: base, ordered: true, key: n}
		c.entry.Value = f64(n)
		rec = append(rec, c)

		score := float64(w.Score(s.Metrics.Counts))
		c = candidate{entry: base, ordered: true, key: score}
		c.entry.Value = f64(score)
		sev = append(sev, c)
	}
	return assign(lt), assign(rec), assign(sev)
}

// Engine ranks the sites of an employer-bound scope.
type Engine struct {
	agg     *rates.Aggregator
	weights Weights
	log     *zap.Logger
}

func NewEngine(agg *rates.Aggregator, w Weights, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{agg: agg, weights: w, log: logger}
}

// Weights returns the severity weights in use.
func (e *Engine) Weights() Weights { return e.weights }

// Rank computes rankings for month. ALL and denied decisions are rejected.
func (e *Engine) Rank(ctx context.Context, d scopepolicy.Decision, month period.Month) (Rankings, error) {
	empID, err := d.RequireEmployer()
	if err != nil {
		return Rankings{}, err
	}

	employer, sites, err := e.agg.ComputeWithSites(ctx, d, month)
	if err != nil {
		return Rankings{}, err
	}

	out := Rankings{EmployerID: empID, Month: month, Employer: employer}
	out.LTIFR, out.Recordables, out.Severity = Rank(sites, e.weights)
	e.log.Debug("ranked sites",
		zap.String("employer_id", empID.Hex()),
		zap.String("month", month.String()),
		zap.Int("sites", len(sites)))
	return out, nil
}
