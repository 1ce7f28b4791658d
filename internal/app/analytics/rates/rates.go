// Package rates computes monthly frequency rates (LTIFR, TRIFR, MTIFR) from
// incidents and hours that have already been constrained to a scope.
//
// Arithmetic is decimal. A rate over zero hours is undefined; a rate over
// fewer hours than the configured minimum is reported but is not comparable,
// so it never takes part in rankings or averages.
package rates

import (
	"encoding/json"

	"github.com/dalemusser/safetyhub/internal/app/system/period"
	"github.com/dalemusser/safetyhub/internal/domain/models"
	"github.com/shopspring/decimal"
)

// DefaultMinMonthlyHours is the sufficiency threshold when none is configured.
const DefaultMinMonthlyHours = 1000

var million = decimal.NewFromInt(1_000_000)

// Sufficiency tags whether a period carried enough hours to be compared.
type Sufficiency string

const (
	Sufficient   Sufficiency = "sufficient"
	Insufficient Sufficiency = "insufficient"
)

// Rate is a per-million-hours frequency. The zero value is undefined.
type Rate struct {
	value      decimal.Decimal
	defined    bool
	sufficient bool
}

// NewRate computes count / hours * 1e6 rounded to two places.
func NewRate(count int, hours decimal.Decimal, sufficient bool) Rate {
	if !hours.IsPositive() {
		return Rate{}
	}
	v := decimal.NewFromInt(int64(count)).Mul(million).Div(hours).Round(2)
	return Rate{value: v, defined: true, sufficient: sufficient}
}

// Defined reports whether the period had any hours at all.
func (r Rate) Defined() bool { return r.defined }

// Value returns the rate whether or not it is comparable.
func (r Rate) Value() (float64, bool) {
	if !r.defined {
		return 0, false
	}
	return r.value.InexactFloat64(), true
}

// Comparable returns the rate only when it may be ranked or averaged.
func (r Rate) Comparable() (float64, bool) {
	if !r.defined || !r.sufficient {
		return 0, false
	}
	return r.value.InexactFloat64(), true
}

func (r Rate) String() string {
	if !r.defined {
		return "n/a"
	}
	return r.value.StringFixed(2)
}

// MarshalJSON writes the rate as a number, or null when undefined.
func (r Rate) MarshalJSON() ([]byte, error) {
	if !r.defined {
		return []byte("null"), nil
	}
	return []byte(r.value.StringFixed(2)), nil
}

// Counts tallies incidents by category.
type Counts struct {
	LTI      int `json:"lti"`
	MTI      int `json:"mti"`
	FAI      int `json:"fai"`
	Other    int `json:"other"`
	DaysLost int `json:"days_lost"`
}

// Add counts one incident.
func (c *Counts) Add(inc models.Incident) {
	switch inc.Category {
	case models.CategoryLTI:
		c.LTI++
	case models.CategoryMTI:
		c.MTI++
	case models.CategoryFAI:
		c.FAI++
	default:
		c.Other++
	}
	if inc.DaysLost > 0 {
		c.DaysLost += inc.DaysLost
	}
}

// Recordable is LTI + MTI + FAI.
func (c Counts) Recordable() int { return c.LTI + c.MTI + c.FAI }

// Total includes "other" incidents.
func (c Counts) Total() int { return c.Recordable() + c.Other }

// Metrics is the derived rate record for one scope and month.
type Metrics struct {
	Month       period.Month
	LTIFR       Rate
	TRIFR       Rate
	MTIFR       Rate
	TotalHours  decimal.Decimal
	Counts      Counts
	Sufficiency Sufficiency
	// HasData is false when the month had neither hours nor incidents.
	HasData bool
}

// Sufficient reports whether the month's rates are comparable.
func (m Metrics) Sufficient() bool { return m.Sufficiency == Sufficient }

type metricsJSON struct {
	Month       period.Month `json:"month"`
	LTIFR       Rate         `json:"ltifr"`
	TRIFR       Rate         `json:"trifr"`
	MTIFR       Rate         `json:"mtifr"`
	TotalHours  float64      `json:"total_hours"`
	Counts      Counts       `json:"counts"`
	Recordable  int          `json:"recordable"`
	Sufficiency Sufficiency  `json:"sufficiency"`
	HasData     bool         `json:"has_data"`
}

func (m Metrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(metricsJSON{
		Month:       m.Month,
		LTIFR:       m.LTIFR,
		TRIFR:       m.TRIFR,
		MTIFR:       m.MTIFR,
		TotalHours:  m.TotalHours.InexactFloat64(),
		Counts:      m.Counts,
		Recordable:  m.Counts.Recordable(),
		Sufficiency: m.Sufficiency,
		HasData:     m.HasData,
	})
}

// Policy holds the thresholds applied to every calculation.
type Policy struct {
	MinMonthlyHours decimal.Decimal
}

// DefaultPolicy uses DefaultMinMonthlyHours.
func DefaultPolicy() Policy {
	return Policy{MinMonthlyHours: decimal.NewFromInt(DefaultMinMonthlyHours)}
}

// Calculate derives Metrics from already-scoped counts and hours.
func Calculate(month period.Month, counts Counts, hours decimal.Decimal, hasData bool, p Policy) Metrics {
	suff := Sufficient
	if hours.LessThan(p.MinMonthlyHours) {
		suff = Insufficient
	}
	ok := suff == Sufficient
	return Metrics{
		Month:       month,
		LTIFR:       NewRate(counts.LTI, hours, ok),
		TRIFR:       NewRate(counts.Recordable(), hours, ok),
		MTIFR:       NewRate(counts.MTI, hours, ok),
		TotalHours:  hours,
		Counts:      counts,
		Sufficiency: suff,
		HasData:     hasData,
	}
}
