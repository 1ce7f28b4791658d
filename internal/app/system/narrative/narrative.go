// Package narrative turns an employer's monthly metrics into report text.
package narrative

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/dalemusser/safetyhub/internal/app/analytics/rates"
	"github.com/dalemusser/safetyhub/internal/app/analytics/series"
	"github.com/dalemusser/safetyhub/internal/app/system/period"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Input is everything a generator may use. It is already scoped to one
// employer.
type Input struct {
	EmployerID   primitive.ObjectID
	EmployerName string
	Month        period.Month
	Metrics      rates.Metrics
	// Series is the trailing window ending at Month, possibly empty.
	Series []series.Point
}

func (in Input) subject() string {
	if in.EmployerName != "" {
		return in.EmployerName
	}
	return "employer " + in.EmployerID.Hex()
}

// Generator produces narrative text.
type Generator interface {
	Name() string
	Generate(ctx context.Context, in Input) (string, error)
}

// Facts renders the input as plain sentences. The template generator uses
// it as its output; the model generator uses it as grounding.
func Facts(in Input) []string {
	m := in.Metrics
	var lines []string

	lines = append(lines, fmt.Sprintf("Safety summary for %s, %s.", in.subject(), in.Month))
	lines = append(lines, fmt.Sprintf("Hours worked: %s (%s).", formatHours(m.TotalHours), m.Sufficiency))
	lines = append(lines, fmt.Sprintf("Incidents: %d LTI, %d MTI, %d FAI, %d other; %d days lost.",
		m.Counts.LTI, m.Counts.MTI, m.Counts.FAI, m.Counts.Other, m.Counts.DaysLost))

	if !m.LTIFR.Defined() {
		lines = append(lines, "No hours were recorded, so frequency rates are not defined for this month.")
		return append(lines, trend(in)...)
	}
	lines = append(lines, fmt.Sprintf("LTIFR %s, TRIFR %s, MTIFR %s per million hours.",
		m.LTIFR, m.TRIFR, m.MTIFR))
	if !m.Sufficient() {
		lines = append(lines, "Hours were below the reporting threshold; rates are shown for reference and are not compared.")
	}
	return append(lines, trend(in)...)
}

func trend(in Input) []string {
	if len(in.Series) == 0 {
		return nil
	}
	avg, used, ok := series.Average(in.Series, series.LTIFR)
	if !ok {
		return []string{fmt.Sprintf("None of the %d months in the trailing window had enough hours for a rate comparison.", len(in.Series))}
	}
	out := []string{fmt.Sprintf("Trailing average LTIFR: %.2f across %d of %d months.", avg, used, len(in.Series))}
	cur, ok := in.Metrics.LTIFR.Comparable()
	if !ok {
		return out
	}
	switch {
	case math.Abs(cur-avg) < 0.005:
		out = append(out, "This month is in line with the trailing average.")
	case cur < avg:
		out = append(out, fmt.Sprintf("This month is %.2f below the trailing average.", avg-cur))
	default:
		out = append(out, fmt.Sprintf("This month is %.2f above the trailing average.", cur-avg))
	}
	return out
}

func formatHours(d decimal.Decimal) string {
	s := d.Round(0).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// Template is a deterministic generator built from Facts.
type Template struct{}

func (Template) Name() string { return "template" }

func (Template) Generate(ctx context.Context, in Input) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.Join(Facts(in), "\n"), nil
}
