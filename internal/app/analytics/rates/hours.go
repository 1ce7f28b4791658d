package rates

import (
	"bytes"

	"github.com/dalemusser/safetyhub/internal/app/system/period"
	"github.com/dalemusser/safetyhub/internal/domain/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type hoursKey struct {
	employer primitive.ObjectID
	site     primitive.ObjectID // NilObjectID for the employer-level record
	month    period.Month
}

// HoursIndex keeps the latest hours record per (employer, site, month).
// A later RecordedAt wins; equal timestamps fall back to the larger id so the
// result does not depend on input order.
type HoursIndex struct {
	latest map[hoursKey]models.HoursRecord
}

// NewHoursIndex indexes records. Records with a malformed month are skipped.
func NewHoursIndex(records []models.HoursRecord) *HoursIndex {
	ix := &HoursIndex{latest: make(map[hoursKey]models.HoursRecord, len(records))}
	for _, rec := range records {
		ix.Add(rec)
	}
	return ix
}

func newer(a, b models.HoursRecord) bool {
	if !a.RecordedAt.Equal(b.RecordedAt) {
		return a.RecordedAt.After(b.RecordedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) > 0
}

// Add offers rec to the index and reports whether it became the latest.
func (ix *HoursIndex) Add(rec models.HoursRecord) bool {
	m, err := period.Parse(rec.Month)
	if err != nil {
		return false
	}
	k := hoursKey{employer: rec.EmployerID, month: m}
	if rec.SiteID != nil {
		k.site = *rec.SiteID
	}
	if cur, ok := ix.latest[k]; ok && !newer(rec, cur) {
		return false
	}
	ix.latest[k] = rec
	return true
}

func hoursOf(rec models.HoursRecord) decimal.Decimal {
	return decimal.NewFromFloat(rec.EmployerHours).Add(decimal.NewFromFloat(rec.SubcontractorHours))
}

// EmployerTotal returns the employer's hours for month: the employer-level
// record when there is one, otherwise the sum of its site records.
func (ix *HoursIndex) EmployerTotal(employer primitive.ObjectID, month period.Month) (decimal.Decimal, bool) {
	if rec, ok := ix.latest[hoursKey{employer: employer, month: month}]; ok {
		return hoursOf(rec), true
	}
	total := decimal.Zero
	found := false
	for k, rec := range ix.latest {
		if k.employer == employer && k.month == month && !k.site.IsZero() {
			total = total.Add(hoursOf(rec))
			found = true
		}
	}
	return total, found
}

// SiteTotal returns the latest site-level hours for month.
func (ix *HoursIndex) SiteTotal(site primitive.ObjectID, month period.Month) (decimal.Decimal, bool) {
	for k, rec := range ix.latest {
		if k.site == site && k.month == month {
			return hoursOf(rec), true
		}
	}
	return decimal.Zero, false
}

// Total sums employer totals for every employer with hours in month.
func (ix *HoursIndex) Total(month period.Month) (decimal.Decimal, bool) {
	seen := make(map[primitive.ObjectID]bool)
	total := decimal.Zero
	for k := range ix.latest {
		if k.month != month || seen[k.employer] {
			continue
		}
		seen[k.employer] = true
		h, _ := ix.EmployerTotal(k.employer, month)
		total = total.Add(h)
	}
	return total, len(seen) > 0
}
