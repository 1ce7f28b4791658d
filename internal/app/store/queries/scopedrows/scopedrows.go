// Package scopedrows joins the site, incident and hours stores into the
// scoped row source used by the analytics packages. Every method takes the
// resolved scope decision as a hard filter.
package scopedrows

import (
	"context"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	hoursstore "github.com/dalemusser/safetyhub/internal/app/store/hours"
	incidentstore "github.com/dalemusser/safetyhub/internal/app/store/incidents"
	sitestore "github.com/dalemusser/safetyhub/internal/app/store/sites"
	"github.com/dalemusser/safetyhub/internal/app/system/period"
	"github.com/dalemusser/safetyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

// Source implements rates.Source over MongoDB.
type Source struct {
	sites     *sitestore.Store
	incidents *incidentstore.Store
	hours     *hoursstore.Store
}

func New(db *mongo.Database) *Source {
	return &Source{
		sites:     sitestore.New(db),
		incidents: incidentstore.New(db),
		hours:     hoursstore.New(db),
	}
}

func (s *Source) Sites(ctx context.Context, d scopepolicy.Decision) ([]models.Site, error) {
	return s.sites.ListInScope(ctx, d)
}

func (s *Source) Incidents(ctx context.Context, d scopepolicy.Decision, from, to time.Time) ([]models.Incident, error) {
	return s.incidents.ListInScope(ctx, d, from, to)
}

func (s *Source) HoursRecords(ctx context.Context, d scopepolicy.Decision, first, last period.Month) ([]models.HoursRecord, error) {
	return s.hours.ListInScope(ctx, d, first, last)
}
