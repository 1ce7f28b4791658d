package testutil

import (
	"context"
	"testing"
	"time"

	employerstore "github.com/dalemusser/safetyhub/internal/app/store/employers"
	hoursstore "github.com/dalemusser/safetyhub/internal/app/store/hours"
	incidentstore "github.com/dalemusser/safetyhub/internal/app/store/incidents"
	sitestore "github.com/dalemusser/safetyhub/internal/app/store/sites"
	"github.com/dalemusser/safetyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateEmployer creates an active employer with the given name.
func (f *Fixtures) CreateEmployer(ctx context.Context, name string) models.Employer {
	f.t.Helper()
	emp, err := employerstore.New(f.db).Create(ctx, models.Employer{Name: name, State: "WA"})
	if err != nil {
		f.t.Fatalf("failed to create test employer: %v", err)
	}
	return emp
}

// CreateSite creates a working site owned by employerID.
func (f *Fixtures) CreateSite(ctx context.Context, name string, employerID primitive.ObjectID) models.Site {
	f.t.Helper()
	site, err := sitestore.New(f.db).Create(ctx, models.Site{Name: name, EmployerID: employerID})
	if err != nil {
		f.t.Fatalf("failed to create test site: %v", err)
	}
	return site
}

// CreateIncident records an incident of category at site on the given day.
func (f *Fixtures) CreateIncident(ctx context.Context, site models.Site, category string, occurredAt time.Time, daysLost int) models.Incident {
	f.t.Helper()
	emp := site.EmployerID
	inc, err := incidentstore.New(f.db).Create(ctx, models.Incident{
		SiteID:     site.ID,
		EmployerID: &emp,
		Category:   category,
		OccurredAt: occurredAt,
		DaysLost:   daysLost,
	})
	if err != nil {
		f.t.Fatalf("failed to create test incident: %v", err)
	}
	return inc
}

// CreateEmployerHours records employer-level hours for month.
func (f *Fixtures) CreateEmployerHours(ctx context.Context, employerID primitive.ObjectID, month string, hours float64, recordedAt time.Time) models.HoursRecord {
	f.t.Helper()
	return f.createHours(ctx, models.HoursRecord{
		EmployerID:    employerID,
		Month:         month,
		EmployerHours: hours,
		RecordedAt:    recordedAt,
	})
}

// CreateSiteHours records site-level hours for month.
func (f *Fixtures) CreateSiteHours(ctx context.Context, site models.Site, month string, hours float64, recordedAt time.Time) models.HoursRecord {
	f.t.Helper()
	siteID := site.ID
	return f.createHours(ctx, models.HoursRecord{
		EmployerID:    site.EmployerID,
		SiteID:        &siteID,
		Month:         month,
		EmployerHours: hours,
		RecordedAt:    recordedAt,
	})
}

func (f *Fixtures) createHours(ctx context.Context, rec models.HoursRecord) models.HoursRecord {
	f.t.Helper()
	out, err := hoursstore.New(f.db).Create(ctx, rec)
	if err != nil {
		f.t.Fatalf("failed to create test hours: %v", err)
	}
	return out
}
