// internal/domain/models/hours.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// HoursRecord is one report of hours worked in a month, either for a whole
// employer (SiteID nil) or for a single site. Corrections are new records;
// the one with the latest RecordedAt is current.
type HoursRecord struct {
	ID                 primitive.ObjectID  `bson:"_id" json:"id"`
	EmployerID         primitive.ObjectID  `bson:"employer_id" json:"employer_id"`
	SiteID             *primitive.ObjectID `bson:"site_id,omitempty" json:"site_id,omitempty"`
	Month              string              `bson:"month" json:"month"` // YYYY-MM
	EmployerHours      float64             `bson:"employer_hours" json:"employer_hours"`
	SubcontractorHours float64             `bson:"subcontractor_hours" json:"subcontractor_hours"`
	RecordedAt         time.Time           `bson:"recorded_at" json:"recorded_at"`
}

// TotalHours is employer plus subcontractor hours.
func (h HoursRecord) TotalHours() float64 {
	return h.EmployerHours + h.SubcontractorHours
}
