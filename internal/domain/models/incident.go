// internal/domain/models/incident.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Incident categories.
const (
	CategoryLTI   = "LTI"   // lost time injury
	CategoryMTI   = "MTI"   // medical treatment injury
	CategoryFAI   = "FAI"   // first aid injury
	CategoryOther = "other" // near miss, property damage, etc.
)

// Incident is an injury event at a site.
//
// NOTE:
//   - EmployerID is a denormalized copy written by the import path. It is
//     never used for filtering; the owning employer is always the site's.
type Incident struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	SiteID      primitive.ObjectID  `bson:"site_id" json:"site_id"`
	EmployerID  *primitive.ObjectID `bson:"employer_id,omitempty" json:"-"`
	OccurredAt  time.Time           `bson:"occurred_at" json:"occurred_at"`
	Category    string              `bson:"category" json:"category"`
	BodyPart    string              `bson:"body_part,omitempty" json:"body_part,omitempty"`
	Mechanism   string              `bson:"mechanism,omitempty" json:"mechanism,omitempty"`
	DaysLost    int                 `bson:"days_lost" json:"days_lost"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	CreatedAt   time.Time           `bson:"created_at" json:"created_at"`
}

// ValidCategory reports whether c is a known incident category.
func ValidCategory(c string) bool {
	switch c {
	case CategoryLTI, CategoryMTI, CategoryFAI, CategoryOther:
		return true
	}
	return false
}
