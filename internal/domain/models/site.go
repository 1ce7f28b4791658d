// internal/domain/models/site.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Site statuses.
const (
	SiteWorking  = "working"
	SitePaused   = "paused"
	SiteFinished = "finished"
)

// Site is a work location owned by one employer. Site.EmployerID is the
// only source of truth for which tenant an incident belongs to.
type Site struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	EmployerID primitive.ObjectID `bson:"employer_id" json:"employer_id"`
	Name       string             `bson:"name" json:"name"`
	NameCI     string             `bson:"name_ci" json:"-"`
	Status     string             `bson:"status" json:"status"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at" json:"updated_at"`
}

// ValidSiteStatus reports whether s is a known site status.
func ValidSiteStatus(s string) bool {
	switch s {
	case SiteWorking, SitePaused, SiteFinished:
		return true
	}
	return false
}
