// internal/domain/models/employer.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Employer is a tenant. Every site, incident and hours record belongs to
// exactly one employer.
type Employer struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	NameCI    string             `bson:"name_ci" json:"-"` // ← always stored
	State     string             `bson:"state" json:"state"`
	Status    string             `bson:"status" json:"status"` // active | inactive
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

const (
	EmployerActive   = "active"
	EmployerInactive = "inactive"
)
