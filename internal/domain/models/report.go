// internal/domain/models/report.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GeneratedReport is the cached narrative for one (employer, month).
// Text/GeneratedAt mirror the newest revision.
type GeneratedReport struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	EmployerID  primitive.ObjectID `bson:"employer_id" json:"employer_id"`
	Month       string             `bson:"month" json:"month"`
	Text        string             `bson:"text" json:"text"`
	GeneratedAt time.Time          `bson:"generated_at" json:"generated_at"`
	Generator   string             `bson:"generator" json:"generator"`
	Revisions   []ReportRevision   `bson:"revisions" json:"revisions,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// ReportRevision is one past generation, kept newest-last.
type ReportRevision struct {
	Text        string    `bson:"text" json:"text"`
	GeneratedAt time.Time `bson:"generated_at" json:"generated_at"`
	Generator   string    `bson:"generator" json:"generator"`
	RequestID   string    `bson:"request_id" json:"request_id"`
}
