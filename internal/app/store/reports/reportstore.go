// internal/app/store/reports/reportstore.go
package reportstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/safetyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxRevisions caps the revision history kept per report.
const MaxRevisions = 50

var ErrNotFound = errors.New("report not found")

// Store persists generated narratives, one document per (employer, month).
// The report cache is its only writer.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("generated_reports")}
}

// Get returns the report for (employerID, month) or ErrNotFound.
func (s *Store) Get(ctx context.Context, employerID primitive.ObjectID, month string) (models.GeneratedReport, error) {
	var rep models.GeneratedReport
	err := s.c.FindOne(ctx, bson.M{"employer_id": employerID, "month": month}).Decode(&rep)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.GeneratedReport{}, ErrNotFound
	}
	if err != nil {
		return models.GeneratedReport{}, err
	}
	return rep, nil
}

// Save makes rev the current text for (employerID, month) and appends it
// to the revision history, creating the document on first write.
func (s *Store) Save(ctx context.Context, employerID primitive.ObjectID, month string, rev models.ReportRevision) (models.GeneratedReport, error) {
	now := time.Now().UTC()
	rev.GeneratedAt = rev.GeneratedAt.UTC()

	update := bson.M{
		"$set": bson.M{
			"text":         rev.Text,
			"generated_at": rev.GeneratedAt,
			"generator":    rev.Generator,
			"updated_at":   now,
		},
		"$push": bson.M{
			"revisions": bson.M{
				"$each":  []models.ReportRevision{rev},
				"$slice": -MaxRevisions,
			},
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var out models.GeneratedReport
	err := s.c.FindOneAndUpdate(ctx, bson.M{"employer_id": employerID, "month": month}, update, opts).Decode(&out)
	if err != nil {
		return models.GeneratedReport{}, err
	}
	return out, nil
}
