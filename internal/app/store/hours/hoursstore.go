// internal/app/store/hours/hoursstore.go
package hoursstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	"github.com/dalemusser/safetyhub/internal/app/system/period"
	"github.com/dalemusser/safetyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store holds monthly hours records. Records are append-only; a correction
// is a newer record for the same key.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("hours_records")}
}

// Create appends a record. RecordedAt defaults to now.
func (s *Store) Create(ctx context.Context, rec models.HoursRecord) (models.HoursRecord, error) {
	if rec.EmployerID.IsZero() {
		return models.HoursRecord{}, errors.New("hours record requires an employer")
	}
	if _, err := period.Parse(rec.Month); err != nil {
		return models.HoursRecord{}, err
	}
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	if _, err := s.c.InsertOne(ctx, rec); err != nil {
		return models.HoursRecord{}, err
	}
	return rec, nil
}

// ListInScope returns every record (all revisions) visible under d for
// months first..last inclusive.
func (s *Store) ListInScope(ctx context.Context, d scopepolicy.Decision, first, last period.Month) ([]models.HoursRecord, error) {
	filter := bson.M{
		"month": bson.M{"$gte": first.String(), "$lte": last.String()},
	}
	if err := d.Apply(filter, "employer_id"); err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{
		{Key: "month", Value: 1},
		{Key: "recorded_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.HoursRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
