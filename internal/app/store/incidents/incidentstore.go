// internal/app/store/incidents/incidentstore.go
package incidentstore

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	"github.com/dalemusser/safetyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store reads incidents through the sites they belong to. The incident's
// own employer_id field is never consulted for scoping.
type Store struct {
	c     *mongo.Collection
	sites *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:     db.Collection("incidents"),
		sites: db.Collection("sites"),
	}
}

// Create inserts an incident for an existing site (fixtures and tooling).
func (s *Store) Create(ctx context.Context, inc models.Incident) (models.Incident, error) {
	if !models.ValidCategory(inc.Category) {
		return models.Incident{}, fmt.Errorf("invalid incident category %q", inc.Category)
	}
	if inc.ID.IsZero() {
		inc.ID = primitive.NewObjectID()
	}
	inc.OccurredAt = inc.OccurredAt.UTC()
	inc.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, inc); err != nil {
		return models.Incident{}, err
	}
	return inc, nil
}

// siteIDsInScope resolves the scope to the set of site ids it owns.
func (s *Store) siteIDsInScope(ctx context.Context, d scopepolicy.Decision) ([]primitive.ObjectID, error) {
	filter := bson.M{}
	if err := d.Apply(filter, "employer_id"); err != nil {
		return nil, err
	}
	cur, err := s.sites.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// ListInScope returns incidents at sites visible under d that occurred in
// [from, to), ordered by occurrence.
func (s *Store) ListInScope(ctx context.Context, d scopepolicy.Decision, from, to time.Time) ([]models.Incident, error) {
	siteIDs, err := s.siteIDsInScope(ctx, d)
	if err != nil {
		return nil, err
	}
	if len(siteIDs) == 0 {
		return nil, nil
	}

	filter := bson.M{
		"site_id":     bson.M{"$in": siteIDs},
		"occurred_at": bson.M{"$gte": from.UTC(), "$lt": to.UTC()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Incident
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
