// internal/app/store/sites/sitestore.go
package sitestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	"github.com/dalemusser/safetyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrNotFound = errors.New("site not found")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("sites")}
}

// Create inserts a site. The owning employer is required.
func (s *Store) Create(ctx context.Context, site models.Site) (models.Site, error) {
	if site.EmployerID.IsZero() {
		return models.Site{}, errors.New("site requires an employer")
	}
	if site.Status == "" {
		site.Status = models.SiteWorking
	}
	if !models.ValidSiteStatus(site.Status) {
		return models.Site{}, fmt.Errorf("invalid site status %q", site.Status)
	}
	now := time.Now().UTC()
	if site.ID.IsZero() {
		site.ID = primitive.NewObjectID()
	}
	site.NameCI = text.Fold(site.Name)
	site.CreatedAt = now
	site.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, site); err != nil {
		return models.Site{}, err
	}
	return site, nil
}

// GetByID returns a site only if the decision can see its employer.
func (s *Store) GetByID(ctx context.Context, d scopepolicy.Decision, id primitive.ObjectID) (models.Site, error) {
	filter := bson.M{"_id": id}
	if err := d.Apply(filter, "employer_id"); err != nil {
		return models.Site{}, err
	}
	var site models.Site
	err := s.c.FindOne(ctx, filter).Decode(&site)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Site{}, ErrNotFound
	}
	if err != nil {
		return models.Site{}, err
	}
	return site, nil
}

// ListInScope returns every site visible under d, ordered by _id.
func (s *Store) ListInScope(ctx context.Context, d scopepolicy.Decision) ([]models.Site, error) {
	filter := bson.M{}
	if err := d.Apply(filter, "employer_id"); err != nil {
		return nil, err
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Site
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
