// internal/app/store/employers/employerstore.go
package employerstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/safetyhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var (
	ErrDuplicateEmployer = errors.New("an employer with this name already exists")
	ErrNotFound          = errors.New("employer not found")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("employers")}
}

// Create inserts an employer. Employers are normally written by the
// onboarding path; this exists for fixtures and tooling.
func (s *Store) Create(ctx context.Context, emp models.Employer) (models.Employer, error) {
	now := time.Now().UTC()
	if emp.ID.IsZero() {
		emp.ID = primitive.NewObjectID()
	}
	emp.NameCI = text.Fold(emp.Name)
	if emp.Status == "" {
		emp.Status = models.EmployerActive
	}
	emp.CreatedAt = now
	emp.UpdatedAt = now
	if _, err := s.c.InsertOne(ctx, emp); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Employer{}, ErrDuplicateEmployer
		}
		return models.Employer{}, err
	}
	return emp, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Employer, error) {
	var emp models.Employer
	err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&emp)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Employer{}, ErrNotFound
	}
	if err != nil {
		return models.Employer{}, err
	}
	return emp, nil
}

// ListActive returns active employers ordered by name.
func (s *Store) ListActive(ctx context.Context) ([]models.Employer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name_ci", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, bson.M{"status": models.EmployerActive}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []models.Employer
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
