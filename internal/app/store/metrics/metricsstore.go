package metricsstore

import (
	"context"

	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	"github.com/dalemusser/safetyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Counts is the scope overview shown next to the resolved scope.
type Counts struct {
	Employers    int64 `json:"employers"`
	Sites        int64 `json:"sites"`
	Incidents    int64 `json:"incidents"`
	HoursRecords int64 `json:"hours_records"`
}

// FetchCounts returns record totals visible under d.
// Intentionally tolerant: on error it returns 0 for that counter.
// A denied decision is the one hard failure; nothing is counted for it.
func FetchCounts(ctx context.Context, db *mongo.Database, d scopepolicy.Decision) (Counts, error) {
	var out Counts
	if err := d.Err(); err != nil {
		return out, err
	}

	// employers
	empFilter := bson.M{"status": models.EmployerActive}
	if err := d.Apply(empFilter, "_id"); err != nil {
		return out, err
	}
	if n, err := db.Collection("employers").CountDocuments(ctx, empFilter); err == nil {
		out.Employers = n
	}

	// sites
	siteFilter := bson.M{}
	if err := d.Apply(siteFilter, "employer_id"); err != nil {
		return out, err
	}
	if n, err := db.Collection("sites").CountDocuments(ctx, siteFilter); err == nil {
		out.Sites = n
	}

	// incidents: owned through their site, never their own employer_id
	incFilter := bson.M{}
	if !d.IsAll() {
		ids, err := siteIDs(ctx, db, siteFilter)
		if err == nil {
			incFilter["site_id"] = bson.M{"$in": ids}
		} else {
			incFilter = nil
		}
	}
	if incFilter != nil {
		if n, err := db.Collection("incidents").CountDocuments(ctx, incFilter); err == nil {
			out.Incidents = n
		}
	}

	// hours
	hoursFilter := bson.M{}
	if err := d.Apply(hoursFilter, "employer_id"); err != nil {
		return out, err
	}
	if n, err := db.Collection("hours_records").CountDocuments(ctx, hoursFilter); err == nil {
		out.HoursRecords = n
	}

	return out, nil
}

func siteIDs(ctx context.Context, db *mongo.Database, filter bson.M) ([]primitive.ObjectID, error) {
	cur, err := db.Collection("sites").Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	ids := []primitive.ObjectID{}
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.ID)
	}
	return ids, cur.Err()
}
