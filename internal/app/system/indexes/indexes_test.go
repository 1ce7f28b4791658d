package indexes_test

import (
	"context"
	"testing"

	"github.com/dalemusser/safetyhub/internal/app/system/indexes"
	"github.com/dalemusser/safetyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func indexNames(t *testing.T, ctx context.Context, db *mongo.Database, coll string) map[string]bool {
	t.Helper()
	cur, err := db.Collection(coll).Indexes().List(ctx)
	if err != nil {
		t.Fatalf("List indexes on %s failed: %v", coll, err)
	}
	defer cur.Close(ctx)

	names := make(map[string]bool)
	for cur.Next(ctx) {
		var idx bson.M
		if err := cur.Decode(&idx); err != nil {
			continue
		}
		if name, ok := idx["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestEnsureAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// EnsureAll should succeed on a clean database
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("First EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("Second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesExpectedIndexes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	expected := map[string][]string{
		"employers": {"uniq_employers_nameci", "idx_employers_status_nameci__id"},
		"sites":     {"idx_sites_employer_nameci__id", "idx_sites_nameci__id"},
		"incidents": {"idx_incidents_site_occurredat", "idx_incidents_occurredat"},
		"hours_records": {
			"idx_hours_employer_month_recordedat",
			"idx_hours_employer_site_month",
			"idx_hours_month",
		},
		"generated_reports": {"uniq_reports_employer_month"},
		"audit_events": {
			"idx_audit_timestamp",
			"idx_audit_employer_timestamp",
			"idx_audit_category_timestamp",
		},
	}

	for coll, want := range expected {
		names := indexNames(t, ctx, db, coll)
		for _, name := range want {
			if !names[name] {
				t.Errorf("expected index %q to exist on %s collection", name, coll)
			}
		}
	}
}

func TestEnsureAll_RenamesMisnamedIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Same keys, different name: should be dropped and recreated under ours.
	_, err := db.Collection("incidents").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "site_id", Value: 1}, {Key: "occurred_at", Value: 1}},
		Options: options.Index().SetName("legacy_site_date"),
	})
	if err != nil {
		t.Fatalf("create legacy index failed: %v", err)
	}

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names := indexNames(t, ctx, db, "incidents")
	if names["legacy_site_date"] {
		t.Error("legacy index name should have been replaced")
	}
	if !names["idx_incidents_site_occurredat"] {
		t.Error("expected idx_incidents_site_occurredat after rename")
	}
}

func TestEnsureAll_UniqueReportPerEmployerMonth(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	emp := primitive.NewObjectID()
	c := db.Collection("generated_reports")
	if _, err := c.InsertOne(ctx, bson.M{"employer_id": emp, "month": "2025-05", "text": "a"}); err != nil {
		t.Fatalf("Insert report failed: %v", err)
	}

	// Same employer, same month - should fail
	if _, err := c.InsertOne(ctx, bson.M{"employer_id": emp, "month": "2025-05", "text": "b"}); err == nil {
		t.Error("expected duplicate key error for unique index on generated_reports(employer_id, month)")
	}

	// Different month is fine
	if _, err := c.InsertOne(ctx, bson.M{"employer_id": emp, "month": "2025-06", "text": "c"}); err != nil {
		t.Errorf("insert for another month failed: %v", err)
	}
}

func TestEnsureAll_DuplicatesBlockUniqueIndex(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	c := db.Collection("employers")
	for i := 0; i < 2; i++ {
		if _, err := c.InsertOne(ctx, bson.M{"name": "Acme", "name_ci": "acme", "status": "active"}); err != nil {
			t.Fatalf("seed employer failed: %v", err)
		}
	}

	if err := indexes.EnsureAll(ctx, db); err == nil {
		t.Fatal("expected EnsureAll to report the duplicate employer names")
	}
}
