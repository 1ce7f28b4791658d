package reportstore_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	reportstore "github.com/dalemusser/safetyhub/internal/app/store/reports"
	"github.com/dalemusser/safetyhub/internal/domain/models"
	"github.com/dalemusser/safetyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGet_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := reportstore.New(db).Get(ctx, primitive.NewObjectID(), "2025-01")
	if !errors.Is(err, reportstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSave_UpsertsAndAppendsRevisions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := reportstore.New(db)
	emp := primitive.NewObjectID()

	first, err := store.Save(ctx, emp, "2025-01", models.ReportRevision{
		Text: "first", GeneratedAt: time.Now(), Generator: "template", RequestID: "r1",
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	second, err := store.Save(ctx, emp, "2025-01", models.ReportRevision{
		Text: "second", GeneratedAt: time.Now(), Generator: "template", RequestID: "r2",
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if second.ID != first.ID {
		t.Error("expected the same document to be updated")
	}
	if second.Text != "second" || len(second.Revisions) != 2 {
		t.Errorf("unexpected report: text=%q revisions=%d", second.Text, len(second.Revisions))
	}
	if second.Revisions[0].RequestID != "r1" || second.Revisions[1].RequestID != "r2" {
		t.Errorf("revisions out of order: %+v", second.Revisions)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Error("created_at must not change on update")
	}

	got, err := store.Get(ctx, emp, "2025-01")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Text != "second" {
		t.Errorf("Get text: got %q", got.Text)
	}
}

func TestSave_CapsRevisionHistory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	store := reportstore.New(db)
	emp := primitive.NewObjectID()

	var last models.GeneratedReport
	for i := 0; i < reportstore.MaxRevisions+5; i++ {
		var err error
		last, err = store.Save(ctx, emp, "2025-02", models.ReportRevision{
			Text: fmt.Sprintf("rev %d", i), GeneratedAt: time.Now(), RequestID: fmt.Sprint(i),
		})
		if err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
	}
	if len(last.Revisions) != reportstore.MaxRevisions {
		t.Errorf("expected %d revisions, got %d", reportstore.MaxRevisions, len(last.Revisions))
	}
	if last.Revisions[0].RequestID != "5" {
		t.Errorf("expected oldest revisions dropped, first is %q", last.Revisions[0].RequestID)
	}
}
