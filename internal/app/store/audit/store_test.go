package audit_test

import (
	"testing"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/store/audit"
	"github.com/dalemusser/safetyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_Log_AutoGeneratesIDAndTimestamp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	before := time.Now().Add(-time.Second)
	if err := store.Log(ctx, audit.Event{
		Category:  audit.CategoryScope,
		EventType: audit.EventScopeDenied,
		Success:   false,
	}); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	after := time.Now().Add(time.Second)

	events, err := store.Query(ctx, audit.QueryFilter{Limit: 10})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].ID.IsZero() {
		t.Error("expected ID to be auto-generated")
	}
	if events[0].Timestamp.Before(before) || events[0].Timestamp.After(after) {
		t.Errorf("expected timestamp to be set to current time, got %v", events[0].Timestamp)
	}
}

func TestStore_Query_ByEmployerAndType(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	empA := primitive.NewObjectID()
	empB := primitive.NewObjectID()
	userID := primitive.NewObjectID()

	for i := 0; i < 3; i++ {
		if err := store.Log(ctx, audit.Event{
			Category:   audit.CategoryScope,
			EventType:  audit.EventScopeOverridden,
			EmployerID: &empA,
			UserID:     &userID,
			Success:    true,
			Details:    map[string]string{"requested": empB.Hex()},
		}); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}
	if err := store.Log(ctx, audit.Event{
		Category:   audit.CategoryReport,
		EventType:  audit.EventReportGenerated,
		EmployerID: &empB,
		Success:    true,
	}); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	events, err := store.Query(ctx, audit.QueryFilter{EmployerID: &empA})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("expected 3 events for employer A, got %d", len(events))
	}
	if events[0].Details["requested"] != empB.Hex() {
		t.Errorf("expected details to round-trip, got %v", events[0].Details)
	}

	n, err := store.CountByFilter(ctx, audit.QueryFilter{EventType: audit.EventReportGenerated})
	if err != nil {
		t.Fatalf("CountByFilter failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 report event, got %d", n)
	}

	limited, err := store.Query(ctx, audit.QueryFilter{UserID: &userID, Limit: 2})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected limit of 2, got %d", len(limited))
	}
}
