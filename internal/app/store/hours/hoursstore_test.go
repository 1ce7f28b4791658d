package hoursstore_test

import (
	"testing"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	hoursstore "github.com/dalemusser/safetyhub/internal/app/store/hours"
	"github.com/dalemusser/safetyhub/internal/app/system/authz"
	"github.com/dalemusser/safetyhub/internal/app/system/period"
	"github.com/dalemusser/safetyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestListInScope_FiltersEmployerAndMonths(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	a := fx.CreateEmployer(ctx, "A")
	b := fx.CreateEmployer(ctx, "B")
	now := time.Now().UTC()

	fx.CreateEmployerHours(ctx, a.ID, "2024-12", 5000, now)
	fx.CreateEmployerHours(ctx, a.ID, "2025-01", 5000, now)
	fx.CreateEmployerHours(ctx, a.ID, "2025-01", 6000, now.Add(time.Hour)) // correction
	fx.CreateEmployerHours(ctx, a.ID, "2025-03", 5000, now)
	fx.CreateEmployerHours(ctx, b.ID, "2025-01", 9000, now)

	d := scopepolicy.Resolve(authz.SystemRole(), primitive.NilObjectID, a.ID, primitive.NilObjectID)
	got, err := hoursstore.New(db).ListInScope(ctx, d, period.MustParse("2025-01"), period.MustParse("2025-02"))
	if err != nil {
		t.Fatalf("ListInScope: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both January revisions for A, got %d", len(got))
	}
	for _, rec := range got {
		if rec.EmployerID != a.ID || rec.Month != "2025-01" {
			t.Errorf("unexpected record %+v", rec)
		}
	}
	if !got[0].RecordedAt.Before(got[1].RecordedAt) {
		t.Error("expected records ordered by recorded_at")
	}
}

func TestCreate_RejectsBadMonth(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := hoursstore.New(db).Create(ctx, hoursRecord("2025-1"))
	if err == nil {
		t.Error("expected error for malformed month")
	}
}
