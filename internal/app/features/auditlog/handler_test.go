package auditlog_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/features/auditlog"
	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	"github.com/dalemusser/safetyhub/internal/app/store/audit"
	"github.com/dalemusser/safetyhub/internal/app/system/auth"
	"github.com/dalemusser/safetyhub/internal/app/system/authz"
	"github.com/dalemusser/safetyhub/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type listBody struct {
	Items []struct {
		EventType  string `json:"event_type"`
		EmployerID string `json:"employer_id"`
	} `json:"items"`
	Page       int   `json:"page"`
	TotalPages int   `json:"total_pages"`
	Total      int64 `json:"total"`
}

func newRouter(t *testing.T) (chi.Router, *audit.Store) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	store := audit.New(db)
	rv := scopepolicy.NewResolver(authz.DefaultTable(), nil, nil, logger)
	return auditlog.Routes(auditlog.NewHandler(store, rv, logger), sm), store
}

func seed(t *testing.T, store *audit.Store, emp primitive.ObjectID, category, eventType string, at time.Time) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e := audit.Event{Timestamp: at, Category: category, EventType: eventType, Success: true}
	if !emp.IsZero() {
		e.EmployerID = &emp
	}
	if err := store.Log(ctx, e); err != nil {
		t.Fatalf("seed audit event: %v", err)
	}
}

func get(t *testing.T, r chi.Router, target string, u *testutil.TestUser) (*testutil.ResponseRecorder, listBody) {
	t.Helper()
	req := testutil.NewRequest(http.MethodGet, target)
	if u != nil {
		req = testutil.WithUser(req, *u)
	}
	rec := testutil.NewRecorder()
	r.ServeHTTP(rec, req)

	var body listBody
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, body
}

func TestServeList_ScopeLimitsEvents(t *testing.T) {
	router, store := newRouter(t)
	empA, empB := primitive.NewObjectID(), primitive.NewObjectID()
	now := time.Now().UTC()

	seed(t, store, empA, audit.CategoryScope, audit.EventContextSet, now.Add(-3*time.Minute))
	seed(t, store, empA, audit.CategoryReport, audit.EventReportGenerated, now.Add(-2*time.Minute))
	seed(t, store, empB, audit.CategoryReport, audit.EventReportGenerated, now.Add(-time.Minute))
	seed(t, store, primitive.NilObjectID, audit.CategoryAuth, audit.EventLogout, now)

	analyst := testutil.AnalystUser()
	tenant := testutil.TenantUser(empA)

	rec, body := get(t, router, "/", &analyst)
	rec.AssertStatus(t, http.StatusOK)
	if body.Total != 4 {
		t.Errorf("staff should see all 4 events, got %d", body.Total)
	}
	if body.Items[0].EventType != audit.EventLogout {
		t.Errorf("newest first: got %q", body.Items[0].EventType)
	}

	_, body = get(t, router, "/?employer_id="+empB.Hex(), &analyst)
	if body.Total != 1 || body.Items[0].EmployerID != empB.Hex() {
		t.Errorf("staff employer filter: %+v", body)
	}

	_, body = get(t, router, "/", &tenant)
	if body.Total != 2 {
		t.Errorf("tenant should see only its employer's 2 events, got %d", body.Total)
	}
	for _, it := range body.Items {
		if it.EmployerID != empA.Hex() {
			t.Errorf("tenant saw foreign event %+v", it)
		}
	}

	// A tenant asking for another employer is overridden to its own.
	_, body = get(t, router, "/?employer_id="+empB.Hex(), &tenant)
	if body.Total != 2 {
		t.Errorf("tenant override: got %d events", body.Total)
	}

	_, body = get(t, router, "/?category=report", &analyst)
	if body.Total != 2 {
		t.Errorf("category filter: got %d", body.Total)
	}
}

func TestServeList_Errors(t *testing.T) {
	router, _ := newRouter(t)
	analyst := testutil.AnalystUser()
	orphan := testutil.TenantUser(primitive.NilObjectID)
	orphan.EmployerID = ""

	tests := []struct {
		name   string
		target string
		user   *testutil.TestUser
		want   int
	}{
		{"anonymous", "/", nil, http.StatusUnauthorized},
		{"tenant without employer", "/", &orphan, http.StatusForbidden},
		{"unknown category", "/?category=billing", &analyst, http.StatusBadRequest},
		{"event type outside category", "/?category=auth&event_type=report_generated", &analyst, http.StatusBadRequest},
		{"bad page", "/?page=0", &analyst, http.StatusBadRequest},
		{"bad date", "/?start_date=yesterday", &analyst, http.StatusBadRequest},
		{"inverted range", "/?start_date=2025-06-02&end_date=2025-06-01", &analyst, http.StatusBadRequest},
		{"malformed employer", "/?employer_id=xyz", &analyst, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := get(t, router, tt.target, tt.user)
			rec.AssertStatus(t, tt.want)
		})
	}
}
