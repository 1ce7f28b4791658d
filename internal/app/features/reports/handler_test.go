package reports_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/features/reports"
	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	"github.com/dalemusser/safetyhub/internal/app/reportcache"
	"github.com/dalemusser/safetyhub/internal/app/system/apperr"
	"github.com/dalemusser/safetyhub/internal/app/system/auth"
	"github.com/dalemusser/safetyhub/internal/app/system/authz"
	"github.com/dalemusser/safetyhub/internal/app/system/period"
	"github.com/dalemusser/safetyhub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeNarratives struct {
	calls []scopepolicy.Decision
	month period.Month
	err   error
}

func (f *fakeNarratives) GetOrGenerate(_ context.Context, d scopepolicy.Decision, m period.Month) (reportcache.Report, error) {
	f.calls = append(f.calls, d)
	f.month = m
	if f.err != nil {
		return reportcache.Report{}, f.err
	}
	emp, err := d.RequireEmployer()
	if err != nil {
		return reportcache.Report{}, err
	}
	return reportcache.Report{
		EmployerID:  emp,
		Month:       m,
		Text:        "A calm month.",
		Cached:      len(f.calls) > 1,
		GeneratedAt: time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC),
		Generator:   "template",
	}, nil
}

func setup(t *testing.T, fake *fakeNarratives, limiter *ratelimit.Limiter) chi.Router {
	t.Helper()
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	rv := scopepolicy.NewResolver(authz.DefaultTable(), nil, nil, logger)
	h := reports.NewHandler(rv, fake, logger)
	h.Now = func() time.Time { return time.Date(2025, time.June, 10, 0, 0, 0, 0, time.UTC) }
	return reports.Routes(h, sm, limiter)
}

func call(r chi.Router, target string, u *auth.SessionUser) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", target, nil)
	if u != nil {
		req = auth.WithTestUser(req, u)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestServeNarrative_Tenant(t *testing.T) {
	fake := &fakeNarratives{}
	r := setup(t, fake, nil)
	own, foreign := primitive.NewObjectID(), primitive.NewObjectID()
	u := &auth.SessionUser{ID: primitive.NewObjectID().Hex(), Role: "employer_user", EmployerID: own.Hex()}

	rec := call(r, "/narrative?employer_id="+foreign.Hex()+"&month=2025-04", u)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d (%s)", rec.Code, rec.Body.String())
	}

	var body struct {
		EmployerID string `json:"employer_id"`
		Month      string `json:"month"`
		Text       string `json:"text"`
		Cached     bool   `json:"cached"`
		Generator  string `json:"generator"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.EmployerID != own.Hex() {
		t.Errorf("employer: got %s, want own %s", body.EmployerID, own.Hex())
	}
	if body.Month != "2025-04" || body.Text != "A calm month." || body.Cached {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestServeNarrative_DefaultMonth(t *testing.T) {
	fake := &fakeNarratives{}
	r := setup(t, fake, nil)
	emp := primitive.NewObjectID()
	u := &auth.SessionUser{ID: primitive.NewObjectID().Hex(), Role: "admin"}

	if rec := call(r, "/narrative?employer_id="+emp.Hex(), u); rec.Code != http.StatusOK {
		t.Fatalf("status: got %d", rec.Code)
	}
	if fake.month != period.MustParse("2025-05") {
		t.Errorf("month: got %s, want 2025-05", fake.month)
	}
}

func TestServeNarrative_Errors(t *testing.T) {
	staff := &auth.SessionUser{ID: primitive.NewObjectID().Hex(), Role: "admin"}
	emp := primitive.NewObjectID().Hex()

	cases := []struct {
		name   string
		target string
		err    error
		status int
	}{
		{"staff without employer", "/narrative?month=2025-05", nil, http.StatusBadRequest},
		{"bad month", "/narrative?employer_id=" + emp + "&month=may", nil, http.StatusBadRequest},
		{"generator down", "/narrative?employer_id=" + emp, fmt.Errorf("%w: openai: 500", apperr.ErrUpstreamUnavailable), http.StatusServiceUnavailable},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := setup(t, &fakeNarratives{err: c.err}, nil)
			if rec := call(r, c.target, staff); rec.Code != c.status {
				t.Errorf("status: got %d, want %d (%s)", rec.Code, c.status, rec.Body.String())
			}
		})
	}
}

func TestServeNarrative_RateLimitedPerUser(t *testing.T) {
	limiter := ratelimit.New(2, time.Minute)
	defer limiter.Stop()

	fake := &fakeNarratives{}
	r := setup(t, fake, limiter)
	emp := primitive.NewObjectID()
	alice := &auth.SessionUser{ID: primitive.NewObjectID().Hex(), Role: "employer_user", EmployerID: emp.Hex()}
	bob := &auth.SessionUser{ID: primitive.NewObjectID().Hex(), Role: "employer_user", EmployerID: emp.Hex()}

	for i := 0; i < 2; i++ {
		if rec := call(r, "/narrative", alice); rec.Code != http.StatusOK {
			t.Fatalf("request %d: got %d", i, rec.Code)
		}
	}
	rec := call(r, "/narrative", alice)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request: got %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if len(fake.calls) != 2 {
		t.Errorf("throttled request must not reach the cache, calls=%d", len(fake.calls))
	}

	if rec := call(r, "/narrative", bob); rec.Code != http.StatusOK {
		t.Errorf("another user must have their own budget, got %d", rec.Code)
	}
}

func TestServeNarrative_RequiresSignIn(t *testing.T) {
	r := setup(t, &fakeNarratives{}, nil)
	if rec := call(r, "/narrative", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want 401", rec.Code)
	}
}
