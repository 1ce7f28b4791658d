package logout_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/features/logout"
	"github.com/dalemusser/safetyhub/internal/app/system/auditlog"
	"github.com/dalemusser/safetyhub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newSessionManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", 24*time.Hour, false, zap.NewNop())
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	return sm
}

func TestServeLogout_ClearsSessionCookie(t *testing.T) {
	sm := newSessionManager(t)
	handler := logout.NewHandler(sm, nil, zap.NewNop())

	req := httptest.NewRequest("POST", "/logout", nil)
	rec := httptest.NewRecorder()

	handler.ServeLogout(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	// Check that the session cookie is being deleted (MaxAge = -1)
	found := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" {
			found = true
			if c.MaxAge >= 0 {
				t.Errorf("cookie MaxAge: got %d, want negative (delete)", c.MaxAge)
			}
			break
		}
	}
	if !found {
		t.Error("expected session cookie to be set for deletion")
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "signed_out" {
		t.Errorf("body: %v", body)
	}
}

func TestServeLogout_AuditsSignedInUser(t *testing.T) {
	sm := newSessionManager(t)
	core, logs := observer.New(zap.InfoLevel)
	audit := auditlog.New(nil, zap.New(core), auditlog.Config{Auth: "log"})
	handler := logout.NewHandler(sm, audit, zap.NewNop())

	uid := primitive.NewObjectID().Hex()
	req := auth.WithTestUser(httptest.NewRequest("POST", "/logout", nil), &auth.SessionUser{ID: uid, Role: "admin"})
	rec := httptest.NewRecorder()
	handler.ServeLogout(rec, req)

	if logs.Len() == 0 {
		t.Fatal("expected a logout audit entry")
	}
	found := false
	for _, e := range logs.All() {
		if e.ContextMap()["user_id"] == uid {
			found = true
		}
	}
	if !found {
		t.Errorf("audit entry missing user_id %s", uid)
	}
}

func TestRoutes_RequireSignedIn(t *testing.T) {
	sm := newSessionManager(t)
	r := logout.Routes(logout.NewHandler(sm, nil, zap.NewNop()), sm)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for anonymous logout, got %d", rec.Code)
	}
}
