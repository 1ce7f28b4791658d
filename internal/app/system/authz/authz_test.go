package authz_test

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/dalemusser/safetyhub/internal/app/system/auth"
	"github.com/dalemusser/safetyhub/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// testUserID returns a valid ObjectID hex string for tests.
func testUserID() string {
	return primitive.NewObjectID().Hex()
}

func TestDefaultTable_Classes(t *testing.T) {
	tbl := authz.DefaultTable()

	staff := []string{"superadmin", "admin", "analyst"}
	tenant := []string{"employer_admin", "employer_user", "site_manager"}

	for _, id := range staff {
		r, ok := tbl.Lookup(id)
		if !ok || !r.IsStaff() {
			t.Errorf("expected %q to be a staff role, got %+v ok=%v", id, r, ok)
		}
	}
	for _, id := range tenant {
		r, ok := tbl.Lookup(id)
		if !ok || !r.IsTenantScoped() {
			t.Errorf("expected %q to be tenant-scoped, got %+v ok=%v", id, r, ok)
		}
	}
}

func TestLookup_NormalizesCase(t *testing.T) {
	r, ok := authz.DefaultTable().Lookup("  ANALYST ")
	if !ok || r.ID != "analyst" {
		t.Errorf("expected analyst, got %+v ok=%v", r, ok)
	}
}

func TestLookup_UnknownRole(t *testing.T) {
	r, ok := authz.DefaultTable().Lookup("visitor")
	if ok {
		t.Fatal("expected unknown role lookup to fail")
	}
	if r.Known() {
		t.Error("expected zero role to be neither staff nor tenant")
	}
}

func TestLookup_SystemRoleNotClaimable(t *testing.T) {
	if _, ok := authz.DefaultTable().Lookup("system"); ok {
		t.Error("system role must not be present in the table")
	}
	if !authz.SystemRole().IsStaff() {
		t.Error("system role should be staff")
	}
}

func TestNewTable_RejectsBadRoles(t *testing.T) {
	cases := map[string][]authz.Role{
		"empty id":      {{ID: "", Class: authz.ClassStaff}},
		"unknown class": {{ID: "auditor", Class: "visitor"}},
		"duplicate":     {{ID: "a", Class: authz.ClassStaff}, {ID: "A", Class: authz.ClassTenant}},
		"reserved":      {{ID: "system", Class: authz.ClassStaff}},
	}
	for name, roles := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := authz.NewTable(roles); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadTable_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roles.yaml")
	content := `roles:
  - id: auditor
    name: Auditor
    class: staff
  - id: foreman
    class: tenant
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	tbl, err := authz.LoadTable(path)
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if r, ok := tbl.Lookup("auditor"); !ok || !r.IsStaff() {
		t.Errorf("auditor: got %+v ok=%v", r, ok)
	}
	if r, ok := tbl.Lookup("foreman"); !ok || !r.IsTenantScoped() || r.Name != "foreman" {
		t.Errorf("foreman: got %+v ok=%v", r, ok)
	}
	if _, ok := tbl.Lookup("analyst"); ok {
		t.Error("file table should not include defaults")
	}
}

func TestLoadTable_EmptyPathUsesDefaults(t *testing.T) {
	tbl, err := authz.LoadTable("")
	if err != nil {
		t.Fatalf("LoadTable: %v", err)
	}
	if len(tbl.IDs()) != len(authz.DefaultRoles()) {
		t.Errorf("expected %d roles, got %v", len(authz.DefaultRoles()), tbl.IDs())
	}
}

func TestCurrentPrincipal_ParsesIDs(t *testing.T) {
	emp := primitive.NewObjectID()
	req := httptest.NewRequest("GET", "/test", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{
		ID:         testUserID(),
		Name:       "Tess",
		Role:       "Employer_User",
		EmployerID: emp.Hex(),
	})

	p, ok := authz.CurrentPrincipal(req, authz.DefaultTable())
	if !ok {
		t.Fatal("expected principal")
	}
	if p.EmployerID != emp {
		t.Errorf("employer: got %s, want %s", p.EmployerID.Hex(), emp.Hex())
	}
	if !p.Role.IsTenantScoped() {
		t.Errorf("expected tenant role, got %+v", p.Role)
	}
	if p.Role.IsStaff() {
		t.Error("tenant user should not be staff")
	}
}

func TestCurrentPrincipal_MalformedEmployerIsUnassigned(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{
		ID:         testUserID(),
		Role:       "employer_admin",
		EmployerID: "not-an-id",
	})

	p, ok := authz.CurrentPrincipal(req, authz.DefaultTable())
	if !ok {
		t.Fatal("expected principal")
	}
	if !p.EmployerID.IsZero() {
		t.Errorf("expected unassigned employer, got %s", p.EmployerID.Hex())
	}
}

func TestCurrentPrincipal_NoUser(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	if _, ok := authz.CurrentPrincipal(req, authz.DefaultTable()); ok {
		t.Error("expected no principal without a user")
	}
}

func TestCurrentPrincipal_MalformedUserID(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: "bad", Role: "admin"})

	if p, ok := authz.CurrentPrincipal(req, authz.DefaultTable()); ok {
		t.Errorf("expected no principal for a malformed user id, got %+v", p)
	}
}

func TestCurrentPrincipal_RoleComesFromTable(t *testing.T) {
	req := httptest.NewRequest("GET", "/test", nil)
	req = auth.WithTestUser(req, &auth.SessionUser{ID: testUserID(), Role: " Analyst "})

	p, ok := authz.CurrentPrincipal(req, authz.DefaultTable())
	if !ok {
		t.Fatal("expected principal")
	}
	if !p.Role.IsStaff() {
		t.Errorf("expected analyst to resolve to a staff role, got %+v", p.Role)
	}
}
