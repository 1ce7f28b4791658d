// internal/app/system/authz/roles.go
package authz

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Class separates roles that see across tenants from roles pinned to one.
type Class string

const (
	ClassStaff  Class = "staff"
	ClassTenant Class = "tenant"
)

// Role is one entry of the role table.
type Role struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Class Class  `yaml:"class"`
}

// IsStaff reports whether the role may view any employer or all employers.
func (r Role) IsStaff() bool { return r.Class == ClassStaff }

// IsTenantScoped reports whether the role is pinned to its assigned employer.
func (r Role) IsTenantScoped() bool { return r.Class == ClassTenant }

// Known reports whether the role carries a recognized class.
func (r Role) Known() bool { return r.IsStaff() || r.IsTenantScoped() }

// Table maps role ids to roles. Lookups of unknown ids return a zero Role,
// which is neither staff nor tenant and therefore resolves to no scope.
type Table struct {
	roles map[string]Role
}

const systemRoleID = "system"

// NewTable validates roles and builds a lookup table.
func NewTable(roles []Role) (*Table, error) {
	t := &Table{roles: make(map[string]Role, len(roles))}
	for _, r := range roles {
		id := normalizeID(r.ID)
		if id == "" {
			return nil, fmt.Errorf("role with empty id")
		}
		if id == systemRoleID {
			return nil, fmt.Errorf("role id %q is reserved", id)
		}
		if !r.Known() {
			return nil, fmt.Errorf("role %q: unknown class %q", id, r.Class)
		}
		if _, dup := t.roles[id]; dup {
			return nil, fmt.Errorf("role %q defined twice", id)
		}
		r.ID = id
		if r.Name == "" {
			r.Name = id
		}
		t.roles[id] = r
	}
	return t, nil
}

// DefaultRoles is the built-in role table.
func DefaultRoles() []Role {
	return []Role{
		{ID: "superadmin", Name: "Super Admin", Class: ClassStaff},
		{ID: "admin", Name: "Admin", Class: ClassStaff},
		{ID: "analyst", Name: "Analyst", Class: ClassStaff},
		{ID: "employer_admin", Name: "Employer Admin", Class: ClassTenant},
		{ID: "employer_user", Name: "Employer User", Class: ClassTenant},
		{ID: "site_manager", Name: "Site Manager", Class: ClassTenant},
	}
}

// DefaultTable returns the built-in table.
func DefaultTable() *Table {
	t, err := NewTable(DefaultRoles())
	if err != nil {
		panic(err)
	}
	return t
}

type roleFile struct {
	Roles []Role `yaml:"roles"`
}

// LoadTable reads a YAML role file. An empty path yields DefaultTable.
//
//	roles:
//	  - id: analyst
//	    name: Analyst
//	    class: staff
func LoadTable(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultTable(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read role table: %w", err)
	}
	var f roleFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse role table %s: %w", path, err)
	}
	if len(f.Roles) == 0 {
		return nil, fmt.Errorf("role table %s defines no roles", path)
	}
	return NewTable(f.Roles)
}

// Lookup returns the role for id and whether it exists.
func (t *Table) Lookup(id string) (Role, bool) {
	if t == nil {
		return Role{}, false
	}
	r, ok := t.roles[normalizeID(id)]
	return r, ok
}

// IDs lists the known role ids in sorted order.
func (t *Table) IDs() []string {
	out := make([]string, 0, len(t.roles))
	for id := range t.roles {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// SystemRole is the staff identity used by background work and the CLI.
// It is never present in a Table, so sessions cannot claim it.
func SystemRole() Role {
	return Role{ID: systemRoleID, Name: "System", Class: ClassStaff}
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
