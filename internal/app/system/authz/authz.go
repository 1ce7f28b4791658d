// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/safetyhub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Principal is the authenticated caller with ids parsed and the role
// looked up in a table.
type Principal struct {
	UserID     primitive.ObjectID
	Name       string
	Role       Role
	EmployerID primitive.ObjectID // NilObjectID when unassigned
	SiteID     primitive.ObjectID
}

// PrincipalFor converts a session user. A role missing from the table
// yields a zero Role, which scope resolution treats as denied.
func PrincipalFor(u *auth.SessionUser, roles *Table) (Principal, bool) {
	if u == nil {
		return Principal{}, false
	}
	uid, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return Principal{}, false
	}
	role, _ := roles.Lookup(u.Role)
	return Principal{
		UserID:     uid,
		Name:       u.Name,
		Role:       role,
		EmployerID: hexOrNil(u.EmployerID),
		SiteID:     hexOrNil(u.SiteID),
	}, true
}

// CurrentPrincipal returns the principal for the request's user.
func CurrentPrincipal(r *http.Request, roles *Table) (Principal, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return Principal{}, false
	}
	return PrincipalFor(u, roles)
}

// hexOrNil parses an ObjectID hex, treating blank or malformed values as unassigned.
func hexOrNil(s string) primitive.ObjectID {
	s = strings.TrimSpace(s)
	if s == "" {
		return primitive.NilObjectID
	}
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID
	}
	return oid
}
