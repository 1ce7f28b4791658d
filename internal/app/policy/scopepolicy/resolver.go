package scopepolicy

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/safetyhub/internal/app/system/apperr"
	"github.com/dalemusser/safetyhub/internal/app/system/auditlog"
	"github.com/dalemusser/safetyhub/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ContextReader returns the staff-selected employer for the request's
// session, or false when none is set.
type ContextReader interface {
	Get(r *http.Request, p authz.Principal) (primitive.ObjectID, bool)
}

// Resolver binds Resolve to the request: identity from the session or
// token, context from the session store.
type Resolver struct {
	Roles   *authz.Table
	Context ContextReader
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

// NewResolver builds a Resolver. ctxStore and audit may be nil.
func NewResolver(roles *authz.Table, ctxStore ContextReader, audit *auditlog.Logger, logger *zap.Logger) *Resolver {
	return &Resolver{Roles: roles, Context: ctxStore, Audit: audit, Log: logger}
}

// ParseRequested validates a raw employer_id parameter. Empty means not
// provided; anything else must be a 24-hex ObjectID.
func ParseRequested(raw string) (primitive.ObjectID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return primitive.NilObjectID, nil
	}
	oid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: employer_id %q is not a valid id", apperr.ErrInvalidInput, raw)
	}
	return oid, nil
}

// FromRequest resolves the scope for r. Malformed input is rejected before
// resolution; a denied decision is returned together with its error.
func (rv *Resolver) FromRequest(r *http.Request, requestedRaw string) (Decision, error) {
	requested, err := ParseRequested(requestedRaw)
	if err != nil {
		return Decision{}, err
	}

	p, ok := authz.CurrentPrincipal(r, rv.Roles)
	if !ok {
		d := deny("not signed in")
		return d, d.Err()
	}

	var selected primitive.ObjectID
	if rv.Context != nil {
		if id, ok := rv.Context.Get(r, p); ok {
			selected = id
		}
	}

	d := Resolve(p.Role, p.EmployerID, requested, selected)

	switch {
	case d.IsDenied():
		rv.Audit.ScopeDenied(r.Context(), r, p.UserID, p.Role.ID, d.Reason())
		if rv.Log != nil {
			rv.Log.Warn("scope denied",
				zap.String("user_id", p.UserID.Hex()),
				zap.String("reason", d.Reason()))
		}
		return d, d.Err()
	case d.Overridden():
		rv.Audit.ScopeOverridden(r.Context(), r, p.UserID, p.Role.ID, p.EmployerID, requested, selected)
	}
	return d, nil
}
