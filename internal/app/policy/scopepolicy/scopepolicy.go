// Package scopepolicy decides which employer's data a caller may read.
//
// Authorization rules:
//   - Tenant-scoped roles always get their assigned employer, whatever they
//     request or whatever context they carry.
//   - Staff roles get the requested employer, else their session context,
//     else all employers.
//   - Unknown roles and tenant roles without an assignment are denied.
//
// A Decision can only be produced by Resolve; every store query that reads
// tenant data takes one and applies it as a hard filter.
package scopepolicy

import (
	"encoding/json"
	"fmt"

	"github.com/dalemusser/safetyhub/internal/app/system/apperr"
	"github.com/dalemusser/safetyhub/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Kind classifies a decision.
type Kind int

const (
	// Denied is the zero value so an uninitialized Decision reads nothing.
	Denied Kind = iota
	All
	Employer
)

func (k Kind) String() string {
	switch k {
	case All:
		return "all"
	case Employer:
		return "employer"
	default:
		return "denied"
	}
}

// Decision is the effective, trusted employer scope for one request.
type Decision struct {
	kind       Kind
	employerID primitive.ObjectID
	overridden bool
	reason     string
}

// Resolve is a pure function of the caller's role, the employer assigned
// by the identity provider, the employer the caller asked for, and the
// staff context selection. primitive.NilObjectID means "not provided".
func Resolve(role authz.Role, assigned, requested, selected primitive.ObjectID) Decision {
	switch {
	case role.IsTenantScoped():
		if assigned.IsZero() {
			return deny("tenant role without an assigned employer")
		}
		d := Decision{kind: Employer, employerID: assigned}
		if (!requested.IsZero() && requested != assigned) || (!selected.IsZero() && selected != assigned) {
			d.overridden = true
		}
		return d
	case role.IsStaff():
		if !requested.IsZero() {
			return Decision{kind: Employer, employerID: requested}
		}
		if !selected.IsZero() {
			return Decision{kind: Employer, employerID: selected}
		}
		return Decision{kind: All}
	default:
		if role.ID == "" {
			return deny("unknown role")
		}
		return deny(fmt.Sprintf("role %q has no scope class", role.ID))
	}
}

func deny(reason string) Decision {
	return Decision{kind: Denied, reason: reason}
}

// Kind reports the decision's classification.
func (d Decision) Kind() Kind { return d.kind }

// EmployerID returns the bound employer, if any.
func (d Decision) EmployerID() (primitive.ObjectID, bool) {
	if d.kind != Employer {
		return primitive.NilObjectID, false
	}
	return d.employerID, true
}

func (d Decision) IsDenied() bool { return d.kind == Denied }

func (d Decision) IsAll() bool { return d.kind == All }

// Overridden is true when a tenant's requested or context employer was
// replaced by their assignment.
func (d Decision) Overridden() bool { return d.overridden }

// Reason explains a denial.
func (d Decision) Reason() string { return d.reason }

// Err returns an apperr.ErrDenied-wrapping error for denied decisions, nil otherwise.
func (d Decision) Err() error {
	if d.kind != Denied {
		return nil
	}
	reason := d.reason
	if reason == "" {
		reason = "no scope"
	}
	return fmt.Errorf("%w: %s", apperr.ErrDenied, reason)
}

// RequireEmployer returns the bound employer or an error: ErrDenied for a
// denied decision, ErrInvalidInput for an ALL decision.
func (d Decision) RequireEmployer() (primitive.ObjectID, error) {
	switch d.kind {
	case Employer:
		return d.employerID, nil
	case All:
		return primitive.NilObjectID, fmt.Errorf("%w: an employer must be selected", apperr.ErrInvalidInput)
	default:
		return primitive.NilObjectID, d.Err()
	}
}

// Apply adds the decision to a Mongo filter on field. ALL leaves the filter
// untouched; a denied decision refuses to produce a filter at all.
func (d Decision) Apply(filter bson.M, field string) error {
	switch d.kind {
	case All:
		return nil
	case Employer:
		filter[field] = d.employerID
		return nil
	default:
		return d.Err()
	}
}

// Contains reports whether rows owned by employerID are visible.
func (d Decision) Contains(employerID primitive.ObjectID) bool {
	switch d.kind {
	case All:
		return true
	case Employer:
		return employerID == d.employerID
	default:
		return false
	}
}

func (d Decision) String() string {
	switch d.kind {
	case All:
		return "all"
	case Employer:
		return "employer:" + d.employerID.Hex()
	default:
		return "denied(" + d.reason + ")"
	}
}

// MarshalJSON renders the decision for the /scope endpoint.
func (d Decision) MarshalJSON() ([]byte, error) {
	out := struct {
		Kind       string `json:"kind"`
		EmployerID string `json:"employer_id,omitempty"`
		Overridden bool   `json:"overridden,omitempty"`
		Reason     string `json:"reason,omitempty"`
	}{Kind: d.kind.String(), Overridden: d.overridden, Reason: d.reason}
	if d.kind == Employer {
		out.EmployerID = d.employerID.Hex()
	}
	return json.Marshal(out)
}
