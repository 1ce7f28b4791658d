// Package empcontext holds the staff-selected "current employer" for one
// authenticated session.
//
// The value lives in the signed session cookie next to the identity, so it
// never outlives the session and is destroyed on sign-out. It is bound to
// the user id that wrote it; a value carried into another user's session is
// ignored.
package empcontext

import (
	"fmt"
	"net/http"

	"github.com/dalemusser/safetyhub/internal/app/system/apperr"
	"github.com/dalemusser/safetyhub/internal/app/system/authz"
	"github.com/gorilla/sessions"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	employerKey = "context_employer_id"
	ownerKey    = "context_owner_id"
)

// ErrNotStaff is returned when a tenant-scoped session tries to set a context.
var ErrNotStaff = fmt.Errorf("%w: only staff roles may select an employer context", apperr.ErrDenied)

// Store reads and writes the employer context in the session cookie.
type Store struct {
	sessions sessions.Store
	name     string
	log      *zap.Logger
}

// New binds the context to the named session in store.
func New(store sessions.Store, name string, logger *zap.Logger) *Store {
	return &Store{sessions: store, name: name, log: logger}
}

func (s *Store) session(r *http.Request) (*sessions.Session, error) {
	sess, err := s.sessions.Get(r, s.name)
	if err != nil && sess == nil {
		return nil, err
	}
	// A decode error leaves a usable fresh session.
	return sess, nil
}

// Set records employerID as the staff member's current employer.
func (s *Store) Set(w http.ResponseWriter, r *http.Request, p authz.Principal, employerID primitive.ObjectID) error {
	if !p.Role.IsStaff() {
		return ErrNotStaff
	}
	if employerID.IsZero() {
		return fmt.Errorf("%w: employer_id is required", apperr.ErrInvalidInput)
	}
	sess, err := s.session(r)
	if err != nil {
		return err
	}
	sess.Values[employerKey] = employerID.Hex()
	sess.Values[ownerKey] = p.UserID.Hex()
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save employer context: %w", err)
	}
	s.log.Debug("employer context set",
		zap.String("user_id", p.UserID.Hex()),
		zap.String("employer_id", employerID.Hex()))
	return nil
}

// Clear drops the context, returning a staff member to the all-employer view.
func (s *Store) Clear(w http.ResponseWriter, r *http.Request, p authz.Principal) error {
	if !p.Role.IsStaff() {
		return ErrNotStaff
	}
	sess, err := s.session(r)
	if err != nil {
		return err
	}
	delete(sess.Values, employerKey)
	delete(sess.Values, ownerKey)
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("clear employer context: %w", err)
	}
	return nil
}

// Get returns the current employer context. Tenant sessions never have one.
func (s *Store) Get(r *http.Request, p authz.Principal) (primitive.ObjectID, bool) {
	if !p.Role.IsStaff() {
		return primitive.NilObjectID, false
	}
	sess, err := s.session(r)
	if err != nil {
		s.log.Warn("employer context unreadable", zap.Error(err))
		return primitive.NilObjectID, false
	}
	owner, _ := sess.Values[ownerKey].(string)
	if owner == "" || owner != p.UserID.Hex() {
		return primitive.NilObjectID, false
	}
	raw, _ := sess.Values[employerKey].(string)
	oid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return oid, true
}
