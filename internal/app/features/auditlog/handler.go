// internal/app/features/auditlog/handler.go
package auditlog

import (
	"time"

	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	"github.com/dalemusser/safetyhub/internal/app/store/audit"
	"go.uber.org/zap"
)

// Handler serves the audit trail, limited to the caller's resolved scope.
type Handler struct {
	Store    *audit.Store
	Resolver *scopepolicy.Resolver
	Log      *zap.Logger
	Now      func() time.Time
}

// NewHandler constructs an audit log feature handler.
func NewHandler(store *audit.Store, rv *scopepolicy.Resolver, logger *zap.Logger) *Handler {
	return &Handler{
		Store:    store,
		Resolver: rv,
		Log:      logger,
		Now:      time.Now,
	}
}
