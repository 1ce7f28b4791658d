// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/safetyhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts all audit log routes under the path where this
// router is mounted (typically "/audit" from bootstrap).
//
// Staff see every event, or one employer's with ?employer_id=; tenant users
// see only events recorded against their own employer.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeList)
	})

	return r
}
