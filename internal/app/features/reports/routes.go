// internal/app/features/reports/routes.go
package reports

import (
	"net/http"

	"github.com/dalemusser/safetyhub/internal/app/system/auth"
	"github.com/dalemusser/safetyhub/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /reports. limiter may be nil to disable throttling.
func Routes(h *Handler, sm *auth.SessionManager, limiter *ratelimit.Limiter) chi.Router {
	r := chi.NewRouter()

	r.Group(func(rr chi.Router) {
		rr.Use(sm.RequireSignedIn)
		if limiter != nil {
			rr.Use(limiter.Middleware(userKey))
		}
		// Scope and role checks happen inside the handler via the resolver.
		rr.Get("/narrative", h.ServeNarrative)
	})

	return r
}

// userKey throttles per signed-in user.
func userKey(r *http.Request) string {
	if u, ok := auth.CurrentUser(r); ok && u.ID != "" {
		return "user:" + u.ID
	}
	return ""
}
