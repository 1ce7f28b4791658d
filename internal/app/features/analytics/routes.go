// internal/app/features/analytics/routes.go
package analytics

import (
	"github.com/dalemusser/safetyhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts /metrics, /series and /rankings on the parent router.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/metrics", h.ServeMetrics)
		pr.Get("/series", h.ServeSeries)
		pr.Get("/rankings", h.ServeRankings)
	})

	return r
}
