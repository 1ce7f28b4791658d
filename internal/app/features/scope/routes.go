// internal/app/features/scope/routes.go
package scope

import (
	"github.com/dalemusser/safetyhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts /scope and /context on the parent router.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/scope", h.ServeScope)
		pr.Get("/context", h.ServeGetContext)
		pr.Put("/context", h.ServeSetContext)
		pr.Delete("/context", h.ServeClearContext)
	})

	return r
}
