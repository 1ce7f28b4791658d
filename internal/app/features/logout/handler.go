// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	apierrors "github.com/dalemusser/safetyhub/internal/app/features/errors"
	"github.com/dalemusser/safetyhub/internal/app/system/auditlog"
	"github.com/dalemusser/safetyhub/internal/app/system/auth"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	Audit      *auditlog.Logger
}

func NewHandler(sessionMgr *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		SessionMgr: sessionMgr,
		Audit:      audit,
	}
}

// ServeLogout handles POST /logout. The whole session goes, including the
// staff employer context stored alongside the identity.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		h.Audit.Logout(r.Context(), r, u.ID, u.Role)
	}

	if err := h.SessionMgr.SignOut(w, r); err != nil {
		// Session decode failed. Log and continue; the client drops its token anyway.
		h.Log.Error("logout: save session", zap.Error(err))
	}

	apierrors.WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}
