// internal/app/features/scope/handler.go
package scope

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	apierrors "github.com/dalemusser/safetyhub/internal/app/features/errors"
	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	metricsstore "github.com/dalemusser/safetyhub/internal/app/store/metrics"
	"github.com/dalemusser/safetyhub/internal/app/system/apperr"
	"github.com/dalemusser/safetyhub/internal/app/system/auditlog"
	"github.com/dalemusser/safetyhub/internal/app/system/authz"
	"github.com/dalemusser/safetyhub/internal/app/system/empcontext"
	"github.com/dalemusser/safetyhub/internal/app/system/inputval"
	"github.com/dalemusser/safetyhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the resolved scope and the staff employer context.
type Handler struct {
	DB       *mongo.Database // optional; enables overview counts on /scope
	Roles    *authz.Table
	Resolver *scopepolicy.Resolver
	Context  *empcontext.Store
	Audit    *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, roles *authz.Table, rv *scopepolicy.Resolver, ctxStore *empcontext.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Roles:    roles,
		Resolver: rv,
		Context:  ctxStore,
		Audit:    audit,
		Log:      logger,
	}
}

type scopeResponse struct {
	Scope  scopepolicy.Decision `json:"scope"`
	Role   string               `json:"role"`
	Counts *metricsstore.Counts `json:"counts,omitempty"`
}

// ServeScope handles GET /scope?employer_id=.
func (h *Handler) ServeScope(w http.ResponseWriter, r *http.Request) {
	d, err := h.Resolver.FromRequest(r, r.URL.Query().Get("employer_id"))
	if err != nil {
		apierrors.WriteError(w, h.Log, err)
		return
	}
	p, _ := authz.CurrentPrincipal(r, h.Roles)
	resp := scopeResponse{Scope: d, Role: p.Role.ID}

	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), timeouts.Read())
		defer cancel()
		counts, err := metricsstore.FetchCounts(ctx, h.DB, d)
		if err != nil {
			apierrors.WriteError(w, h.Log, err)
			return
		}
		resp.Counts = &counts
	}

	apierrors.WriteJSON(w, http.StatusOK, resp)
}

type contextResponse struct {
	EmployerID *string `json:"employer_id"`
}

// ServeGetContext handles GET /context.
func (h *Handler) ServeGetContext(w http.ResponseWriter, r *http.Request) {
	p, ok := h.staff(w, r)
	if !ok {
		return
	}
	var resp contextResponse
	if id, ok := h.Context.Get(r, p); ok {
		hex := id.Hex()
		resp.EmployerID = &hex
	}
	apierrors.WriteJSON(w, http.StatusOK, resp)
}

type setContextRequest struct {
	EmployerID string `json:"employer_id"`
}

// ServeSetContext handles PUT /context with {"employer_id": "..."}.
// Tenant-scoped callers are refused and the attempt is audited.
func (h *Handler) ServeSetContext(w http.ResponseWriter, r *http.Request) {
	p, ok := authz.CurrentPrincipal(r, h.Roles)
	if !ok {
		apierrors.RenderUnauthorized(w)
		return
	}

	var req setContextRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		apierrors.WriteError(w, h.Log, fmt.Errorf("%w: body must be {\"employer_id\": \"<id>\"}", apperr.ErrInvalidInput))
		return
	}

	if !p.Role.IsStaff() {
		attempted, _ := primitive.ObjectIDFromHex(req.EmployerID)
		h.Audit.ContextSetRefused(r.Context(), r, p.UserID, p.Role.ID, attempted)
		apierrors.WriteError(w, h.Log, empcontext.ErrNotStaff)
		return
	}

	id, err := inputval.ObjectID("employer_id", req.EmployerID)
	if err != nil {
		apierrors.WriteError(w, h.Log, err)
		return
	}
	if err := h.Context.Set(w, r, p, id); err != nil {
		apierrors.WriteError(w, h.Log, err)
		return
	}
	h.Audit.ContextSet(r.Context(), r, p.UserID, p.Role.ID, id)

	hex := id.Hex()
	apierrors.WriteJSON(w, http.StatusOK, contextResponse{EmployerID: &hex})
}

// ServeClearContext handles DELETE /context.
func (h *Handler) ServeClearContext(w http.ResponseWriter, r *http.Request) {
	p, ok := h.staff(w, r)
	if !ok {
		return
	}
	if err := h.Context.Clear(w, r, p); err != nil {
		apierrors.WriteError(w, h.Log, err)
		return
	}
	h.Audit.ContextCleared(r.Context(), r, p.UserID, p.Role.ID)
	apierrors.WriteJSON(w, http.StatusOK, contextResponse{})
}

// staff returns the caller if they hold a staff role, writing the error
// response otherwise.
func (h *Handler) staff(w http.ResponseWriter, r *http.Request) (authz.Principal, bool) {
	p, ok := authz.CurrentPrincipal(r, h.Roles)
	if !ok {
		apierrors.RenderUnauthorized(w)
		return authz.Principal{}, false
	}
	if !p.Role.IsStaff() {
		apierrors.WriteError(w, h.Log, empcontext.ErrNotStaff)
		return authz.Principal{}, false
	}
	return p, true
}
