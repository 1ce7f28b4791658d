// internal/app/features/reports/handler.go
package reports

import (
	"context"
	"net/http"
	"time"

	apierrors "github.com/dalemusser/safetyhub/internal/app/features/errors"
	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	"github.com/dalemusser/safetyhub/internal/app/reportcache"
	"github.com/dalemusser/safetyhub/internal/app/system/inputval"
	"github.com/dalemusser/safetyhub/internal/app/system/period"
	"go.uber.org/zap"
)

// Narratives is the part of the report cache the handler needs.
type Narratives interface {
	GetOrGenerate(ctx context.Context, d scopepolicy.Decision, month period.Month) (reportcache.Report, error)
}

// Handler owns the narrative report endpoint.
//
// It follows the same pattern as other features: a thin struct wrapping
// its collaborators, constructed once at startup in bootstrap and passed
// into Routes().
type Handler struct {
	Resolver *scopepolicy.Resolver
	Reports  Narratives
	Log      *zap.Logger
	Now      func() time.Time
}

// NewHandler constructs a reports Handler.
func NewHandler(rv *scopepolicy.Resolver, reports Narratives, logger *zap.Logger) *Handler {
	return &Handler{
		Resolver: rv,
		Reports:  reports,
		Log:      logger,
		Now:      time.Now,
	}
}

// ServeNarrative handles GET /reports/narrative?employer_id=&month=.
//
// A cached narrative younger than the TTL is returned as is; otherwise one
// is generated, stored and returned with cached=false. The request does not
// own the generation: a client that disconnects leaves it to finish.
func (h *Handler) ServeNarrative(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	month, err := inputval.MonthOr("month", q.Get("month"), inputval.LastCompleteMonth(h.Now()))
	if err != nil {
		apierrors.WriteError(w, h.Log, err)
		return
	}
	d, err := h.Resolver.FromRequest(r, q.Get("employer_id"))
	if err != nil {
		apierrors.WriteError(w, h.Log, err)
		return
	}

	rep, err := h.Reports.GetOrGenerate(r.Context(), d, month)
	if err != nil {
		if r.Context().Err() != nil {
			h.Log.Info("narrative request abandoned by client",
				zap.String("scope", d.String()),
				zap.String("month", month.String()))
			return
		}
		apierrors.WriteError(w, h.Log, err)
		return
	}

	apierrors.WriteJSON(w, http.StatusOK, rep)
}
