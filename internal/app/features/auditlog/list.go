// internal/app/features/auditlog/list.go
package auditlog

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	apierrors "github.com/dalemusser/safetyhub/internal/app/features/errors"
	"github.com/dalemusser/safetyhub/internal/app/store/audit"
	"github.com/dalemusser/safetyhub/internal/app/system/apperr"
	"github.com/dalemusser/safetyhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

const pageSize = 50

const dateLayout = "2006-01-02"

// ServeList handles GET /audit.
//
// Query: category, event_type, start_date and end_date (YYYY-MM-DD, end
// inclusive), page (1-based) and, for staff, employer_id.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	d, err := h.Resolver.FromRequest(r, q.Get("employer_id"))
	if err != nil {
		apierrors.WriteError(w, h.Log, err)
		return
	}
	filter, page, err := parseFilter(q.Get("category"), q.Get("event_type"), q.Get("start_date"), q.Get("end_date"), q.Get("page"))
	if err != nil {
		apierrors.WriteError(w, h.Log, err)
		return
	}
	if id, ok := d.EmployerID(); ok {
		filter.EmployerID = &id
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Read(), h.Log, "audit log list")
	defer cancel()

	events, err := h.Store.Query(ctx, filter)
	if err != nil {
		h.Log.Error("failed to query audit events", zap.Error(err))
		apierrors.WriteError(w, h.Log, err)
		return
	}
	total, err := h.Store.CountByFilter(ctx, filter)
	if err != nil {
		h.Log.Error("failed to count audit events", zap.Error(err))
		apierrors.WriteError(w, h.Log, err)
		return
	}

	items := make([]listItem, 0, len(events))
	for _, e := range events {
		items = append(items, toItem(e))
	}

	totalPages := int((total + pageSize - 1) / pageSize)
	if totalPages < 1 {
		totalPages = 1
	}

	apierrors.WriteJSON(w, http.StatusOK, listResponse{
		Scope:      d,
		Items:      items,
		Page:       page,
		TotalPages: totalPages,
		Total:      total,
	})
}

func parseFilter(category, eventType, startDate, endDate, pageStr string) (audit.QueryFilter, int, error) {
	category = strings.TrimSpace(category)
	eventType = strings.TrimSpace(eventType)

	if category != "" && eventTypesForCategory(category) == nil {
		return audit.QueryFilter{}, 0, invalid("category", "unknown category %q", category)
	}
	if eventType != "" && !knownEventType(category, eventType) {
		return audit.QueryFilter{}, 0, invalid("event_type", "unknown event type %q", eventType)
	}

	page := 1
	if s := strings.TrimSpace(pageStr); s != "" {
		p, err := strconv.Atoi(s)
		if err != nil || p < 1 {
			return audit.QueryFilter{}, 0, invalid("page", "must be a positive integer")
		}
		page = p
	}

	filter := audit.QueryFilter{
		Category:  category,
		EventType: eventType,
		Limit:     pageSize,
		Offset:    int64((page - 1) * pageSize),
	}

	if s := strings.TrimSpace(startDate); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return audit.QueryFilter{}, 0, invalid("start_date", "must be YYYY-MM-DD")
		}
		filter.StartTime = &t
	}
	if s := strings.TrimSpace(endDate); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return audit.QueryFilter{}, 0, invalid("end_date", "must be YYYY-MM-DD")
		}
		// End of day
		endOfDay := t.Add(24*time.Hour - time.Nanosecond)
		filter.EndTime = &endOfDay
	}
	if filter.StartTime != nil && filter.EndTime != nil && filter.EndTime.Before(*filter.StartTime) {
		return audit.QueryFilter{}, 0, invalid("end_date", "is before start_date")
	}

	return filter, page, nil
}

func invalid(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", apperr.ErrInvalidInput, field, fmt.Sprintf(format, args...))
}
