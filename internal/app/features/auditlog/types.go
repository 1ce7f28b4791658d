// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/safetyhub/internal/app/policy/scopepolicy"
	"github.com/dalemusser/safetyhub/internal/app/store/audit"
)

// listItem is a single audit event in the response.
type listItem struct {
	ID            string            `json:"id"`
	Timestamp     time.Time         `json:"timestamp"`
	Category      string            `json:"category"`
	EventType     string            `json:"event_type"`
	EmployerID    string            `json:"employer_id,omitempty"`
	UserID        string            `json:"user_id,omitempty"`
	Role          string            `json:"role,omitempty"`
	IP            string            `json:"ip,omitempty"`
	Success       bool              `json:"success"`
	FailureReason string            `json:"failure_reason,omitempty"`
	Details       map[string]string `json:"details,omitempty"`
}

func toItem(e audit.Event) listItem {
	item := listItem{
		ID:            e.ID.Hex(),
		Timestamp:     e.Timestamp,
		Category:      e.Category,
		EventType:     e.EventType,
		Role:          e.Role,
		IP:            e.IP,
		Success:       e.Success,
		FailureReason: e.FailureReason,
		Details:       e.Details,
	}
	if e.EmployerID != nil {
		item.EmployerID = e.EmployerID.Hex()
	}
	if e.UserID != nil {
		item.UserID = e.UserID.Hex()
	}
	return item
}

// listResponse is the body of GET /audit.
type listResponse struct {
	Scope      scopepolicy.Decision `json:"scope"`
	Items      []listItem           `json:"items"`
	Page       int                  `json:"page"`
	TotalPages int                  `json:"total_pages"`
	Total      int64                `json:"total"`
}

// eventTypesForCategory returns the event types for a given category.
// If category is empty, returns all event types.
func eventTypesForCategory(category string) []string {
	authEvents := []string{
		audit.EventLogout,
	}

	scopeEvents := []string{
		audit.EventScopeOverridden,
		audit.EventScopeDenied,
		audit.EventContextSet,
		audit.EventContextCleared,
		audit.EventContextSetRefused,
	}

	reportEvents := []string{
		audit.EventReportGenerated,
	}

	switch category {
	case audit.CategoryAuth:
		return authEvents
	case audit.CategoryScope:
		return scopeEvents
	case audit.CategoryReport:
		return reportEvents
	case "":
		all := make([]string, 0, len(authEvents)+len(scopeEvents)+len(reportEvents))
		all = append(all, authEvents...)
		all = append(all, scopeEvents...)
		all = append(all, reportEvents...)
		return all
	default:
		return nil
	}
}

func knownEventType(category, eventType string) bool {
	for _, t := range eventTypesForCategory(category) {
		if t == eventType {
			return true
		}
	}
	return false
}
