// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/safetyhub/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config holds audit logging configuration.
// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off" (disabled)
type Config struct {
	// Scope covers scope overrides, denials and employer-context changes.
	Scope string
	// Report covers narrative generation.
	Report string
	// Auth covers sign-out.
	Auth string
}

// Logger provides convenience methods for logging audit events.
// It logs to both MongoDB (via audit.Store) and structured logs (via zap).
// A nil store downgrades "all" and "db" to zap only.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{
		store:  store,
		zapLog: zapLog,
		config: config,
	}
}

// getClientIP extracts the client IP from the request.
func getClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}

func userAgent(r *http.Request) string {
	if r == nil {
		return ""
	}
	return r.UserAgent()
}

// logToZap logs the event to zap with consistent structure.
func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.IP != "" {
		fields = append(fields, zap.String("ip", event.IP))
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.Role != "" {
		fields = append(fields, zap.String("role", event.Role))
	}
	if event.EmployerID != nil {
		fields = append(fields, zap.String("employer_id", event.EmployerID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an audit event based on configuration.
// If the logger is nil, this is a no-op (allows tests to use nil audit logger).
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	var setting string
	switch event.Category {
	case audit.CategoryScope:
		setting = l.config.Scope
	case audit.CategoryReport:
		setting = l.config.Report
	case audit.CategoryAuth:
		setting = l.config.Auth
	}
	if setting == "" {
		setting = "all"
	}
	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" || l.store == nil {
		l.logToZap(event)
	}

	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

// --- Scope Events ---

// ScopeOverridden logs a tenant-scoped caller whose requested or context
// employer was replaced by their assigned employer.
func (l *Logger) ScopeOverridden(ctx context.Context, r *http.Request, userID primitive.ObjectID, role string, assigned primitive.ObjectID, requested, selected primitive.ObjectID) {
	details := map[string]string{}
	if !requested.IsZero() {
		details["requested_employer_id"] = requested.Hex()
	}
	if !selected.IsZero() {
		details["context_employer_id"] = selected.Hex()
	}
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryScope,
		EventType:  audit.EventScopeOverridden,
		UserID:     &userID,
		Role:       role,
		EmployerID: &assigned,
		IP:         getClientIP(r),
		UserAgent:  userAgent(r),
		Success:    true,
		Details:    details,
	})
}

// ScopeDenied logs a request whose scope resolved to nothing.
func (l *Logger) ScopeDenied(ctx context.Context, r *http.Request, userID primitive.ObjectID, role, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryScope,
		EventType:     audit.EventScopeDenied,
		UserID:        &userID,
		Role:          role,
		IP:            getClientIP(r),
		UserAgent:     userAgent(r),
		Success:       false,
		FailureReason: reason,
	})
}

// ContextSet logs a staff member selecting an employer context.
func (l *Logger) ContextSet(ctx context.Context, r *http.Request, userID primitive.ObjectID, role string, employerID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryScope,
		EventType:  audit.EventContextSet,
		UserID:     &userID,
		Role:       role,
		EmployerID: &employerID,
		IP:         getClientIP(r),
		UserAgent:  userAgent(r),
		Success:    true,
	})
}

// ContextCleared logs a staff member returning to the all-employer view.
func (l *Logger) ContextCleared(ctx context.Context, r *http.Request, userID primitive.ObjectID, role string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryScope,
		EventType: audit.EventContextCleared,
		UserID:    &userID,
		Role:      role,
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
	})
}

// ContextSetRefused logs a non-staff caller attempting to set a context.
func (l *Logger) ContextSetRefused(ctx context.Context, r *http.Request, userID primitive.ObjectID, role string, employerID primitive.ObjectID) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryScope,
		EventType:     audit.EventContextSetRefused,
		UserID:        &userID,
		Role:          role,
		EmployerID:    &employerID,
		IP:            getClientIP(r),
		UserAgent:     userAgent(r),
		Success:       false,
		FailureReason: "role is not staff",
	})
}

// --- Report Events ---

// ReportGenerated logs a narrative written to the report cache.
func (l *Logger) ReportGenerated(ctx context.Context, employerID primitive.ObjectID, month, generator, requestID string) {
	l.Log(ctx, audit.Event{
		Category:   audit.CategoryReport,
		EventType:  audit.EventReportGenerated,
		EmployerID: &employerID,
		Success:    true,
		Details: map[string]string{
			"month":      month,
			"generator":  generator,
			"request_id": requestID,
		},
	})
}

// --- Auth Events ---

// Logout logs a user sign-out.
// Accepts string IDs from SessionUser and converts them to ObjectIDs.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userIDStr, role string) {
	var userID *primitive.ObjectID
	if oid, err := primitive.ObjectIDFromHex(userIDStr); err == nil {
		userID = &oid
	}
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    userID,
		Role:      role,
		IP:        getClientIP(r),
		UserAgent: userAgent(r),
		Success:   true,
	})
}
