// internal/app/features/errors/render.go
package errors

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/safetyhub/internal/app/system/apperr"
	"go.uber.org/zap"
)

// body is the JSON error envelope every endpoint returns.
type body struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err through apperr and writes the envelope.
// Server-side failures are logged; their detail is not sent to the client.
func WriteError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := apperr.Status(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		if log != nil {
			log.Error("request failed", zap.Int("status", status), zap.Error(err))
		}
		msg = http.StatusText(status)
	}
	WriteJSON(w, status, body{Error: msg, Code: apperr.Code(err)})
}

// RenderUnauthorized writes the "sign in required" envelope.
func RenderUnauthorized(w http.ResponseWriter) {
	WriteJSON(w, http.StatusUnauthorized, body{Error: "sign-in required", Code: "unauthenticated"})
}

// RenderForbidden writes an access error with msg.
func RenderForbidden(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "access denied"
	}
	WriteJSON(w, http.StatusForbidden, body{Error: msg, Code: "denied"})
}
