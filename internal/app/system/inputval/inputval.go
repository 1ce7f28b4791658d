// Package inputval parses query parameters into domain values. Every
// failure wraps apperr.ErrInvalidInput.
package inputval

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/system/apperr"
	"github.com/dalemusser/safetyhub/internal/app/system/period"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultSeriesMonths is the window length when a request names none.
const DefaultSeriesMonths = 12

func invalid(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", apperr.ErrInvalidInput, field, fmt.Sprintf(format, args...))
}

// ObjectID parses a required 24-character hex id.
func ObjectID(field, raw string) (primitive.ObjectID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return primitive.NilObjectID, invalid(field, "is required")
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil || id.IsZero() {
		return primitive.NilObjectID, invalid(field, "must be a 24-character hex id")
	}
	return id, nil
}

// OptionalObjectID is ObjectID that maps an empty value to NilObjectID.
func OptionalObjectID(field, raw string) (primitive.ObjectID, error) {
	if strings.TrimSpace(raw) == "" {
		return primitive.NilObjectID, nil
	}
	return ObjectID(field, raw)
}

// Month parses a required YYYY-MM value.
func Month(field, raw string) (period.Month, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return period.Month{}, invalid(field, "is required")
	}
	m, err := period.Parse(raw)
	if err != nil {
		return period.Month{}, invalid(field, "must be YYYY-MM")
	}
	return m, nil
}

// MonthOr parses raw, returning def when raw is empty.
func MonthOr(field, raw string, def period.Month) (period.Month, error) {
	if strings.TrimSpace(raw) == "" {
		return def, nil
	}
	return Month(field, raw)
}

// LastCompleteMonth is the month before the one containing now.
func LastCompleteMonth(now time.Time) period.Month {
	return period.Of(now.UTC()).Prev()
}

// Window reads from/to/months from q. to defaults to the last complete
// month; from and months are mutually exclusive; with neither the window
// is the trailing DefaultSeriesMonths.
func Window(q url.Values, now time.Time) (period.Window, error) {
	to, err := MonthOr("to", q.Get("to"), LastCompleteMonth(now))
	if err != nil {
		return period.Window{}, err
	}
	fromRaw := strings.TrimSpace(q.Get("from"))
	monthsRaw := strings.TrimSpace(q.Get("months"))

	switch {
	case fromRaw != "" && monthsRaw != "":
		return period.Window{}, invalid("months", "cannot be combined with from")
	case fromRaw != "":
		from, err := Month("from", fromRaw)
		if err != nil {
			return period.Window{}, err
		}
		return period.NewWindow(from, to)
	case monthsRaw != "":
		n, err := strconv.Atoi(monthsRaw)
		if err != nil || n < 1 || n > period.MaxWindowMonths {
			return period.Window{}, invalid("months", "must be between 1 and %d", period.MaxWindowMonths)
		}
		return period.LastN(to, n)
	default:
		return period.LastN(to, DefaultSeriesMonths)
	}
}
