// Package period models calendar months and inclusive month windows.
//
// Months travel as "YYYY-MM" strings on the wire and in MongoDB; the
// string form sorts in calendar order.
package period

import (
	"fmt"
	"time"

	"github.com/dalemusser/safetyhub/internal/app/system/apperr"
)

// MaxWindowMonths bounds every window a caller may request.
const MaxWindowMonths = 36

const layout = "2006-01"

// Month is a calendar month in UTC.
type Month struct {
	year  int
	month time.Month
}

// New returns the month for year/month. Out-of-range months normalize the
// same way time.Date does.
func New(year int, month time.Month) Month {
	t := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Month{year: t.Year(), month: t.Month()}
}

// Of returns the month containing t (evaluated in UTC).
func Of(t time.Time) Month {
	t = t.UTC()
	return Month{year: t.Year(), month: t.Month()}
}

// Parse parses a strict "YYYY-MM" string.
func Parse(s string) (Month, error) {
	if len(s) != len(layout) {
		return Month{}, fmt.Errorf("%w: month %q must be YYYY-MM", apperr.ErrInvalidInput, s)
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: month %q must be YYYY-MM", apperr.ErrInvalidInput, s)
	}
	if t.Year() < 1970 {
		return Month{}, fmt.Errorf("%w: month %q is out of range", apperr.ErrInvalidInput, s)
	}
	return Of(t), nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Month {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Month) Year() int { return m.year }

func (m Month) Month() time.Month { return m.month }

func (m Month) IsZero() bool { return m.year == 0 }

func (m Month) String() string { return m.Start().Format(layout) }

// AddMonths shifts by n months (negative n goes back).
func (m Month) AddMonths(n int) Month { return New(m.year, m.month+time.Month(n)) }

func (m Month) Next() Month { return m.AddMonths(1) }

func (m Month) Prev() Month { return m.AddMonths(-1) }

// Start is the first instant of the month.
func (m Month) Start() time.Time {
	return time.Date(m.year, m.month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the first instant of the following month (exclusive bound).
func (m Month) End() time.Time {
	return m.Next().Start()
}

// Compare returns -1, 0 or +1.
func (m Month) Compare(o Month) int {
	switch {
	case m.year < o.year:
		return -1
	case m.year > o.year:
		return 1
	case m.month < o.month:
		return -1
	case m.month > o.month:
		return 1
	}
	return 0
}

func (m Month) Before(o Month) bool { return m.Compare(o) < 0 }
func (m Month) After(o Month) bool  { return m.Compare(o) > 0 }

// MarshalText renders "YYYY-MM" (used by encoding/json).
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses "YYYY-MM".
func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Window is an inclusive range of months.
type Window struct {
	From Month
	To   Month
}

// NewWindow validates ordering and the MaxWindowMonths bound.
func NewWindow(from, to Month) (Window, error) {
	if from.IsZero() || to.IsZero() {
		return Window{}, fmt.Errorf("%w: window bounds are required", apperr.ErrInvalidInput)
	}
	if to.Before(from) {
		return Window{}, fmt.Errorf("%w: window %s..%s ends before it starts", apperr.ErrInvalidInput, from, to)
	}
	w := Window{From: from, To: to}
	if w.Len() > MaxWindowMonths {
		return Window{}, fmt.Errorf("%w: window of %d months exceeds %d", apperr.ErrInvalidInput, w.Len(), MaxWindowMonths)
	}
	return w, nil
}

// LastN is the window of n months ending at (and including) to.
func LastN(to Month, n int) (Window, error) {
	if n < 1 {
		return Window{}, fmt.Errorf("%w: window must cover at least one month", apperr.ErrInvalidInput)
	}
	return NewWindow(to.AddMonths(-(n - 1)), to)
}

// Single is the one-month window for m.
func Single(m Month) Window {
	return Window{From: m, To: m}
}

// Len is the number of months in the window.
func (w Window) Len() int {
	return (w.To.year-w.From.year)*12 + int(w.To.month-w.From.month) + 1
}

// Months lists the window's months in ascending order.
func (w Window) Months() []Month {
	n := w.Len()
	if n <= 0 {
		return nil
	}
	out := make([]Month, 0, n)
	for m := w.From; !m.After(w.To); m = m.Next() {
		out = append(out, m)
	}
	return out
}

// Contains reports whether m lies in the window.
func (w Window) Contains(m Month) bool {
	return !m.Before(w.From) && !m.After(w.To)
}

func (w Window) String() string {
	return w.From.String() + ".." + w.To.String()
}
