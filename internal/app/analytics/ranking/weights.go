package ranking

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dalemusser/safetyhub/internal/app/analytics/rates"
	"github.com/dalemusser/safetyhub/internal/domain/models"
)

// Weights turns incident counts into a severity score.
type Weights struct {
	LTI   int
	MTI   int
	FAI   int
	Other int
	// DaysLost is added per lost day.
	DaysLost int
}

// DefaultWeights is LTI=10, MTI=3, FAI=1, other=0, plus one per day lost.
func DefaultWeights() Weights {
	return Weights{LTI: 10, MTI: 3, FAI: 1, Other: 0, DaysLost: 1}
}

// ParseWeights reads "LTI=10,MTI=3,FAI=1,other=0,days_lost=1". Keys are
// case-insensitive; omitted keys keep their default.
func ParseWeights(s string) (Weights, error) {
	w := DefaultWeights()
	s = strings.TrimSpace(s)
	if s == "" {
		return w, nil
	}
	for _, part := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			return Weights{}, fmt.Errorf("severity weight %q: expected key=value", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			return Weights{}, fmt.Errorf("severity weight %q: value must be a non-negative integer", part)
		}
		switch strings.ToLower(strings.TrimSpace(k)) {
		case strings.ToLower(models.CategoryLTI):
			w.LTI = n
		case strings.ToLower(models.CategoryMTI):
			w.MTI = n
		case strings.ToLower(models.CategoryFAI):
			w.FAI = n
		case models.CategoryOther:
			w.Other = n
		case "days_lost":
			w.DaysLost = n
		default:
			return Weights{}, fmt.Errorf("severity weight %q: unknown key", part)
		}
	}
	return w, nil
}

// Score is the weighted incident sum plus weighted days lost.
func (w Weights) Score(c rates.Counts) int {
	return c.LTI*w.LTI + c.MTI*w.MTI + c.FAI*w.FAI + c.Other*w.Other + c.DaysLost*w.DaysLost
}

func (w Weights) String() string {
	return fmt.Sprintf("LTI=%d,MTI=%d,FAI=%d,other=%d,days_lost=%d", w.LTI, w.MTI, w.FAI, w.Other, w.DaysLost)
}
