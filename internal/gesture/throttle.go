package gesture

import (
	"time"

	"golang.org/x/time/rate"
)

// Prediction intervals for the two recognition modes.
const (
	WordModeInterval   = 800 * time.Millisecond
	LetterModeInterval = 1500 * time.Millisecond
)

// Throttle limits how often frames are sent to the classifier, independent
// of the camera frame rate.
type Throttle struct {
	limiter *rate.Limiter
}

// NewThrottle allows one classification per interval. A non-positive interval
// disables throttling.
func NewThrottle(interval time.Duration) *Throttle {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttle{limiter: rate.NewLimiter(limit, 1)}
}

// Allow reports whether a classification may run at t, consuming the slot if so.
func (th *Throttle) Allow(t time.Time) bool {
	return th.limiter.AllowN(t, 1)
}
