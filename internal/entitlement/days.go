package entitlement

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// DaysRemaining returns the whole days left until end, rounded up, so any
// part of a day counts as one. The result is zero or negative once end has
// passed. ok is false when end is nil.
func DaysRemaining(end *time.Time, now time.Time) (days int, ok bool) {
	if end == nil {
		return 0, false
	}
	return int(math.Ceil(float64(end.Sub(now)) / float64(day))), true
}

// ActiveWindowEnd returns the end of whichever of the trial or subscription
// window is still open at now, preferring the later one.
func ActiveWindowEnd(trialEnd, subscriptionEnd *time.Time, now time.Time) *time.Time {
	var best *time.Time
	for _, end := range []*time.Time{trialEnd, subscriptionEnd} {
		if end == nil || !now.Before(*end) {
			continue
		}
		if best == nil || end.After(*best) {
			best = end
		}
	}
	return best
}
