package candle

import (
	"time"
)

// RemainingCooldown returns how long until a candle lit at litAt may be lit again.
func RemainingCooldown(litAt, now time.Time, window time.Duration) time.Duration {
	remaining := litAt.Add(window).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RetryAfterSeconds rounds up so a client never retries early.
func RetryAfterSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}
