package domain

import (
	"time"
)

// Candle is the latest lighting by one user on one grave.
type Candle struct {
	GraveID    string
	GraveType  GraveType
	UserID     string
	UserName   string
	UserAvatar *string
	LitAt      time.Time
}

// Lighting is an append-only record of a successful light.
type Lighting struct {
	ID        int64
	GraveID   string
	GraveType GraveType
	UserID    string
	LitAt     time.Time
}

type CooldownState string

const (
	CooldownStateNone     CooldownState = "none"
	CooldownStateCooldown CooldownState = "cooldown"
	CooldownStateEligible CooldownState = "eligible"
)

type CandleStatus struct {
	State      CooldownState
	LitAt      *time.Time
	RetryAfter time.Duration
}

// CandleState derives the cooldown state of a candle at now.
// A nil candle means the user never lit one on the grave.
func CandleState(c *Candle, now time.Time, cooldown time.Duration) CandleStatus {
	if c == nil {
		return CandleStatus{State: CooldownStateNone}
	}
	litAt := c.LitAt
	elapsed := now.Sub(litAt)
	if elapsed >= cooldown {
		return CandleStatus{State: CooldownStateEligible, LitAt: &litAt}
	}
	return CandleStatus{
		State:      CooldownStateCooldown,
		LitAt:      &litAt,
		RetryAfter: cooldown - elapsed,
	}
}

// Drift is a grave whose stored count is behind its ledger.
type Drift struct {
	GraveType GraveType
	GraveID   string
	Recorded  int64
	Ledger    int64
	Repaired  bool
}
