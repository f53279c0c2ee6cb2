package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCandleState(t *testing.T) {
	litAt := time.Date(2024, 11, 1, 8, 0, 0, 0, time.UTC)
	c := &Candle{GraveID: "g1", GraveType: GraveTypeAdult, UserID: "u1", LitAt: litAt}

	if st := CandleState(nil, litAt, DefaultCooldown); st.State != CooldownStateNone || st.LitAt != nil {
		t.Fatalf("expected none, got %+v", st)
	}

	st := CandleState(c, litAt.Add(23*time.Hour), DefaultCooldown)
	if st.State != CooldownStateCooldown {
		t.Fatalf("expected cooldown, got %s", st.State)
	}
	if st.RetryAfter != time.Hour {
		t.Fatalf("expected 1h retry, got %s", st.RetryAfter)
	}

	st = CandleState(c, litAt.Add(24*time.Hour), DefaultCooldown)
	if st.State != CooldownStateEligible {
		t.Fatalf("expected eligible at the boundary, got %s", st.State)
	}
	if st.RetryAfter != 0 {
		t.Fatalf("expected no retry, got %s", st.RetryAfter)
	}
}

func TestParseGraveType(t *testing.T) {
	for _, in := range []string{"adult", "Child", " BONE "} {
		if _, err := ParseGraveType(in); err != nil {
			t.Fatalf("%q: unexpected error %v", in, err)
		}
	}
	if _, err := ParseGraveType("pet"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if _, err := ParseGraveType(""); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestValidateIdentifier(t *testing.T) {
	cases := []struct {
		value string
		ok    bool
	}{
		{"g-123", true},
		{"", false},
		{"has space", false},
		{"tab\tid", false},
		{strings.Repeat("a", MaxIdentifierLength), true},
		{strings.Repeat("a", MaxIdentifierLength+1), false},
	}
	for _, tc := range cases {
		err := ValidateIdentifier("graveId", tc.value)
		if tc.ok && err != nil {
			t.Fatalf("%q: unexpected error %v", tc.value, err)
		}
		if !tc.ok && !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("%q: expected ErrInvalidRequest, got %v", tc.value, err)
		}
	}
}

func TestRateLimitedErrorUnwrap(t *testing.T) {
	err := error(RateLimitedError{LitAt: time.Now(), RetryAfter: time.Minute})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited")
	}
	var rl RateLimitedError
	if !errors.As(err, &rl) || rl.RetryAfter != time.Minute {
		t.Fatalf("expected errors.As to recover retry, got %+v", rl)
	}
	if !errors.Is(NotFoundError{Resource: "grave"}, ErrNotFound) {
		t.Fatalf("expected NotFoundError to match ErrNotFound")
	}
}
