package domain

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrInvalidCategory = errors.New("invalid grave type")
	ErrRateLimited     = errors.New("candle already lit within cooldown")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
)

// ValidationError names the offending field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// RateLimitedError carries the timing of the candle that blocked the light.
type RateLimitedError struct {
	LitAt      time.Time
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("candle already lit at %s, retry after %s", e.LitAt.UTC().Format(time.RFC3339), e.RetryAfter.Round(time.Second))
}

func (e RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

// ValidateIdentifier checks an id taken from a request body or path.
func ValidateIdentifier(field, value string) error {
	if value == "" {
		return ValidationError{Field: field, Reason: "required"}
	}
	if len(value) > MaxIdentifierLength {
		return ValidationError{Field: field, Reason: fmt.Sprintf("longer than %d bytes", MaxIdentifierLength)}
	}
	for _, r := range value {
		if r <= ' ' || r == 0x7f {
			return ValidationError{Field: field, Reason: "contains whitespace or control characters"}
		}
	}
	return nil
}
