package usecase

import (
	"context"
	"time"

	"github.com/memorialnav/candle-ledger/internal/domain"
)

// CandleRepository stores the latest candle per (grave, user).
type CandleRepository interface {
	TryLight(ctx context.Context, c domain.Candle, cutoff time.Time) (bool, error)
	Get(ctx context.Context, graveID, userID string) (domain.Candle, error)
	ListByGrave(ctx context.Context, graveID string) ([]domain.Candle, error)
}

// LedgerRepository is the append-only history of accepted lightings.
type LedgerRepository interface {
	Append(ctx context.Context, l domain.Lighting) (int64, error)
	CountByGrave(ctx context.Context, graveType domain.GraveType) (map[string]int64, error)
}

// GraveRepository serves the graves of a single category.
type GraveRepository interface {
	FindByID(ctx context.Context, id string) (domain.Grave, error)
	IncrementCandleCount(ctx context.Context, id string) (int64, error)
	EachCount(ctx context.Context, fn func(id string, count int64) error) error
	RaiseCandleCount(ctx context.Context, id string, target int64) (bool, error)
}

// Transactor runs fn in one storage transaction; repositories called with
// the ctx passed to fn take part in it.
type Transactor interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker serializes lightings of one (grave, user) key. The returned release
// func must be idempotent: callers may invoke it more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// CountCache holds candle counts shared by every process writing to the
// same storage. Raise never lowers a cached value, so an entry is always at
// least the largest count some caller already saw committed.
type CountCache interface {
	Get(ctx context.Context, graveType domain.GraveType, graveID string) (int64, bool)
	Raise(ctx context.Context, graveType domain.GraveType, graveID string, count int64)
}

type Observer interface {
	ObserveLight(graveType, result string, elapsed time.Duration)
	ObserveCountCache(hit bool)
}

type nopLocker struct{}

func (nopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

type nopCache struct{}

func (nopCache) Get(context.Context, domain.GraveType, string) (int64, bool) { return 0, false }
func (nopCache) Raise(context.Context, domain.GraveType, string, int64)      {}

type nopObserver struct{}

func (nopObserver) ObserveLight(string, string, time.Duration) {}
func (nopObserver) ObserveCountCache(bool)                     {}
