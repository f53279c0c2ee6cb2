// Package cache keeps recent candle counts close to the request path.
// Every implementation is best-effort: failures read as misses.
package cache

import (
	"github.com/memorialnav/candle-ledger/internal/domain"
)

// Key is the cache key of a grave's candle count.
func Key(graveType domain.GraveType, graveID string) string {
	return "candle-count:" + graveType.String() + ":" + graveID
}
