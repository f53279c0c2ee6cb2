package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/memorialnav/candle-ledger/internal/domain"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "candle-count:child:g-1", Key(domain.GraveTypeChild, "g-1"))
}

func TestExpirationClampsSubSecondTTL(t *testing.T) {
	assert.Equal(t, int32(1), NewMemcached(nil, 0).expiration())
	assert.Equal(t, int32(1), NewMemcached(nil, 500*time.Millisecond).expiration())
	assert.Equal(t, int32(30), NewMemcached(nil, 30*time.Second).expiration())
}

func newTestMemcached(t *testing.T) *Memcached {
	t.Helper()
	addr := os.Getenv("CANDLE_TEST_MEMCACHED_ADDR")
	if addr == "" {
		t.Skip("CANDLE_TEST_MEMCACHED_ADDR not set")
	}
	return NewMemcached(memcache.New(addr), time.Minute)
}

func TestMemcached(t *testing.T) {
	c := newTestMemcached(t)
	ctx := context.Background()

	id := uuid.NewString()
	_, ok := c.Get(ctx, domain.GraveTypeAdult, id)
	assert.False(t, ok)

	c.Raise(ctx, domain.GraveTypeAdult, id, 42)
	n, ok := c.Get(ctx, domain.GraveTypeAdult, id)
	assert.True(t, ok)
	assert.Equal(t, int64(42), n)

	_, ok = c.Get(ctx, domain.GraveTypeBone, id)
	assert.False(t, ok, "categories do not share entries")
}

func TestMemcachedRaiseNeverLowers(t *testing.T) {
	c := newTestMemcached(t)
	ctx := context.Background()
	id := uuid.NewString()

	c.Raise(ctx, domain.GraveTypeAdult, id, 5)
	c.Raise(ctx, domain.GraveTypeAdult, id, 3)
	n, ok := c.Get(ctx, domain.GraveTypeAdult, id)
	assert.True(t, ok)
	assert.Equal(t, int64(5), n)

	c.Raise(ctx, domain.GraveTypeAdult, id, 6)
	n, _ = c.Get(ctx, domain.GraveTypeAdult, id)
	assert.Equal(t, int64(6), n)
}

func TestMemcachedUnreachableIsMiss(t *testing.T) {
	ctx := context.Background()
	mc := memcache.New("127.0.0.1:1")
	mc.Timeout = 50 * time.Millisecond
	c := NewMemcached(mc, time.Minute)

	c.Raise(ctx, domain.GraveTypeAdult, "g1", 1)
	_, ok := c.Get(ctx, domain.GraveTypeAdult, "g1")
	assert.False(t, ok)
}
