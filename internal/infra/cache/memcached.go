package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/rs/zerolog"

	"github.com/memorialnav/candle-ledger/internal/domain"
)

const maxRaiseAttempts = 10

// Memcached shares counts between every process of the service.
type Memcached struct {
	mc  *memcache.Client
	ttl time.Duration
}

func NewMemcached(mc *memcache.Client, ttl time.Duration) *Memcached {
	return &Memcached{mc: mc, ttl: ttl}
}

func (m *Memcached) Get(ctx context.Context, graveType domain.GraveType, graveID string) (int64, bool) {
	item, err := m.mc.Get(Key(graveType, graveID))
	if err != nil {
		if err != memcache.ErrCacheMiss {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("memcached get failed")
		}
		return 0, false
	}
	n, err := strconv.ParseInt(string(item.Value), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Raise stores count unless the entry already holds a value at least as
// large. When the entry cannot be raised it is dropped so readers fall back
// to storage instead of a stale count.
func (m *Memcached) Raise(ctx context.Context, graveType domain.GraveType, graveID string, count int64) {
	key := Key(graveType, graveID)
	value := []byte(strconv.FormatInt(count, 10))

	for attempt := 0; attempt < maxRaiseAttempts; attempt++ {
		item, err := m.mc.Get(key)
		if err == memcache.ErrCacheMiss {
			err = m.mc.Add(&memcache.Item{Key: key, Value: value, Expiration: m.expiration()})
			if err == memcache.ErrNotStored {
				continue
			}
			if err != nil {
				m.drop(ctx, key, err)
			}
			return
		}
		if err != nil {
			m.drop(ctx, key, err)
			return
		}

		if current, perr := strconv.ParseInt(string(item.Value), 10, 64); perr == nil && current >= count {
			return
		}
		item.Value = value
		item.Expiration = m.expiration()
		err = m.mc.CompareAndSwap(item)
		if err == memcache.ErrCASConflict || err == memcache.ErrNotStored {
			continue
		}
		if err != nil {
			m.drop(ctx, key, err)
		}
		return
	}

	m.drop(ctx, key, memcache.ErrCASConflict)
}

func (m *Memcached) drop(ctx context.Context, key string, cause error) {
	zerolog.Ctx(ctx).Warn().Err(cause).Str("key", key).Msg("memcached raise failed")
	if err := m.mc.Delete(key); err != nil && err != memcache.ErrCacheMiss {
		zerolog.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("memcached delete failed")
	}
}

// expiration is in whole seconds; memcached reads 0 as "never expire".
func (m *Memcached) expiration() int32 {
	secs := int32(m.ttl / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
