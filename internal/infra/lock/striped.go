// Package lock serializes work on one (grave, user) key.
package lock

import (
	"context"
	"sync"

	"github.com/zeebo/xxh3"
)

// Striped is an in-process lock table. Keys hash onto a fixed number of
// stripes, so unrelated keys may occasionally wait on each other.
type Striped struct {
	stripes []chan struct{}
}

func NewStriped(n int) *Striped {
	if n <= 0 {
		n = 1
	}
	stripes := make([]chan struct{}, n)
	for i := range stripes {
		stripes[i] = make(chan struct{}, 1)
	}
	return &Striped{stripes: stripes}
}

func (s *Striped) stripe(key string) chan struct{} {
	return s.stripes[xxh3.HashString(key)%uint64(len(s.stripes))]
}

// Lock blocks until key is held or ctx is done. The returned func releases
// the lock and is safe to call more than once.
func (s *Striped) Lock(ctx context.Context, key string) (func(), error) {
	ch := s.stripe(key)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-ch })
	}, nil
}
