package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/memorialnav/candle-ledger/internal/domain"
)

// memStore backs every fake repository. Transactions snapshot the whole
// state and restore it when fn fails.
type memStore struct {
	mu      sync.Mutex
	txMu    sync.Mutex
	candles map[string]domain.Candle
	graves  map[domain.GraveType]map[string]int64
	ledger  []domain.Lighting
}

func newMemStore() *memStore {
	s := &memStore{
		candles: map[string]domain.Candle{},
		graves:  map[domain.GraveType]map[string]int64{},
	}
	for _, t := range domain.GraveTypes {
		s.graves[t] = map[string]int64{}
	}
	return s
}

func (s *memStore) addGrave(t domain.GraveType, id string, count int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graves[t][id] = count
}

func (s *memStore) count(t domain.GraveType, id string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graves[t][id]
}

func (s *memStore) ledgerLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ledger)
}

func (s *memStore) directory() *GraveDirectory {
	d := NewGraveDirectory()
	for _, t := range domain.GraveTypes {
		d.Register(t, &memGraves{store: s, graveType: t})
	}
	return d
}

func (s *memStore) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	candles := make(map[string]domain.Candle, len(s.candles))
	for k, v := range s.candles {
		candles[k] = v
	}
	graves := make(map[domain.GraveType]map[string]int64, len(s.graves))
	for t, m := range s.graves {
		graves[t] = make(map[string]int64, len(m))
		for k, v := range m {
			graves[t][k] = v
		}
	}
	ledger := append([]domain.Lighting(nil), s.ledger...)
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.candles, s.graves, s.ledger = candles, graves, ledger
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *memStore) TryLight(ctx context.Context, c domain.Candle, cutoff time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := c.GraveID + "/" + c.UserID
	if existing, ok := s.candles[key]; ok && existing.LitAt.After(cutoff) {
		return false, nil
	}
	s.candles[key] = c
	return true, nil
}

func (s *memStore) Get(ctx context.Context, graveID, userID string) (domain.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candles[graveID+"/"+userID]
	if !ok {
		return domain.Candle{}, domain.NotFoundError{Resource: "candle"}
	}
	return c, nil
}

func (s *memStore) ListByGrave(ctx context.Context, graveID string) ([]domain.Candle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Candle
	for _, c := range s.candles {
		if c.GraveID == graveID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LitAt.Equal(out[j].LitAt) {
			return out[i].LitAt.After(out[j].LitAt)
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (s *memStore) Append(ctx context.Context, l domain.Lighting) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = int64(len(s.ledger) + 1)
	s.ledger = append(s.ledger, l)
	return l.ID, nil
}

func (s *memStore) CountByGrave(ctx context.Context, graveType domain.GraveType) (map[string]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]int64{}
	for _, l := range s.ledger {
		if l.GraveType == graveType {
			counts[l.GraveID]++
		}
	}
	return counts, nil
}

type memGraves struct {
	store     *memStore
	graveType domain.GraveType
	// afterFind runs once FindByID has read the count, outside the store lock.
	afterFind func()
}

func (g *memGraves) FindByID(ctx context.Context, id string) (domain.Grave, error) {
	g.store.mu.Lock()
	n, ok := g.store.graves[g.graveType][id]
	g.store.mu.Unlock()
	if !ok {
		return domain.Grave{}, domain.NotFoundError{Resource: "grave"}
	}
	if g.afterFind != nil {
		g.afterFind()
	}
	return domain.Grave{ID: id, Type: g.graveType, CandleCount: n}, nil
}

func (g *memGraves) IncrementCandleCount(ctx context.Context, id string) (int64, error) {
	g.store.mu.Lock()
	defer g.store.mu.Unlock()
	n, ok := g.store.graves[g.graveType][id]
	if !ok {
		return 0, domain.NotFoundError{Resource: "grave"}
	}
	n++
	g.store.graves[g.graveType][id] = n
	return n, nil
}

func (g *memGraves) EachCount(ctx context.Context, fn func(id string, count int64) error) error {
	g.store.mu.Lock()
	snapshot := make(map[string]int64, len(g.store.graves[g.graveType]))
	for k, v := range g.store.graves[g.graveType] {
		snapshot[k] = v
	}
	g.store.mu.Unlock()
	for id, n := range snapshot {
		if err := fn(id, n); err != nil {
			return err
		}
	}
	return nil
}

func (g *memGraves) RaiseCandleCount(ctx context.Context, id string, target int64) (bool, error) {
	g.store.mu.Lock()
	defer g.store.mu.Unlock()
	n, ok := g.store.graves[g.graveType][id]
	if !ok || n >= target {
		return false, nil
	}
	g.store.graves[g.graveType][id] = target
	return true, nil
}

type mockCache struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newMockCache() *mockCache {
	return &mockCache{counts: map[string]int64{}}
}

func (c *mockCache) Get(ctx context.Context, t domain.GraveType, id string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.counts[string(t)+":"+id]
	return n, ok
}

func (c *mockCache) Raise(ctx context.Context, t domain.GraveType, id string, n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := string(t) + ":" + id
	if cur, ok := c.counts[key]; ok && cur >= n {
		return
	}
	c.counts[key] = n
}

type mockObserver struct {
	mu      sync.Mutex
	results map[string]int
	hits    int
	misses  int
}

func (o *mockObserver) ObserveLight(graveType, result string, elapsed time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.results == nil {
		o.results = map[string]int{}
	}
	o.results[result]++
}

func (o *mockObserver) ObserveCountCache(hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
