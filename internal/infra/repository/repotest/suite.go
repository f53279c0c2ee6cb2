// Package repotest is a storage compliance suite shared by the sqlite and
// postgres repository tests.
package repotest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/memorialnav/candle-ledger/internal/domain"
	"github.com/memorialnav/candle-ledger/internal/infra/repository"
)

// Run exercises the repositories against a migrated, empty database returned by makeDB.
func Run(t *testing.T, makeDB func(t *testing.T) *gorm.DB) {
	t.Helper()

	t.Run("TryLightCooldown", func(t *testing.T) { testTryLightCooldown(t, makeDB(t)) })
	t.Run("ListByGraveOrder", func(t *testing.T) { testListByGraveOrder(t, makeDB(t)) })
	t.Run("IncrementCandleCount", func(t *testing.T) { testIncrement(t, makeDB(t)) })
	t.Run("TransactionRollback", func(t *testing.T) { testRollback(t, makeDB(t)) })
	t.Run("LedgerCounts", func(t *testing.T) { testLedger(t, makeDB(t)) })
	t.Run("RaiseCandleCount", func(t *testing.T) { testRaise(t, makeDB(t)) })
	t.Run("ConcurrentIncrement", func(t *testing.T) { testConcurrentIncrement(t, makeDB(t)) })
	t.Run("ConcurrentLightSamePair", func(t *testing.T) { testConcurrentLightSamePair(t, makeDB(t)) })
}

func newID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

func testTryLightCooldown(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	candles := repository.NewCandleRepository(db)

	t0 := time.Date(2024, 11, 1, 9, 0, 0, 0, time.UTC)
	c := domain.Candle{
		GraveID:   newID("g"),
		GraveType: domain.GraveTypeAdult,
		UserID:    newID("u"),
		UserName:  "Ana",
		LitAt:     t0,
	}

	ok, err := candles.TryLight(ctx, c, t0.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok, "first light inserts")

	c.LitAt = t0.Add(time.Hour)
	c.UserName = "Ana Changed"
	ok, err = candles.TryLight(ctx, c, c.LitAt.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.False(t, ok, "light inside the cooldown is a no-op")

	got, err := candles.Get(ctx, c.GraveID, c.UserID)
	require.NoError(t, err)
	assert.True(t, got.LitAt.Equal(t0))
	assert.Equal(t, "Ana", got.UserName)

	// exactly one window later is accepted
	avatar := "https://example.test/a.png"
	c.LitAt = t0.Add(24 * time.Hour)
	c.UserAvatar = &avatar
	ok, err = candles.TryLight(ctx, c, c.LitAt.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)

	got, err = candles.Get(ctx, c.GraveID, c.UserID)
	require.NoError(t, err)
	assert.True(t, got.LitAt.Equal(t0.Add(24*time.Hour)))
	assert.Equal(t, "Ana Changed", got.UserName)
	require.NotNil(t, got.UserAvatar)
	assert.Equal(t, avatar, *got.UserAvatar)

	_, err = candles.Get(ctx, c.GraveID, newID("nobody"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func testListByGraveOrder(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	candles := repository.NewCandleRepository(db)

	graveID := newID("g")
	t0 := time.Date(2024, 11, 1, 9, 0, 0, 0, time.UTC)
	for i, user := range []string{"u-a", "u-b", "u-c"} {
		_, err := candles.TryLight(ctx, domain.Candle{
			GraveID:   graveID,
			GraveType: domain.GraveTypeChild,
			UserID:    user,
			UserName:  user,
			LitAt:     t0.Add(time.Duration(i) * time.Hour),
		}, t0.Add(-24*time.Hour))
		require.NoError(t, err)
	}
	// another grave must not leak into the listing
	_, err := candles.TryLight(ctx, domain.Candle{
		GraveID: newID("g"), GraveType: domain.GraveTypeChild, UserID: "u-a", UserName: "u-a", LitAt: t0,
	}, t0.Add(-24*time.Hour))
	require.NoError(t, err)

	list, err := candles.ListByGrave(ctx, graveID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "u-c", list[0].UserID)
	assert.Equal(t, "u-b", list[1].UserID)
	assert.Equal(t, "u-a", list[2].UserID)

	empty, err := candles.ListByGrave(ctx, newID("g"))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Len(t, empty, 0)
}

func testIncrement(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	repos, err := repository.NewGraveRepositories(db)
	require.NoError(t, err)

	bone := repos[domain.GraveTypeBone]
	g, err := bone.Create(ctx, domain.Grave{ID: newID("g"), Name: "Ossuary 3", CandleCount: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(4), g.CandleCount)
	assert.Equal(t, domain.GraveTypeBone, g.Type)

	n, err := bone.IncrementCandleCount(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	// same id in another category table is a different grave
	_, err = repos[domain.GraveTypeAdult].IncrementCandleCount(ctx, g.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = bone.FindByID(ctx, newID("missing"))
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func testRollback(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	tx := repository.NewTransactor(db)
	candles := repository.NewCandleRepository(db)
	repos, err := repository.NewGraveRepositories(db)
	require.NoError(t, err)

	c := domain.Candle{
		GraveID:   newID("g"),
		GraveType: domain.GraveTypeAdult,
		UserID:    newID("u"),
		UserName:  "Ben",
		LitAt:     time.Now().UTC(),
	}

	err = tx.Do(ctx, func(ctx context.Context) error {
		ok, err := candles.TryLight(ctx, c, c.LitAt.Add(-24*time.Hour))
		if err != nil {
			return err
		}
		require.True(t, ok)
		_, err = repos[domain.GraveTypeAdult].IncrementCandleCount(ctx, c.GraveID)
		return err
	})
	require.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = candles.Get(ctx, c.GraveID, c.UserID)
	assert.True(t, errors.Is(err, domain.ErrNotFound), "candle write must roll back with the failed increment")
}

func testLedger(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	ledger := repository.NewLedgerRepository(db)

	g1, g2 := newID("g"), newID("g")
	now := time.Now().UTC()
	for _, l := range []domain.Lighting{
		{GraveID: g1, GraveType: domain.GraveTypeAdult, UserID: "u1", LitAt: now},
		{GraveID: g1, GraveType: domain.GraveTypeAdult, UserID: "u2", LitAt: now},
		{GraveID: g2, GraveType: domain.GraveTypeAdult, UserID: "u1", LitAt: now},
		{GraveID: g1, GraveType: domain.GraveTypeChild, UserID: "u1", LitAt: now},
	} {
		id, err := ledger.Append(ctx, l)
		require.NoError(t, err)
		assert.NotZero(t, id)
	}

	counts, err := ledger.CountByGrave(ctx, domain.GraveTypeAdult)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[g1])
	assert.Equal(t, int64(1), counts[g2])

	lightings, err := ledger.ListByGrave(ctx, domain.GraveTypeAdult, g1)
	require.NoError(t, err)
	require.Len(t, lightings, 2)
	assert.Equal(t, "u1", lightings[0].UserID)
}

func testRaise(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	repos, err := repository.NewGraveRepositories(db)
	require.NoError(t, err)
	adult := repos[domain.GraveTypeAdult]

	g, err := adult.Create(ctx, domain.Grave{ID: newID("g"), Name: "Row 7", CandleCount: 10})
	require.NoError(t, err)

	raised, err := adult.RaiseCandleCount(ctx, g.ID, 3)
	require.NoError(t, err)
	assert.False(t, raised, "never lowers")

	raised, err = adult.RaiseCandleCount(ctx, g.ID, 12)
	require.NoError(t, err)
	assert.True(t, raised)

	seen := map[string]int64{}
	err = adult.EachCount(ctx, func(id string, count int64) error {
		seen[id] = count
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), seen[g.ID])
}

func testConcurrentIncrement(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	repos, err := repository.NewGraveRepositories(db)
	require.NoError(t, err)
	child := repos[domain.GraveTypeChild]

	g, err := child.Create(ctx, domain.Grave{ID: newID("g"), Name: "Lamb"})
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := child.IncrementCandleCount(ctx, g.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := child.FindByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(workers), got.CandleCount)
}

// testConcurrentLightSamePair races full lightings of one (grave, user) with
// no lock around them: the conditional upsert alone must admit exactly one.
func testConcurrentLightSamePair(t *testing.T, db *gorm.DB) {
	ctx := context.Background()
	candles := repository.NewCandleRepository(db)
	ledger := repository.NewLedgerRepository(db)
	tx := repository.NewTransactor(db)
	repos, err := repository.NewGraveRepositories(db)
	require.NoError(t, err)
	adult := repos[domain.GraveTypeAdult]

	g, err := adult.Create(ctx, domain.Grave{ID: newID("g"), Name: "Row 3"})
	require.NoError(t, err)
	userID := newID("u")
	now := time.Now().UTC()

	const workers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
		failures []error
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			var written bool
			err := tx.Do(ctx, func(ctx context.Context) error {
				var err error
				written, err = candles.TryLight(ctx, domain.Candle{
					GraveID:   g.ID,
					GraveType: domain.GraveTypeAdult,
					UserID:    userID,
					UserName:  "Ana",
					LitAt:     now,
				}, now.Add(-24*time.Hour))
				if err != nil || !written {
					return err
				}
				if _, err := adult.IncrementCandleCount(ctx, g.ID); err != nil {
					return err
				}
				_, err = ledger.Append(ctx, domain.Lighting{GraveID: g.ID, GraveType: domain.GraveTypeAdult, UserID: userID, LitAt: now})
				return err
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				failures = append(failures, err)
			case written:
				accepted++
			}
		}()
	}
	close(start)
	wg.Wait()

	require.Empty(t, failures)
	assert.Equal(t, 1, accepted)

	got, err := adult.FindByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.CandleCount)

	counts, err := ledger.CountByGrave(ctx, domain.GraveTypeAdult)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[g.ID])
}
