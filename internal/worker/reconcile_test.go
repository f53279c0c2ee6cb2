package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/memorialnav/candle-ledger/internal/domain"
)

type countingReconciler struct {
	runs   int32
	repair atomic.Bool
	err    error
}

func (r *countingReconciler) Run(ctx context.Context, repair bool) ([]domain.Drift, error) {
	atomic.AddInt32(&r.runs, 1)
	r.repair.Store(repair)
	return []domain.Drift{{GraveType: domain.GraveTypeAdult, GraveID: "g1", Recorded: 1, Ledger: 2}}, r.err
}

func TestReconcileWorkerRunsUntilCanceled(t *testing.T) {
	rec := &countingReconciler{}
	w := NewReconcileWorker(rec, Config{Interval: 5 * time.Millisecond, Repair: true}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&rec.runs) >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.True(t, rec.repair.Load())
}

func TestReconcileWorkerSurvivesErrors(t *testing.T) {
	rec := &countingReconciler{err: errors.New("db down")}
	w := NewReconcileWorker(rec, Config{Interval: 5 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&rec.runs) >= 3 }, time.Second, time.Millisecond)
}
