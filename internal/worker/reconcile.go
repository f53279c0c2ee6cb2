// Package worker runs periodic background jobs next to the HTTP server.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/memorialnav/candle-ledger/internal/domain"
)

type Reconciler interface {
	Run(ctx context.Context, repair bool) ([]domain.Drift, error)
}

type Config struct {
	Interval time.Duration
	Repair   bool
}

// ReconcileWorker audits candle counters against the ledger on a fixed interval.
type ReconcileWorker struct {
	uc  Reconciler
	cfg Config
	log zerolog.Logger
}

func NewReconcileWorker(uc Reconciler, cfg Config, log zerolog.Logger) *ReconcileWorker {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	return &ReconcileWorker{uc: uc, cfg: cfg, log: log.With().Str("component", "reconcile-worker").Logger()}
}

// Run starts the loop until ctx is canceled.
func (w *ReconcileWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.cfg.Interval).Bool("repair", w.cfg.Repair).Msg("reconcile worker starting")
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("reconcile worker stopping")
			return ctx.Err()
		case <-ticker.C:
			if err := w.runOnce(ctx); err != nil {
				w.log.Error().Err(err).Msg("reconcile runOnce")
			}
		}
	}
}

func (w *ReconcileWorker) runOnce(ctx context.Context) error {
	drifts, err := w.uc.Run(w.log.WithContext(ctx), w.cfg.Repair)
	if err != nil {
		return err
	}
	if len(drifts) > 0 {
		w.log.Warn().Int("drifts", len(drifts)).Msg("candle counters behind ledger")
	}
	return nil
}
