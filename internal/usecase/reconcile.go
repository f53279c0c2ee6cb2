package usecase

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/memorialnav/candle-ledger/internal/domain"
)

// ReconcileUsecase audits grave counters against the lighting ledger.
type ReconcileUsecase struct {
	graves *GraveDirectory
	ledger LedgerRepository
	cache  CountCache
}

func NewReconcileUsecase(graves *GraveDirectory, ledger LedgerRepository, cache CountCache) *ReconcileUsecase {
	if cache == nil {
		cache = nopCache{}
	}
	return &ReconcileUsecase{graves: graves, ledger: ledger, cache: cache}
}

// Run reports every grave whose counter is below its ledger count and, when
// repair is set, raises those counters. Counters are never lowered: counts
// recorded before the ledger existed may legitimately exceed it.
func (uc *ReconcileUsecase) Run(ctx context.Context, repair bool) ([]domain.Drift, error) {
	ctx, span := tracer.Start(ctx, "Reconcile.Usecase.Run")
	defer span.End()

	log := zerolog.Ctx(ctx)
	drifts := []domain.Drift{}

	for _, t := range uc.graves.Types() {
		graves, err := uc.graves.Lookup(t)
		if err != nil {
			return nil, err
		}

		ledgerCounts, err := uc.ledger.CountByGrave(ctx, t)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		if len(ledgerCounts) == 0 {
			continue
		}

		var found []domain.Drift
		err = graves.EachCount(ctx, func(id string, count int64) error {
			if n, ok := ledgerCounts[id]; ok && n > count {
				found = append(found, domain.Drift{GraveType: t, GraveID: id, Recorded: count, Ledger: n})
			}
			return nil
		})
		if err != nil {
			span.RecordError(err)
			return nil, err
		}

		for i := range found {
			d := &found[i]
			if repair {
				raised, err := graves.RaiseCandleCount(ctx, d.GraveID, d.Ledger)
				if err != nil {
					span.RecordError(err)
					return nil, err
				}
				d.Repaired = raised
				if raised {
					uc.cache.Raise(ctx, t, d.GraveID, d.Ledger)
				}
			}
			log.Warn().
				Str("grave_type", t.String()).
				Str("grave_id", d.GraveID).
				Int64("recorded", d.Recorded).
				Int64("ledger", d.Ledger).
				Bool("repaired", d.Repaired).
				Msg("candle count behind ledger")
		}
		drifts = append(drifts, found...)
	}

	return drifts, nil
}
