package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/memorialnav/candle-ledger/internal/domain"
	"github.com/memorialnav/candle-ledger/internal/metrics"
)

var tracer = otel.Tracer("usecase")

// LightInput is a light request as received from a client.
type LightInput struct {
	GraveID    string
	GraveType  string
	UserID     string
	UserName   string
	UserAvatar *string
}

type LightResult struct {
	Candles     []domain.Candle
	CandleCount int64
}

type CandleOption func(*CandleUsecase)

func WithCooldown(d time.Duration) CandleOption {
	return func(uc *CandleUsecase) { uc.cooldown = d }
}

func WithClock(now func() time.Time) CandleOption {
	return func(uc *CandleUsecase) { uc.now = now }
}

func WithLocker(l Locker) CandleOption {
	return func(uc *CandleUsecase) { uc.locker = l }
}

// WithCountCache enables the shared count cache. A nil cache keeps Count
// reading straight from storage.
func WithCountCache(c CountCache) CandleOption {
	return func(uc *CandleUsecase) {
		if c != nil {
			uc.cache = c
		}
	}
}

func WithObserver(o Observer) CandleOption {
	return func(uc *CandleUsecase) { uc.observer = o }
}

type CandleUsecase struct {
	candles  CandleRepository
	ledger   LedgerRepository
	graves   *GraveDirectory
	tx       Transactor
	locker   Locker
	cache    CountCache
	observer Observer
	cooldown time.Duration
	now      func() time.Time
}

func NewCandleUsecase(
	candles CandleRepository,
	ledger LedgerRepository,
	graves *GraveDirectory,
	tx Transactor,
	opts ...CandleOption,
) *CandleUsecase {
	uc := &CandleUsecase{
		candles:  candles,
		ledger:   ledger,
		graves:   graves,
		tx:       tx,
		locker:   nopLocker{},
		cache:    nopCache{},
		observer: nopObserver{},
		cooldown: domain.DefaultCooldown,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *CandleUsecase) Cooldown() time.Duration {
	return uc.cooldown
}

// Light records a candle for the user on the grave and bumps the grave's
// counter, unless the user already lit one there within the cooldown.
func (uc *CandleUsecase) Light(ctx context.Context, in LightInput) (LightResult, error) {
	ctx, span := tracer.Start(ctx, "Candle.Usecase.Light")
	defer span.End()

	start := time.Now()
	result, err := uc.light(ctx, in)
	uc.observer.ObserveLight(graveTypeLabel(in.GraveType), lightResultLabel(err), time.Since(start))

	if err != nil {
		span.RecordError(err)
		return LightResult{}, err
	}
	span.SetAttributes(attribute.Int64("CandleCount", result.CandleCount))
	return result, nil
}

func (uc *CandleUsecase) light(ctx context.Context, in LightInput) (LightResult, error) {
	in = normalizeLightInput(in)

	if err := domain.ValidateIdentifier("graveId", in.GraveID); err != nil {
		return LightResult{}, err
	}
	if in.GraveType == "" {
		return LightResult{}, domain.ValidationError{Field: "graveType", Reason: "required"}
	}
	if err := domain.ValidateIdentifier("userId", in.UserID); err != nil {
		return LightResult{}, err
	}
	if in.UserName == "" {
		return LightResult{}, domain.ValidationError{Field: "userName", Reason: "required"}
	}

	graveType, graves, err := uc.graves.Resolve(in.GraveType)
	if err != nil {
		return LightResult{}, err
	}

	unlock, err := uc.locker.Lock(ctx, lockKey(in.GraveID, in.UserID))
	if err != nil {
		return LightResult{}, errors.Wrap(err, "acquire candle lock")
	}
	defer unlock()

	now := uc.now().UTC()
	candle := domain.Candle{
		GraveID:    in.GraveID,
		GraveType:  graveType,
		UserID:     in.UserID,
		UserName:   in.UserName,
		UserAvatar: in.UserAvatar,
		LitAt:      now,
	}

	var count int64
	err = uc.tx.Do(ctx, func(ctx context.Context) error {
		written, err := uc.candles.TryLight(ctx, candle, now.Add(-uc.cooldown))
		if err != nil {
			return err
		}
		if !written {
			existing, err := uc.candles.Get(ctx, in.GraveID, in.UserID)
			if err != nil {
				return err
			}
			status := domain.CandleState(&existing, now, uc.cooldown)
			return domain.RateLimitedError{LitAt: existing.LitAt, RetryAfter: status.RetryAfter}
		}

		count, err = graves.IncrementCandleCount(ctx, in.GraveID)
		if err != nil {
			return err
		}

		_, err = uc.ledger.Append(ctx, domain.Lighting{
			GraveID:   in.GraveID,
			GraveType: graveType,
			UserID:    in.UserID,
			LitAt:     now,
		})
		return err
	})
	if err != nil {
		return LightResult{}, err
	}
	unlock()

	uc.cache.Raise(ctx, graveType, in.GraveID, count)
	zerolog.Ctx(ctx).Info().
		Str("grave_id", in.GraveID).
		Str("grave_type", graveType.String()).
		Str("user_id", in.UserID).
		Int64("candle_count", count).
		Msg("candle lit")

	candles, err := uc.candles.ListByGrave(ctx, in.GraveID)
	if err != nil {
		return LightResult{}, err
	}

	return LightResult{Candles: candles, CandleCount: count}, nil
}

// ListByGrave returns every current candle of the grave, most recent first.
func (uc *CandleUsecase) ListByGrave(ctx context.Context, graveID string) ([]domain.Candle, error) {
	ctx, span := tracer.Start(ctx, "Candle.Usecase.ListByGrave")
	defer span.End()

	graveID = strings.TrimSpace(graveID)
	if err := domain.ValidateIdentifier("graveId", graveID); err != nil {
		return nil, err
	}

	candles, err := uc.candles.ListByGrave(ctx, graveID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if candles == nil {
		candles = []domain.Candle{}
	}
	return candles, nil
}

// Count returns the grave's counter. It never reports less than a count
// already returned by a committed Light.
func (uc *CandleUsecase) Count(ctx context.Context, graveType, graveID string) (int64, error) {
	ctx, span := tracer.Start(ctx, "Candle.Usecase.Count")
	defer span.End()

	t, graves, err := uc.graves.Resolve(graveType)
	if err != nil {
		return 0, err
	}
	graveID = strings.TrimSpace(graveID)
	if err := domain.ValidateIdentifier("graveId", graveID); err != nil {
		return 0, err
	}

	if n, ok := uc.cache.Get(ctx, t, graveID); ok {
		uc.observer.ObserveCountCache(true)
		return n, nil
	}
	uc.observer.ObserveCountCache(false)

	grave, err := graves.FindByID(ctx, graveID)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	// a concurrent Light may have cached a newer count meanwhile; Raise keeps it
	uc.cache.Raise(ctx, t, graveID, grave.CandleCount)
	return grave.CandleCount, nil
}

// Status reports whether the user may light a candle on the grave now.
func (uc *CandleUsecase) Status(ctx context.Context, graveType, graveID, userID string) (domain.CandleStatus, error) {
	ctx, span := tracer.Start(ctx, "Candle.Usecase.Status")
	defer span.End()

	if _, _, err := uc.graves.Resolve(graveType); err != nil {
		return domain.CandleStatus{}, err
	}
	graveID = strings.TrimSpace(graveID)
	userID = strings.TrimSpace(userID)
	if err := domain.ValidateIdentifier("graveId", graveID); err != nil {
		return domain.CandleStatus{}, err
	}
	if err := domain.ValidateIdentifier("userId", userID); err != nil {
		return domain.CandleStatus{}, err
	}

	now := uc.now().UTC()
	candle, err := uc.candles.Get(ctx, graveID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.CandleState(nil, now, uc.cooldown), nil
		}
		span.RecordError(err)
		return domain.CandleStatus{}, err
	}
	return domain.CandleState(&candle, now, uc.cooldown), nil
}

func lockKey(graveID, userID string) string {
	return graveID + "/" + userID
}

func normalizeLightInput(in LightInput) LightInput {
	in.GraveID = strings.TrimSpace(in.GraveID)
	in.GraveType = strings.TrimSpace(in.GraveType)
	in.UserID = strings.TrimSpace(in.UserID)
	in.UserName = strings.TrimSpace(in.UserName)
	if in.UserAvatar != nil {
		avatar := strings.TrimSpace(*in.UserAvatar)
		if avatar == "" {
			in.UserAvatar = nil
		} else {
			in.UserAvatar = &avatar
		}
	}
	return in
}

// graveTypeLabel bounds metric label cardinality to the known categories.
func graveTypeLabel(s string) string {
	t := domain.GraveType(strings.ToLower(strings.TrimSpace(s)))
	if t.Valid() {
		return t.String()
	}
	return "unknown"
}

func lightResultLabel(err error) string {
	switch {
	case err == nil:
		return metrics.ResultAccepted
	case errors.Is(err, domain.ErrRateLimited):
		return metrics.ResultRateLimited
	case errors.Is(err, domain.ErrNotFound):
		return metrics.ResultNotFound
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrInvalidCategory):
		return metrics.ResultInvalid
	}
	return metrics.ResultError
}
