package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/memorialnav/candle-ledger/internal/domain"
	"github.com/memorialnav/candle-ledger/internal/infra/database/models"
)

type CandleRepository struct {
	db *gorm.DB
}

func NewCandleRepository(db *gorm.DB) *CandleRepository {
	return &CandleRepository{db: db}
}

// TryLight inserts the candle, or overwrites the existing one only when it
// was lit at or before cutoff. It reports whether a row was written.
func (r *CandleRepository) TryLight(ctx context.Context, c domain.Candle, cutoff time.Time) (bool, error) {
	row := toCandleModel(c)

	result := conn(ctx, r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "grave_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"grave_type", "user_name", "user_avatar", "lit_at"}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Lte{Column: clause.Column{Table: "candles", Name: "lit_at"}, Value: normalizeTime(cutoff)},
		}},
	}).Create(&row)
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "CandleRepository.TryLight")
	}

	return result.RowsAffected > 0, nil
}

func (r *CandleRepository) Get(ctx context.Context, graveID, userID string) (domain.Candle, error) {
	var row models.Candle
	err := conn(ctx, r.db).
		Where("grave_id = ? AND user_id = ?", graveID, userID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Candle{}, domain.NotFoundError{Resource: "candle"}
		}
		return domain.Candle{}, errors.Wrap(err, "CandleRepository.Get")
	}
	return fromCandleModel(row), nil
}

func (r *CandleRepository) ListByGrave(ctx context.Context, graveID string) ([]domain.Candle, error) {
	var rows []models.Candle
	err := conn(ctx, r.db).
		Where("grave_id = ?", graveID).
		Order("lit_at DESC").
		Order("user_id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "CandleRepository.ListByGrave")
	}

	candles := make([]domain.Candle, 0, len(rows))
	for _, row := range rows {
		candles = append(candles, fromCandleModel(row))
	}
	return candles, nil
}

// normalizeTime keeps stored timestamps comparable on every driver.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func toCandleModel(c domain.Candle) models.Candle {
	return models.Candle{
		GraveID:    c.GraveID,
		UserID:     c.UserID,
		GraveType:  c.GraveType.String(),
		UserName:   c.UserName,
		UserAvatar: c.UserAvatar,
		LitAt:      normalizeTime(c.LitAt),
	}
}

func fromCandleModel(row models.Candle) domain.Candle {
	return domain.Candle{
		GraveID:    row.GraveID,
		GraveType:  domain.GraveType(row.GraveType),
		UserID:     row.UserID,
		UserName:   row.UserName,
		UserAvatar: row.UserAvatar,
		LitAt:      row.LitAt.UTC(),
	}
}
