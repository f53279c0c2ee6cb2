package repository

import (
	"context"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/memorialnav/candle-ledger/internal/domain"
	"github.com/memorialnav/candle-ledger/internal/infra/database/models"
)

// LedgerRepository appends to and aggregates the candle_lightings table.
type LedgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) Append(ctx context.Context, l domain.Lighting) (int64, error) {
	row := models.CandleLighting{
		GraveID:   l.GraveID,
		GraveType: l.GraveType.String(),
		UserID:    l.UserID,
		LitAt:     normalizeTime(l.LitAt),
	}
	if err := conn(ctx, r.db).Create(&row).Error; err != nil {
		return 0, errors.Wrap(err, "LedgerRepository.Append")
	}
	return row.ID, nil
}

// CountByGrave returns the number of lightings per grave id of one category.
func (r *LedgerRepository) CountByGrave(ctx context.Context, graveType domain.GraveType) (map[string]int64, error) {
	type countRow struct {
		GraveID string
		N       int64
	}

	var rows []countRow
	err := conn(ctx, r.db).
		Model(&models.CandleLighting{}).
		Select("grave_id, COUNT(*) AS n").
		Where("grave_type = ?", graveType.String()).
		Group("grave_id").
		Scan(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "LedgerRepository.CountByGrave")
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.GraveID] = row.N
	}
	return counts, nil
}

func (r *LedgerRepository) ListByGrave(ctx context.Context, graveType domain.GraveType, graveID string) ([]domain.Lighting, error) {
	var rows []models.CandleLighting
	err := conn(ctx, r.db).
		Where("grave_type = ? AND grave_id = ?", graveType.String(), graveID).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "LedgerRepository.ListByGrave")
	}

	lightings := make([]domain.Lighting, 0, len(rows))
	for _, row := range rows {
		lightings = append(lightings, domain.Lighting{
			ID:        row.ID,
			GraveID:   row.GraveID,
			GraveType: domain.GraveType(row.GraveType),
			UserID:    row.UserID,
			LitAt:     row.LitAt.UTC(),
		})
	}
	return lightings, nil
}
