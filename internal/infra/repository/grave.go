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

const eachCountBatchSize = 500

// GraveRepository serves one of the category tables.
type GraveRepository struct {
	db        *gorm.DB
	graveType domain.GraveType
	table     string
}

func NewGraveRepository(db *gorm.DB, graveType domain.GraveType) (*GraveRepository, error) {
	table, ok := models.GraveTable(graveType)
	if !ok {
		return nil, errors.Wrapf(domain.ErrInvalidCategory, "no table for %q", graveType)
	}
	return &GraveRepository{db: db, graveType: graveType, table: table}, nil
}

// NewGraveRepositories builds a repository for every known category.
func NewGraveRepositories(db *gorm.DB) (map[domain.GraveType]*GraveRepository, error) {
	repos := make(map[domain.GraveType]*GraveRepository, len(domain.GraveTypes))
	for _, t := range domain.GraveTypes {
		repo, err := NewGraveRepository(db, t)
		if err != nil {
			return nil, err
		}
		repos[t] = repo
	}
	return repos, nil
}

func (r *GraveRepository) Create(ctx context.Context, g domain.Grave) (domain.Grave, error) {
	row := models.Grave{
		ID:          g.ID,
		Name:        g.Name,
		CandleCount: g.CandleCount,
		CDate:       time.Now().UTC(),
	}
	err := conn(ctx, r.db).Table(r.table).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return domain.Grave{}, errors.Wrap(err, "GraveRepository.Create")
	}
	return r.FindByID(ctx, g.ID)
}

func (r *GraveRepository) FindByID(ctx context.Context, id string) (domain.Grave, error) {
	var row models.Grave
	err := conn(ctx, r.db).Table(r.table).Where("id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Grave{}, domain.NotFoundError{Resource: "grave"}
		}
		return domain.Grave{}, errors.Wrap(err, "GraveRepository.FindByID")
	}
	return r.toDomain(row), nil
}

// IncrementCandleCount adds one to the counter and returns the new value.
func (r *GraveRepository) IncrementCandleCount(ctx context.Context, id string) (int64, error) {
	db := conn(ctx, r.db)

	result := db.Table(r.table).
		Where("id = ?", id).
		UpdateColumn("candle_count", gorm.Expr("candle_count + ?", 1))
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "GraveRepository.IncrementCandleCount")
	}
	if result.RowsAffected == 0 {
		return 0, domain.NotFoundError{Resource: "grave"}
	}

	var count int64
	err := db.Table(r.table).Where("id = ?", id).Select("candle_count").Scan(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "GraveRepository.IncrementCandleCount")
	}
	return count, nil
}

// EachCount calls fn with every grave id and its counter, batched by primary key.
func (r *GraveRepository) EachCount(ctx context.Context, fn func(id string, count int64) error) error {
	var batch []models.Grave
	result := conn(ctx, r.db).Table(r.table).
		Select("id", "candle_count").
		FindInBatches(&batch, eachCountBatchSize, func(tx *gorm.DB, _ int) error {
			for _, row := range batch {
				if err := fn(row.ID, row.CandleCount); err != nil {
					return err
				}
			}
			return nil
		})
	if result.Error != nil {
		return errors.Wrap(result.Error, "GraveRepository.EachCount")
	}
	return nil
}

// RaiseCandleCount sets the counter to target only when it is currently lower.
func (r *GraveRepository) RaiseCandleCount(ctx context.Context, id string, target int64) (bool, error) {
	result := conn(ctx, r.db).Table(r.table).
		Where("id = ? AND candle_count < ?", id, target).
		UpdateColumn("candle_count", target)
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "GraveRepository.RaiseCandleCount")
	}
	return result.RowsAffected > 0, nil
}

func (r *GraveRepository) toDomain(row models.Grave) domain.Grave {
	return domain.Grave{
		ID:          row.ID,
		Type:        r.graveType,
		Name:        row.Name,
		CandleCount: row.CandleCount,
		CDate:       row.CDate,
	}
}
