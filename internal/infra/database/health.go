package database

import (
	"context"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Health pings every backing store the service depends on.
type Health struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewHealth accepts a nil rdb when redis is not configured.
func NewHealth(db *gorm.DB, rdb *redis.Client) *Health {
	return &Health{db: db, rdb: rdb}
}

func (h *Health) Check(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return errors.Wrap(err, "database handle")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.Wrap(err, "database ping")
	}
	if h.rdb != nil {
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			return errors.Wrap(err, "redis ping")
		}
	}
	return nil
}
