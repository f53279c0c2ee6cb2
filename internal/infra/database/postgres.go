package database

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewPostgres opens the DSN, retrying with exponential backoff until the
// server answers or connectTimeout passes. A zero timeout retries until ctx is done.
func NewPostgres(ctx context.Context, dsn string, log zerolog.Logger, slowThreshold, connectTimeout time.Duration) (*gorm.DB, error) {
	var db *gorm.DB

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = connectTimeout

	operation := func() error {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			TranslateError: true,
			Logger:         newGormLogger(log, slowThreshold),
		})
		if err != nil {
			return err
		}
		return pingOrClose(ctx, db)
	}

	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("retry_in", wait).Msg("postgres not ready")
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(bo, ctx), notify); err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}

	return db, nil
}

// pingOrClose closes the pool behind db when it does not answer, so a retry
// does not leak the previous attempt's connections.
func pingOrClose(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return backoff.Permanent(err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return err
	}
	return nil
}
