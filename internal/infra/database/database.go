package database

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/memorialnav/candle-ledger/internal/config"
	"github.com/memorialnav/candle-ledger/internal/infra/database/models"
)

// Open connects to the configured driver and installs the tracing plugin.
func Open(ctx context.Context, conf config.Database, log zerolog.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch conf.Driver {
	case "postgres":
		db, err = NewPostgres(ctx, conf.PostgresDsn, log, conf.SlowThreshold, conf.ConnectTimeout)
	case "sqlite":
		db, err = NewSQLite(conf.SQLitePath, log, conf.SlowThreshold)
	default:
		return nil, errors.Errorf("unsupported database driver %q", conf.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, errors.Wrap(err, "install gorm tracing")
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.MigrateModels...)
}
