package repository_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/memorialnav/candle-ledger/internal/infra/database"
	"github.com/memorialnav/candle-ledger/internal/infra/repository/repotest"
)

func TestSQLiteCompliance(t *testing.T) {
	repotest.Run(t, func(t *testing.T) *gorm.DB {
		db, err := database.NewSQLite(filepath.Join(t.TempDir(), "candle.db"), zerolog.Nop(), 0)
		require.NoError(t, err)
		require.NoError(t, database.Migrate(db))
		t.Cleanup(func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		})
		return db
	})
}

func TestPostgresCompliance(t *testing.T) {
	dsn := os.Getenv("CANDLE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("CANDLE_TEST_POSTGRES_DSN not set")
	}

	db, err := database.NewPostgres(context.Background(), dsn, zerolog.Nop(), 0, 10*time.Second)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	repotest.Run(t, func(t *testing.T) *gorm.DB { return db })
}
