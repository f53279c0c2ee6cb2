package database

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// InMemoryDSN is the shared-cache database used when no sqlite path is configured.
const InMemoryDSN = "file::memory:?cache=shared"

// NewSQLite opens path, or an in-memory database when path is empty.
func NewSQLite(path string, log zerolog.Logger, slowThreshold time.Duration) (*gorm.DB, error) {
	dsn := InMemoryDSN
	if path != "" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	}
	return openSQLite(dsn, log, slowThreshold)
}

func openSQLite(dsn string, log zerolog.Logger, slowThreshold time.Duration) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         newGormLogger(log, slowThreshold),
	})
	if err != nil {
		return nil, err
	}

	// sqlite allows a single writer; serialize on one connection.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}
