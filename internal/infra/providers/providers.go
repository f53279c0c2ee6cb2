package providers

import (
	"context"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/memorialnav/candle-ledger/internal/config"
	"github.com/memorialnav/candle-ledger/internal/domain"
	"github.com/memorialnav/candle-ledger/internal/infra/cache"
	"github.com/memorialnav/candle-ledger/internal/infra/database"
	"github.com/memorialnav/candle-ledger/internal/infra/lock"
	"github.com/memorialnav/candle-ledger/internal/infra/repository"
	"github.com/memorialnav/candle-ledger/internal/metrics"
	"github.com/memorialnav/candle-ledger/internal/service"
	"github.com/memorialnav/candle-ledger/internal/usecase"
)

// NewDatabase opens the configured database.
func NewDatabase(ctx context.Context, conf config.Database, log zerolog.Logger) (*gorm.DB, error) {
	return database.Open(ctx, conf, log)
}

// MigrateDatabase applies migrations for the application models.
func MigrateDatabase(db *gorm.DB) error {
	return database.Migrate(db)
}

// NewRedis returns nil when no redis address is configured.
func NewRedis(ctx context.Context, conf config.Redis) (*redis.Client, error) {
	if conf.Addr == "" {
		return nil, nil
	}
	rdb := database.NewRedis(conf.Addr, conf.Password, conf.DB)
	if err := database.PingRedis(ctx, rdb); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}

// NewLocker prefers the redis lock so several processes can share one database.
func NewLocker(conf config.Candle, rdb *redis.Client) usecase.Locker {
	if rdb != nil {
		return lock.NewRedis(rdb, conf.LockTTL)
	}
	return lock.NewStriped(conf.LockStripes)
}

// NewCountCache returns nil unless memcached is configured: only a cache
// shared by every process can follow counters that several processes bump.
func NewCountCache(conf config.Config) usecase.CountCache {
	if conf.Memcached.Addr == "" || conf.Candle.CountCacheTTL <= 0 {
		return nil
	}
	return cache.NewMemcached(database.NewMemcached(conf.Memcached.Addr), conf.Candle.CountCacheTTL)
}

// NewGraveDirectory registers a repository for every grave category.
func NewGraveDirectory(db *gorm.DB) (*usecase.GraveDirectory, map[domain.GraveType]*repository.GraveRepository, error) {
	repos, err := repository.NewGraveRepositories(db)
	if err != nil {
		return nil, nil, err
	}
	directory := usecase.NewGraveDirectory()
	for t, repo := range repos {
		directory.Register(t, repo)
	}
	return directory, repos, nil
}

// App holds every long-lived dependency of a command.
type App struct {
	Config    config.Config
	Log       zerolog.Logger
	DB        *gorm.DB
	Redis     *redis.Client
	Registry  *prometheus.Registry
	Graves    map[domain.GraveType]*repository.GraveRepository
	Ledger    *repository.LedgerRepository
	Candle    *usecase.CandleUsecase
	Reconcile *usecase.ReconcileUsecase
	Auth      *service.AuthService
	Health    *database.Health
}

// newGraveDirectory is swapped in tests.
var newGraveDirectory = NewGraveDirectory

// Build opens every dependency; on error whatever was already opened is closed.
func Build(ctx context.Context, conf config.Config, log zerolog.Logger) (_ *App, err error) {
	db, err := NewDatabase(ctx, conf.Database, log)
	if err != nil {
		return nil, errors.Wrap(err, "database")
	}
	defer func() {
		if err != nil {
			closeDB(db)
		}
	}()

	rdb, err := NewRedis(ctx, conf.Redis)
	if err != nil {
		return nil, errors.Wrap(err, "redis")
	}
	defer func() {
		if err != nil && rdb != nil {
			_ = rdb.Close()
		}
	}()

	directory, graves, err := newGraveDirectory(db)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	countCache := NewCountCache(conf)
	ledger := repository.NewLedgerRepository(db)

	candle := usecase.NewCandleUsecase(
		repository.NewCandleRepository(db),
		ledger,
		directory,
		repository.NewTransactor(db),
		usecase.WithCooldown(conf.Candle.Cooldown),
		usecase.WithLocker(NewLocker(conf.Candle, rdb)),
		usecase.WithCountCache(countCache),
		usecase.WithObserver(metrics.New(registry)),
	)

	return &App{
		Config:    conf,
		Log:       log,
		DB:        db,
		Redis:     rdb,
		Registry:  registry,
		Graves:    graves,
		Ledger:    ledger,
		Candle:    candle,
		Reconcile: usecase.NewReconcileUsecase(directory, ledger, countCache),
		Auth:      service.NewAuthService(conf.Auth),
		Health:    database.NewHealth(db, rdb),
	}, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (a *App) Close() error {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
