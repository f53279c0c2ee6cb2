package config

import (
	"context"
	"os"
	"time"

	"github.com/go-yaml/yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// EnvPrefix is the prefix of every environment override, e.g. CANDLE_SERVER_LISTEN.
const EnvPrefix = "CANDLE"

type Config struct {
	Server    Server    `yaml:"server" envconfig:"SERVER"`
	Database  Database  `yaml:"database" envconfig:"DATABASE"`
	Redis     Redis     `yaml:"redis" envconfig:"REDIS"`
	Memcached Memcached `yaml:"memcached" envconfig:"MEMCACHED"`
	Auth      Auth      `yaml:"auth" envconfig:"AUTH"`
	Candle    Candle    `yaml:"candle" envconfig:"CANDLE"`
	Trace     Trace     `yaml:"trace" envconfig:"TRACE"`
	Reconcile Reconcile `yaml:"reconcile" envconfig:"RECONCILE"`
}

type Server struct {
	Listen          string        `yaml:"listen" envconfig:"LISTEN"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" envconfig:"SHUTDOWN_TIMEOUT"`
	ServiceName     string        `yaml:"serviceName" envconfig:"SERVICE_NAME"`
}

type Database struct {
	Driver         string        `yaml:"driver" envconfig:"DRIVER"` // sqlite, postgres
	PostgresDsn    string        `yaml:"postgresDsn" envconfig:"POSTGRES_DSN"`
	SQLitePath     string        `yaml:"sqlitePath" envconfig:"SQLITE_PATH"`
	SlowThreshold  time.Duration `yaml:"slowThreshold" envconfig:"SLOW_THRESHOLD"`
	ConnectTimeout time.Duration `yaml:"connectTimeout" envconfig:"CONNECT_TIMEOUT"`
}

type Redis struct {
	Addr     string `yaml:"addr" envconfig:"ADDR"`
	Password string `yaml:"password" envconfig:"PASSWORD"`
	DB       int    `yaml:"db" envconfig:"DB"`
}

type Memcached struct {
	Addr string `yaml:"addr" envconfig:"ADDR"`
}

type Auth struct {
	Required  bool   `yaml:"required" envconfig:"REQUIRED"`
	JWTSecret string `yaml:"jwtSecret" envconfig:"JWT_SECRET"`
	Audience  string `yaml:"audience" envconfig:"AUDIENCE"`
}

type Candle struct {
	Cooldown      time.Duration `yaml:"cooldown" envconfig:"COOLDOWN"`
	LockTTL       time.Duration `yaml:"lockTTL" envconfig:"LOCK_TTL"`
	LockStripes   int           `yaml:"lockStripes" envconfig:"LOCK_STRIPES"`
	CountCacheTTL time.Duration `yaml:"countCacheTTL" envconfig:"COUNT_CACHE_TTL"`
}

type Trace struct {
	Enabled     bool    `yaml:"enabled" envconfig:"ENABLED"`
	Endpoint    string  `yaml:"endpoint" envconfig:"ENDPOINT"`
	SampleRatio float64 `yaml:"sampleRatio" envconfig:"SAMPLE_RATIO"`
}

type Reconcile struct {
	Interval time.Duration `yaml:"interval" envconfig:"INTERVAL"` // 0 disables the background worker
	Repair   bool          `yaml:"repair" envconfig:"REPAIR"`
}

func Default() Config {
	return Config{
		Server: Server{
			Listen:          ":8000",
			ShutdownTimeout: 10 * time.Second,
			ServiceName:     "candled",
		},
		Database: Database{
			Driver:         "sqlite",
			SQLitePath:     "candle.db",
			SlowThreshold:  300 * time.Millisecond,
			ConnectTimeout: 30 * time.Second,
		},
		Candle: Candle{
			Cooldown:      24 * time.Hour,
			LockTTL:       5 * time.Second,
			LockStripes:   256,
			CountCacheTTL: 30 * time.Second,
		},
		Trace: Trace{
			SampleRatio: 1,
		},
		Reconcile: Reconcile{
			Repair: true,
		},
	}
}

// Load reads the yaml file at path over the defaults and then applies
// CANDLE_* environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	config := Default()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return Config{}, errors.Wrap(err, "open config")
		}
		defer file.Close()

		err = yaml.NewDecoder(file).Decode(&config)
		if err != nil {
			return Config{}, errors.Wrapf(err, "decode config %s", path)
		}
	}

	if err := envconfig.Process(EnvPrefix, &config); err != nil {
		return Config{}, errors.Wrap(err, "environment overrides")
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLitePath == "" {
			return errors.New("database.sqlitePath is required for the sqlite driver")
		}
	case "postgres":
		if c.Database.PostgresDsn == "" {
			return errors.New("database.postgresDsn is required for the postgres driver")
		}
	default:
		return errors.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Server.Listen == "" {
		return errors.New("server.listen is required")
	}
	if c.Candle.Cooldown <= 0 {
		return errors.New("candle.cooldown must be positive")
	}
	if c.Candle.LockTTL <= 0 {
		return errors.New("candle.lockTTL must be positive")
	}
	if c.Candle.LockStripes <= 0 {
		return errors.New("candle.lockStripes must be positive")
	}
	if c.Candle.CountCacheTTL < 0 {
		return errors.New("candle.countCacheTTL must not be negative")
	}
	if c.Auth.Required && c.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret is required when auth.required is set")
	}
	if c.Trace.Enabled && c.Trace.Endpoint == "" {
		return errors.New("trace.endpoint is required when tracing is enabled")
	}
	if c.Trace.SampleRatio < 0 || c.Trace.SampleRatio > 1 {
		return errors.New("trace.sampleRatio must be within [0, 1]")
	}
	if c.Reconcile.Interval < 0 {
		return errors.New("reconcile.interval must not be negative")
	}
	return nil
}

type ctxKey struct{}

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, cfg)
}

// FromContext returns the config stored by WithContext, or nil.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(ctxKey{}).(*Config)
	return cfg
}
