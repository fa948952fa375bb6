package eventstore

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 5 * time.Minute
)

// Cfg represents event store configuration
type Cfg struct {
	PostgresDSN string `env:"EVENTSTORE_POSTGRES_DSN"`
	SQLitePath  string `env:"EVENTSTORE_SQLITE_PATH"`

	MaxOpenConns    int           `env:"EVENTSTORE_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"EVENTSTORE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"EVENTSTORE_CONN_MAX_LIFETIME" envDefault:"5m"`

	logger *slog.Logger
}

// LoadCfg reads the event store configuration from the environment
func LoadCfg() (Cfg, error) {
	var cfg Cfg

	if err := env.Parse(&cfg); err != nil {
		return Cfg{}, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

// Option represents event store configuration option
type Option func(Cfg) Cfg

// WithCfg replaces the configured endpoint and pool settings with cfg,
// typically obtained from LoadCfg
func WithCfg(c Cfg) Option {
	return func(cfg Cfg) Cfg {
		c.logger = cfg.logger

		return c
	}
}

// WithPostgresDB is an event store option that can be used to configure
// the eventstore to use postgres as a backing storage (pgx driver)
func WithPostgresDB(dsn string) Option {
	return func(cfg Cfg) Cfg {
		cfg.PostgresDSN = dsn

		return cfg
	}
}

// WithSQLiteDB is an event store option that can be used to configure
// the eventstore to use sqlite as a backing storage
func WithSQLiteDB(path string) Option {
	return func(cfg Cfg) Cfg {
		cfg.SQLitePath = path

		return cfg
	}
}

// WithPool configures the underlying connection pool
func WithPool(maxOpen, maxIdle int, lifetime time.Duration) Option {
	return func(cfg Cfg) Cfg {
		cfg.MaxOpenConns = maxOpen
		cfg.MaxIdleConns = maxIdle
		cfg.ConnMaxLifetime = lifetime

		return cfg
	}
}

// WithLogger sets the logger used for debug output
func WithLogger(l *slog.Logger) Option {
	return func(cfg Cfg) Cfg {
		cfg.logger = l

		return cfg
	}
}

func (cfg Cfg) validate() error {
	if cfg.PostgresDSN == "" && cfg.SQLitePath == "" {
		return fmt.Errorf("%w: either postgres dsn or sqlite path must be provided", ErrConfiguration)
	}

	if cfg.PostgresDSN != "" && cfg.SQLitePath != "" {
		return fmt.Errorf("%w: postgres dsn and sqlite path are mutually exclusive", ErrConfiguration)
	}

	return nil
}

func (cfg Cfg) withDefaults() Cfg {
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = defaultMaxOpenConns
	}

	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}

	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = defaultConnMaxLifetime
	}

	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	return cfg
}
