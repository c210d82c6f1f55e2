package history

import (
	"errors"
	"fmt"
	"time"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains archive database settings.
type Config struct {
	// Driver selects the database driver: "sqlite" or "postgres".
	Driver string `json:"driver" yaml:"driver"`

	// DSN is the data source name: a file path for sqlite, a
	// connection string for postgres.
	DSN string `json:"dsn" yaml:"dsn"`

	// Connection pool settings
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"`

	// QueryTimeout bounds every statement the store runs.
	QueryTimeout time.Duration `json:"query_timeout" yaml:"query_timeout"`
}

// DefaultConfig returns a configuration with sensible defaults: an
// embedded sqlite archive next to the state directory.
func DefaultConfig() *Config {
	return &Config{
		Driver:          DriverSQLite,
		DSN:             "./data/history.db",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		QueryTimeout:    30 * time.Second,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSQLite, DriverPostgres:
	case "":
		return errors.New("driver must be specified")
	default:
		return fmt.Errorf("unsupported driver: %s", c.Driver)
	}

	if c.DSN == "" {
		return errors.New("dsn must be specified")
	}

	if c.MaxOpenConns < 1 {
		return errors.New("max_open_conns must be at least 1")
	}

	if c.MaxIdleConns < 0 {
		return errors.New("max_idle_conns must be non-negative")
	}

	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot exceed max_open_conns")
	}

	if c.QueryTimeout <= 0 {
		return errors.New("query_timeout must be positive")
	}

	return nil
}
