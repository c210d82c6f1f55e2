// Package config loads and validates the daemon configuration.
// Values come from defaults, an optional TOML file, and MARKETD_*
// environment variables, in that order of precedence.
package config

import "time"

// Config is the complete marketd configuration.
type Config struct {
	// Server section: listen addresses and admin access.
	Server ServerConfig `toml:"server" mapstructure:"server"`

	// Storage section: the state checkpoint store.
	Storage StorageConfig `toml:"storage" mapstructure:"storage"`

	// History section: the sale and event archive.
	History HistoryConfig `toml:"history" mapstructure:"history"`

	// Market section: engine parameters and genesis funding.
	Market MarketConfig `toml:"market" mapstructure:"market"`

	// Log section: process logging.
	Log LogConfig `toml:"log" mapstructure:"log"`

	// Path of the config file the values were loaded from, empty when
	// running on defaults and environment only.
	configPath string
}

// Path returns the config file path this configuration was loaded
// from, or "" when no file was used.
func (c *Config) Path() string {
	return c.configPath
}

// ServerConfig is the [server] section.
type ServerConfig struct {
	// Addr is the main listen address. It serves JSON-RPC on / and
	// /rpc, the WebSocket endpoint on /ws, and a health check on
	// /health.
	Addr string `toml:"addr" mapstructure:"addr"`

	// WSAddr optionally serves the WebSocket endpoint on a dedicated
	// listener. Empty means WebSocket traffic shares Addr.
	WSAddr string `toml:"ws_addr" mapstructure:"ws_addr"`

	// AdminIPs lists client IPs granted the admin role. Requests from
	// any other address run as guest.
	AdminIPs []string `toml:"admin_ips" mapstructure:"admin_ips"`

	// ShutdownTimeout bounds the graceful drain of open requests when
	// the daemon stops.
	ShutdownTimeout time.Duration `toml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// StorageConfig is the [storage] section.
type StorageConfig struct {
	// Backend selects the key-value store: pebble, leveldb, or memory.
	Backend string `toml:"backend" mapstructure:"backend"`

	// Path is the data directory. Ignored by the memory backend.
	Path string `toml:"path" mapstructure:"path"`

	// CacheSize is the number of decoded entries kept in memory.
	CacheSize int `toml:"cache_size" mapstructure:"cache_size"`

	// Compressor names the record compressor: lz4 or none.
	Compressor string `toml:"compressor" mapstructure:"compressor"`

	// CompressionLevel tunes the compressor where it supports levels.
	CompressionLevel int `toml:"compression_level" mapstructure:"compression_level"`

	// SyncWrites forces every checkpoint write to disk before the
	// operation reports success.
	SyncWrites bool `toml:"sync_writes" mapstructure:"sync_writes"`
}

// HistoryConfig is the [history] section.
type HistoryConfig struct {
	// Enabled turns the archive on. When false the daemon runs without
	// sale history and market_sales reports notEnabled.
	Enabled bool `toml:"enabled" mapstructure:"enabled"`

	// Driver selects the database driver: sqlite or postgres.
	Driver string `toml:"driver" mapstructure:"driver"`

	// DSN is a file path for sqlite, a connection string for postgres.
	DSN string `toml:"dsn" mapstructure:"dsn"`

	// Connection pool settings.
	MaxOpenConns    int           `toml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`

	// QueryTimeout bounds every statement the archive runs.
	QueryTimeout time.Duration `toml:"query_timeout" mapstructure:"query_timeout"`
}

// MarketConfig is the [market] section.
type MarketConfig struct {
	// Operator is the address allowed to change the listing fee.
	// Empty runs the market without an operator; listing fees are then
	// destroyed instead of accrued.
	Operator string `toml:"operator" mapstructure:"operator"`

	// MaxPrice bounds listing prices. Zero selects the engine default.
	MaxPrice uint64 `toml:"max_price" mapstructure:"max_price"`

	// MaxFee bounds the configurable listing fee. Zero selects the
	// engine default.
	MaxFee uint64 `toml:"max_fee" mapstructure:"max_fee"`

	// InitialFee is the listing fee seeded at genesis.
	InitialFee uint64 `toml:"initial_fee" mapstructure:"initial_fee"`

	// Genesis funds accounts and mints tokens on first boot with an
	// empty store. Ignored when restoring persisted state.
	Genesis []GenesisAccount `toml:"genesis" mapstructure:"genesis"`
}

// GenesisAccount seeds one account at first boot.
type GenesisAccount struct {
	// Account is the address to seed.
	Account string `toml:"account" mapstructure:"account"`

	// Amount is the bank balance granted to the account.
	Amount uint64 `toml:"amount" mapstructure:"amount"`

	// Tokens is the number of fresh tokens minted to the account.
	Tokens int `toml:"tokens" mapstructure:"tokens"`
}

// LogConfig is the [log] section.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `toml:"level" mapstructure:"level"`

	// Format is console or json.
	Format string `toml:"format" mapstructure:"format"`
}
