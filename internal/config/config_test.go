package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goMarketd/internal/crypto"
)

func testAddr(b byte) string {
	return crypto.EncodeAddress([20]byte{b}).String()
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "marketd.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	// Run from a temp dir so a stray marketd.toml cannot leak in.
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer os.Chdir(orig)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7413", cfg.Server.Addr)
	assert.Equal(t, "", cfg.Server.WSAddr)
	assert.Equal(t, []string{"127.0.0.1"}, cfg.Server.AdminIPs)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, "pebble", cfg.Storage.Backend)
	assert.Equal(t, "./data/state", cfg.Storage.Path)
	assert.Equal(t, 2000, cfg.Storage.CacheSize)
	assert.Equal(t, "lz4", cfg.Storage.Compressor)

	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "sqlite", cfg.History.Driver)
	assert.Equal(t, "./data/history.db", cfg.History.DSN)
	assert.Equal(t, time.Hour, cfg.History.ConnMaxLifetime)
	assert.Equal(t, 30*time.Second, cfg.History.QueryTimeout)

	assert.Equal(t, "", cfg.Market.Operator)
	assert.Empty(t, cfg.Market.Genesis)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "", cfg.Path())
}

func TestLoadFile(t *testing.T) {
	operator := testAddr(0x0F)
	alice := testAddr(0xA1)

	path := writeConfig(t, `
[server]
addr = "127.0.0.1:9413"
ws_addr = "127.0.0.1:9414"
admin_ips = ["127.0.0.1", "10.1.2.3"]
shutdown_timeout = "2s"

[storage]
backend = "memory"
cache_size = 50
compressor = "none"

[history]
enabled = false

[market]
operator = "`+operator+`"
max_price = 1000000
max_fee = 500
initial_fee = 25

[[market.genesis]]
account = "`+alice+`"
amount = 10000
tokens = 3

[log]
level = "debug"
format = "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9413", cfg.Server.Addr)
	assert.Equal(t, "127.0.0.1:9414", cfg.Server.WSAddr)
	assert.Equal(t, []string{"127.0.0.1", "10.1.2.3"}, cfg.Server.AdminIPs)
	assert.Equal(t, 2*time.Second, cfg.Server.ShutdownTimeout)

	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 50, cfg.Storage.CacheSize)
	assert.Equal(t, "none", cfg.Storage.Compressor)

	assert.False(t, cfg.History.Enabled)

	assert.Equal(t, operator, cfg.Market.Operator)
	assert.Equal(t, uint64(1000000), cfg.Market.MaxPrice)
	assert.Equal(t, uint64(500), cfg.Market.MaxFee)
	assert.Equal(t, uint64(25), cfg.Market.InitialFee)
	require.Len(t, cfg.Market.Genesis, 1)
	assert.Equal(t, alice, cfg.Market.Genesis[0].Account)
	assert.Equal(t, uint64(10000), cfg.Market.Genesis[0].Amount)
	assert.Equal(t, 3, cfg.Market.Genesis[0].Tokens)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, path, cfg.Path())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MARKETD_SERVER_ADDR", "127.0.0.1:7777")
	t.Setenv("MARKETD_STORAGE_BACKEND", "leveldb")
	t.Setenv("MARKETD_LOG_LEVEL", "warn")

	path := writeConfig(t, `
[server]
addr = ":7413"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// Environment wins over the file and over defaults.
	assert.Equal(t, "127.0.0.1:7777", cfg.Server.Addr)
	assert.Equal(t, "leveldb", cfg.Storage.Backend)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(writeConfig(t, ""))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty addr",
			mutate:  func(c *Config) { c.Server.Addr = "" },
			wantErr: "addr must be set",
		},
		{
			name:    "addr without port",
			mutate:  func(c *Config) { c.Server.Addr = "localhost" },
			wantErr: "listen address",
		},
		{
			name:    "ws addr equals addr",
			mutate:  func(c *Config) { c.Server.WSAddr = c.Server.Addr },
			wantErr: "must differ",
		},
		{
			name:    "bad admin ip",
			mutate:  func(c *Config) { c.Server.AdminIPs = []string{"office"} },
			wantErr: "not an IP address",
		},
		{
			name:    "unknown backend",
			mutate:  func(c *Config) { c.Storage.Backend = "redis" },
			wantErr: "unknown backend",
		},
		{
			name: "disk backend without path",
			mutate: func(c *Config) {
				c.Storage.Backend = "leveldb"
				c.Storage.Path = ""
			},
			wantErr: "path must be set",
		},
		{
			name:    "unknown compressor",
			mutate:  func(c *Config) { c.Storage.Compressor = "zstd" },
			wantErr: "unknown compressor",
		},
		{
			name: "history without dsn",
			mutate: func(c *Config) {
				c.History.Enabled = true
				c.History.DSN = ""
			},
			wantErr: "dsn must be set",
		},
		{
			name: "disabled history skips checks",
			mutate: func(c *Config) {
				c.History.Enabled = false
				c.History.Driver = "oracle"
			},
		},
		{
			name:    "bad operator address",
			mutate:  func(c *Config) { c.Market.Operator = "Mnot-hex" },
			wantErr: "not a valid address",
		},
		{
			name: "initial fee above max fee",
			mutate: func(c *Config) {
				c.Market.MaxFee = 10
				c.Market.InitialFee = 11
			},
			wantErr: "exceeds max_fee",
		},
		{
			name: "genesis with bad account",
			mutate: func(c *Config) {
				c.Market.Genesis = []GenesisAccount{{Account: "bob", Amount: 5}}
			},
			wantErr: "not a valid address",
		},
		{
			name: "genesis that seeds nothing",
			mutate: func(c *Config) {
				c.Market.Genesis = []GenesisAccount{{Account: testAddr(1)}}
			},
			wantErr: "seeds neither",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: "unknown level",
		},
		{
			name:    "unknown log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: "unknown format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
