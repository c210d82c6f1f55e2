package config

import "github.com/spf13/viper"

// setDefaults seeds every known key so environment overrides bind even
// when no config file is present.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.addr", ":7413")
	v.SetDefault("server.ws_addr", "")
	v.SetDefault("server.admin_ips", []string{"127.0.0.1"})
	v.SetDefault("server.shutdown_timeout", "5s")

	// Storage defaults
	v.SetDefault("storage.backend", "pebble")
	v.SetDefault("storage.path", "./data/state")
	v.SetDefault("storage.cache_size", 2000)
	v.SetDefault("storage.compressor", "lz4")
	v.SetDefault("storage.compression_level", 1)
	v.SetDefault("storage.sync_writes", false)

	// History defaults: embedded sqlite archive next to the state dir
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.driver", "sqlite")
	v.SetDefault("history.dsn", "./data/history.db")
	v.SetDefault("history.max_open_conns", 25)
	v.SetDefault("history.max_idle_conns", 5)
	v.SetDefault("history.conn_max_lifetime", "1h")
	v.SetDefault("history.query_timeout", "30s")

	// Market defaults: no operator, engine bounds, zero genesis fee
	v.SetDefault("market.operator", "")
	v.SetDefault("market.max_price", 0)
	v.SetDefault("market.max_fee", 0)
	v.SetDefault("market.initial_fee", 0)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}
