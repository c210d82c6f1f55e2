package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/LeJamon/goMarketd/internal/crypto"
)

// Validate checks the complete configuration and reports the first
// problem found, prefixed with the section it belongs to.
func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := validateStorage(&cfg.Storage); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := validateHistory(&cfg.History); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if err := validateMarket(&cfg.Market); err != nil {
		return fmt.Errorf("market: %w", err)
	}
	if err := validateLog(&cfg.Log); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

func validateServer(s *ServerConfig) error {
	if s.Addr == "" {
		return fmt.Errorf("addr must be set")
	}
	if err := validateListenAddr(s.Addr); err != nil {
		return fmt.Errorf("addr %q: %w", s.Addr, err)
	}
	if s.WSAddr != "" {
		if err := validateListenAddr(s.WSAddr); err != nil {
			return fmt.Errorf("ws_addr %q: %w", s.WSAddr, err)
		}
		if s.WSAddr == s.Addr {
			return fmt.Errorf("ws_addr must differ from addr")
		}
	}
	for _, ip := range s.AdminIPs {
		if ip == "localhost" {
			continue
		}
		if net.ParseIP(ip) == nil {
			return fmt.Errorf("admin_ips entry %q is not an IP address", ip)
		}
	}
	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive")
	}
	return nil
}

func validateListenAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("not a host:port listen address")
	}
	if port == "" {
		return fmt.Errorf("missing port")
	}
	return nil
}

func validateStorage(s *StorageConfig) error {
	switch s.Backend {
	case "pebble", "leveldb", "memory":
	case "":
		return fmt.Errorf("backend must be set")
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}
	if s.Backend != "memory" && s.Path == "" {
		return fmt.Errorf("path must be set for the %s backend", s.Backend)
	}
	if s.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive")
	}
	switch s.Compressor {
	case "lz4", "none":
	case "":
		return fmt.Errorf("compressor must be set")
	default:
		return fmt.Errorf("unknown compressor %q", s.Compressor)
	}
	return nil
}

func validateHistory(h *HistoryConfig) error {
	if !h.Enabled {
		return nil
	}
	switch h.Driver {
	case "sqlite", "postgres":
	case "":
		return fmt.Errorf("driver must be set")
	default:
		return fmt.Errorf("unknown driver %q", h.Driver)
	}
	if h.DSN == "" {
		return fmt.Errorf("dsn must be set")
	}
	if h.MaxOpenConns < 1 {
		return fmt.Errorf("max_open_conns must be at least 1")
	}
	if h.MaxIdleConns < 0 || h.MaxIdleConns > h.MaxOpenConns {
		return fmt.Errorf("max_idle_conns must be between 0 and max_open_conns")
	}
	if h.QueryTimeout <= 0 {
		return fmt.Errorf("query_timeout must be positive")
	}
	return nil
}

func validateMarket(m *MarketConfig) error {
	if m.Operator != "" && !crypto.IsValidAddress(m.Operator) {
		return fmt.Errorf("operator %q is not a valid address", m.Operator)
	}
	if m.MaxFee > 0 && m.InitialFee > m.MaxFee {
		return fmt.Errorf("initial_fee %d exceeds max_fee %d", m.InitialFee, m.MaxFee)
	}
	for i, g := range m.Genesis {
		if !crypto.IsValidAddress(g.Account) {
			return fmt.Errorf("genesis entry %d: account %q is not a valid address", i, g.Account)
		}
		if g.Tokens < 0 {
			return fmt.Errorf("genesis entry %d: tokens must not be negative", i)
		}
		if g.Amount == 0 && g.Tokens == 0 {
			return fmt.Errorf("genesis entry %d: seeds neither funds nor tokens", i)
		}
	}
	return nil
}

func validateLog(l *LogConfig) error {
	switch strings.ToLower(l.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown level %q", l.Level)
	}
	switch l.Format {
	case "console", "json":
	default:
		return fmt.Errorf("unknown format %q", l.Format)
	}
	return nil
}
