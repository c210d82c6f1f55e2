package storage

import (
	"errors"
	"fmt"
)

// Config holds configuration options for the checkpoint store.
type Config struct {
	// Backend specifies the storage backend to use
	Backend string `json:"backend" yaml:"backend"`

	// Path specifies the file system path for data storage
	Path string `json:"path" yaml:"path"`

	// CacheSize is the number of decoded entries kept in memory
	CacheSize int `json:"cache_size" yaml:"cache_size"`

	// Compression configuration
	Compressor       string `json:"compressor" yaml:"compressor"`
	CompressionLevel int    `json:"compression_level" yaml:"compression_level"`

	// SyncWrites forces every write to be flushed to disk before
	// returning. Slower but loses nothing on power failure.
	SyncWrites bool `json:"sync_writes" yaml:"sync_writes"`

	// CreateIfMissing creates the data directory on first open
	CreateIfMissing bool `json:"create_if_missing" yaml:"create_if_missing"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend:          "pebble",
		Path:             "./data/state",
		CacheSize:        2000,
		Compressor:       "lz4",
		CompressionLevel: 1,
		SyncWrites:       false,
		CreateIfMissing:  true,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Backend == "" {
		return errors.New("backend must be specified")
	}

	if c.Path == "" && c.Backend != "memory" {
		return errors.New("path must be specified")
	}

	if c.CacheSize < 0 {
		return errors.New("cache_size must be non-negative")
	}

	if c.CompressionLevel < 0 || c.CompressionLevel > 9 {
		return errors.New("compression_level must be between 0 and 9")
	}

	validCompressors := map[string]bool{
		"lz4":  true,
		"none": true,
	}
	if !validCompressors[c.Compressor] {
		return fmt.Errorf("unsupported compressor: %s", c.Compressor)
	}

	return nil
}

// Option represents a functional option for configuring the store.
type Option func(*Config)

// WithPath sets the storage path.
func WithPath(path string) Option {
	return func(c *Config) {
		c.Path = path
	}
}

// WithBackend sets the storage backend.
func WithBackend(backend string) Option {
	return func(c *Config) {
		c.Backend = backend
	}
}

// WithCacheSize sets the cache size (number of entries).
func WithCacheSize(size int) Option {
	return func(c *Config) {
		c.CacheSize = size
	}
}

// WithCompressor sets the compression algorithm.
func WithCompressor(name string) Option {
	return func(c *Config) {
		c.Compressor = name
	}
}
