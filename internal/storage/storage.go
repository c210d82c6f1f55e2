// Package storage persists marketplace ledger checkpoints in a local
// key-value store. The committed ledger lives in memory; after each
// applied operation the change set is written through a Store so the
// daemon can restore listings, escrow balances, the listing fee, and
// the event sequence on restart.
//
// Backends are pluggable through a factory registry (pebble by
// default, goleveldb and an in-memory backend as alternatives), and
// record payloads are compressed through the compression registry.
package storage

import "fmt"

// Status represents the outcome of a backend operation.
type Status int

const (
	// OK indicates the operation was successful
	OK Status = iota
	// NotFound indicates the requested record was not found
	NotFound
	// DataCorrupt indicates the stored data is corrupted
	DataCorrupt
	// BackendError indicates an error in the storage backend
	BackendError
	// Unknown indicates an unknown error occurred
	Unknown
)

// String returns the string representation of Status.
func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case NotFound:
		return "NotFound"
	case DataCorrupt:
		return "DataCorrupt"
	case BackendError:
		return "BackendError"
	case Unknown:
		return "Unknown"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Backend defines the interface for key-value storage backends.
// Checkpoint records are addressed by explicit keys assigned by the
// Store, so the interface is a plain byte-keyed map rather than a
// content-addressed one.
type Backend interface {
	// Name returns a human-readable name for this backend.
	Name() string

	// Open opens the backend for use.
	Open(createIfMissing bool) error

	// Close closes the backend and releases resources.
	Close() error

	// IsOpen returns true if the backend is currently open.
	IsOpen() bool

	// Get retrieves the value stored under key.
	Get(key []byte) ([]byte, Status)

	// Put stores value under key, replacing any previous value.
	Put(key, value []byte) Status

	// Delete removes the value stored under key. Deleting a missing
	// key is not an error.
	Delete(key []byte) Status

	// ForEach iterates over every record whose key starts with
	// prefix. Returning an error from fn stops the iteration.
	ForEach(prefix []byte, fn func(key, value []byte) error) error

	// Sync forces pending writes to be flushed to disk.
	Sync() Status

	// SetDeletePath marks the backend's data for deletion when closed.
	SetDeletePath()
}

// Statistics holds performance metrics for a Store.
type Statistics struct {
	Reads       uint64 // Total number of entry reads
	CacheHits   uint64 // Reads served from the decode cache
	CacheMisses uint64 // Reads that went to the backend
	ReadBytes   uint64 // Total bytes read from the backend
	Writes      uint64 // Total number of record writes
	WriteBytes  uint64 // Total bytes written to the backend

	CacheSize    uint64 // Current number of cached entries
	CacheMaxSize uint64 // Maximum cache size

	BackendName string // Name of the storage backend
}

// String returns a formatted string representation of the statistics.
func (s Statistics) String() string {
	cacheHitRate := float64(0)
	if s.Reads > 0 {
		cacheHitRate = float64(s.CacheHits) / float64(s.Reads) * 100
	}

	return fmt.Sprintf(`Checkpoint Store Statistics:
  Backend: %s
  Reads: %d (%.2f%% cache hit rate)
  Cache: %d/%d items
  Writes: %d
  Read Bytes: %d
  Write Bytes: %d`,
		s.BackendName,
		s.Reads, cacheHitRate,
		s.CacheSize, s.CacheMaxSize,
		s.Writes,
		s.ReadBytes,
		s.WriteBytes)
}
