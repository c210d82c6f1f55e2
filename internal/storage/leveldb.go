package storage

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBBackend implements a storage backend on goleveldb. It is the
// lighter alternative to pebble for small deployments.
type LevelDBBackend struct {
	db     *leveldb.DB
	config *Config

	open       int64
	deletePath int64

	stats struct {
		reads        int64
		writes       int64
		bytesRead    int64
		bytesWritten int64
	}
}

// NewLevelDBBackend creates a new goleveldb backend.
func NewLevelDBBackend(config *Config) (Backend, error) {
	if config == nil {
		config = DefaultConfig()
	}
	return &LevelDBBackend{config: config}, nil
}

// Name returns the name of this backend.
func (l *LevelDBBackend) Name() string {
	return fmt.Sprintf("leveldb(%s)", l.config.Path)
}

// Info returns backend capability information.
func (l *LevelDBBackend) Info() BackendInfo {
	return BackendInfo{
		Name:        "leveldb",
		Description: "goleveldb key-value store",
		Persistent:  true,
	}
}

// Open opens the backend for use.
func (l *LevelDBBackend) Open(createIfMissing bool) error {
	if !atomic.CompareAndSwapInt64(&l.open, 0, 1) {
		return fmt.Errorf("backend already open")
	}

	opts := &opt.Options{
		ErrorIfMissing: !createIfMissing,
		// Payloads are compressed by the store already.
		Compression: opt.NoCompression,
	}

	db, err := leveldb.OpenFile(l.config.Path, opts)
	if err != nil {
		atomic.StoreInt64(&l.open, 0)
		return fmt.Errorf("failed to open leveldb at %s: %w", l.config.Path, err)
	}

	l.db = db
	return nil
}

// Close closes the backend and releases resources.
func (l *LevelDBBackend) Close() error {
	if !atomic.CompareAndSwapInt64(&l.open, 1, 0) {
		return nil
	}

	var err error
	if l.db != nil {
		err = l.db.Close()
		l.db = nil
	}

	if atomic.LoadInt64(&l.deletePath) != 0 && l.config.Path != "" {
		if removeErr := os.RemoveAll(l.config.Path); removeErr != nil && err == nil {
			err = removeErr
		}
	}

	return err
}

// IsOpen returns true if the backend is currently open.
func (l *LevelDBBackend) IsOpen() bool {
	return atomic.LoadInt64(&l.open) != 0
}

// SetDeletePath marks the backend's data directory for deletion on Close.
func (l *LevelDBBackend) SetDeletePath() {
	atomic.StoreInt64(&l.deletePath, 1)
}

// Get retrieves the value stored under key.
func (l *LevelDBBackend) Get(key []byte) ([]byte, Status) {
	if !l.IsOpen() {
		return nil, BackendError
	}

	value, err := l.db.Get(key, nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, NotFound
		}
		return nil, BackendError
	}

	atomic.AddInt64(&l.stats.reads, 1)
	atomic.AddInt64(&l.stats.bytesRead, int64(len(value)))

	return value, OK
}

// Put stores value under key.
func (l *LevelDBBackend) Put(key, value []byte) Status {
	if !l.IsOpen() {
		return BackendError
	}

	if err := l.db.Put(key, value, l.writeOptions()); err != nil {
		return BackendError
	}

	atomic.AddInt64(&l.stats.writes, 1)
	atomic.AddInt64(&l.stats.bytesWritten, int64(len(value)))

	return OK
}

// Delete removes the value stored under key.
func (l *LevelDBBackend) Delete(key []byte) Status {
	if !l.IsOpen() {
		return BackendError
	}

	if err := l.db.Delete(key, l.writeOptions()); err != nil {
		return BackendError
	}

	return OK
}

// writeOptions selects write durability per the configuration.
func (l *LevelDBBackend) writeOptions() *opt.WriteOptions {
	return &opt.WriteOptions{Sync: l.config.SyncWrites}
}

// ForEach iterates over every record whose key starts with prefix.
func (l *LevelDBBackend) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	if !l.IsOpen() {
		return ErrBackendClosed
	}

	var slice *util.Range
	if len(prefix) > 0 {
		slice = util.BytesPrefix(prefix)
	}

	iter := l.db.NewIterator(slice, nil)
	defer iter.Release()

	for iter.Next() {
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		value := make([]byte, len(iter.Value()))
		copy(value, iter.Value())

		if err := fn(key, value); err != nil {
			return err
		}
	}

	return iter.Error()
}

// Sync forces pending writes to disk. goleveldb flushes per write when
// SyncWrites is set; otherwise durability rides on the OS cache, so
// this is a no-op beyond a liveness check.
func (l *LevelDBBackend) Sync() Status {
	if !l.IsOpen() {
		return BackendError
	}
	return OK
}
