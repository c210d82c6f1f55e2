package storage

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

// MemoryBackend implements an in-memory Backend. It backs unit tests
// and ephemeral runs where checkpoints should not outlive the process.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte

	open int64 // atomic flag for open state

	stats struct {
		reads        int64
		writes       int64
		bytesRead    int64
		bytesWritten int64
	}
}

// NewMemoryBackend creates a new in-memory backend. The config is
// ignored but required for the BackendFactory signature.
func NewMemoryBackend(config *Config) (Backend, error) {
	return &MemoryBackend{
		data: make(map[string][]byte),
	}, nil
}

// Name returns the name of this backend.
func (m *MemoryBackend) Name() string {
	return "memory"
}

// Info returns backend capability information.
func (m *MemoryBackend) Info() BackendInfo {
	return BackendInfo{
		Name:        "memory",
		Description: "in-memory map, cleared on close",
		Persistent:  false,
	}
}

// Open opens the backend for use.
func (m *MemoryBackend) Open(createIfMissing bool) error {
	if !atomic.CompareAndSwapInt64(&m.open, 0, 1) {
		return ErrBackendClosed
	}
	return nil
}

// Close closes the backend and clears all data.
func (m *MemoryBackend) Close() error {
	if !atomic.CompareAndSwapInt64(&m.open, 1, 0) {
		return nil // Already closed
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)

	return nil
}

// IsOpen returns true if the backend is currently open.
func (m *MemoryBackend) IsOpen() bool {
	return atomic.LoadInt64(&m.open) != 0
}

// SetDeletePath is a no-op: memory backends hold no files.
func (m *MemoryBackend) SetDeletePath() {}

// Get retrieves the value stored under key.
func (m *MemoryBackend) Get(key []byte) ([]byte, Status) {
	if !m.IsOpen() {
		return nil, BackendError
	}

	m.mu.RLock()
	value, found := m.data[string(key)]
	m.mu.RUnlock()

	if !found {
		return nil, NotFound
	}

	result := make([]byte, len(value))
	copy(result, value)

	atomic.AddInt64(&m.stats.reads, 1)
	atomic.AddInt64(&m.stats.bytesRead, int64(len(result)))

	return result, OK
}

// Put stores value under key.
func (m *MemoryBackend) Put(key, value []byte) Status {
	if !m.IsOpen() {
		return BackendError
	}

	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	m.data[string(key)] = stored
	m.mu.Unlock()

	atomic.AddInt64(&m.stats.writes, 1)
	atomic.AddInt64(&m.stats.bytesWritten, int64(len(stored)))

	return OK
}

// Delete removes the value stored under key.
func (m *MemoryBackend) Delete(key []byte) Status {
	if !m.IsOpen() {
		return BackendError
	}

	m.mu.Lock()
	delete(m.data, string(key))
	m.mu.Unlock()

	return OK
}

// ForEach iterates over every record whose key starts with prefix, in
// ascending key order.
func (m *MemoryBackend) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	if !m.IsOpen() {
		return ErrBackendClosed
	}

	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, string(prefix)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	type pair struct {
		key   []byte
		value []byte
	}
	pairs := make([]pair, 0, len(keys))
	for _, k := range keys {
		v := m.data[k]
		value := make([]byte, len(v))
		copy(value, v)
		pairs = append(pairs, pair{key: []byte(k), value: value})
	}
	m.mu.RUnlock()

	for _, p := range pairs {
		if err := fn(p.key, p.value); err != nil {
			return err
		}
	}

	return nil
}

// Sync is a no-op for the memory backend.
func (m *MemoryBackend) Sync() Status {
	if !m.IsOpen() {
		return BackendError
	}
	return OK
}
