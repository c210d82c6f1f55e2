package storage

import (
	"fmt"
	"sync"
)

// BackendFactory is a function that creates a new backend instance.
type BackendFactory func(config *Config) (Backend, error)

var (
	backendMu        sync.RWMutex
	backendFactories = make(map[string]BackendFactory)
)

// RegisterBackend registers a backend factory with the given name.
func RegisterBackend(name string, factory BackendFactory) {
	backendMu.Lock()
	defer backendMu.Unlock()
	backendFactories[name] = factory
}

// CreateBackend creates a new backend instance for the given name and configuration.
func CreateBackend(name string, config *Config) (Backend, error) {
	backendMu.RLock()
	factory, ok := backendFactories[name]
	backendMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedBackend, name)
	}

	return factory(config)
}

// AvailableBackends returns a list of available backend names.
func AvailableBackends() []string {
	backendMu.RLock()
	defer backendMu.RUnlock()

	names := make([]string, 0, len(backendFactories))
	for name := range backendFactories {
		names = append(names, name)
	}
	return names
}

// IsBackendAvailable checks if a backend with the given name is available.
func IsBackendAvailable(name string) bool {
	backendMu.RLock()
	_, ok := backendFactories[name]
	backendMu.RUnlock()
	return ok
}

// BackendInfo provides information about a backend.
type BackendInfo struct {
	Name        string // Backend name
	Description string // Human-readable description
	Persistent  bool   // Whether the backend provides persistent storage
}

// String returns a string representation of the backend info.
func (bi BackendInfo) String() string {
	kind := "in-memory"
	if bi.Persistent {
		kind = "persistent"
	}
	return fmt.Sprintf("%s: %s (%s)", bi.Name, bi.Description, kind)
}

// BackendWithInfo is an interface that backends can implement to provide
// additional information about their capabilities.
type BackendWithInfo interface {
	Backend
	Info() BackendInfo
}

// init registers the built-in backends.
func init() {
	RegisterBackend("pebble", NewPebbleBackend)
	RegisterBackend("leveldb", NewLevelDBBackend)
	RegisterBackend("memory", NewMemoryBackend)
}
