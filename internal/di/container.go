// Package di wires the daemon's services together: a name-keyed
// container with lazy builders, and the provider that registers every
// marketd component in it.
package di

import (
	"errors"
	"io"
	"sync"
)

// Builder constructs a service instance. Builders may resolve their
// own dependencies through the container they receive.
type Builder func(c *Container) (interface{}, error)

// Container holds service instances and the builders that create them.
// A builder runs at most once; its result is cached.
type Container struct {
	mu       sync.RWMutex
	services map[string]interface{}
	builders map[string]Builder

	// Instantiation order, for closing in reverse.
	order []string
}

// New creates an empty container.
func New() *Container {
	return &Container{
		services: make(map[string]interface{}),
		builders: make(map[string]Builder),
	}
}

// Register stores a ready service instance.
func (c *Container) Register(name string, service interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = service
	c.order = append(c.order, name)
}

// RegisterBuilder stores a builder for lazy instantiation.
func (c *Container) RegisterBuilder(name string, builder Builder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builders[name] = builder
}

// Get returns the named service, running its builder on first use.
func (c *Container) Get(name string) (interface{}, error) {
	c.mu.RLock()
	service, exists := c.services[name]
	c.mu.RUnlock()
	if exists {
		return service, nil
	}

	c.mu.Lock()
	builder, hasBuilder := c.builders[name]
	c.mu.Unlock()
	if !hasBuilder {
		return nil, errors.New("service not found: " + name)
	}

	// Build outside the lock: builders resolve their dependencies
	// through the container and would deadlock otherwise. The daemon
	// resolves its graph from a single goroutine at startup, so the
	// brief double-build window is not a concern.
	service, err := builder(c)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, exists := c.services[name]; exists {
		return existing, nil
	}
	c.services[name] = service
	c.order = append(c.order, name)
	return service, nil
}

// MustGet returns the named service or panics. For wiring code whose
// builders are known to be registered.
func (c *Container) MustGet(name string) interface{} {
	service, err := c.Get(name)
	if err != nil {
		panic(err)
	}
	return service
}

// Has reports whether the name is registered, built or not.
func (c *Container) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.services[name]; ok {
		return true
	}
	_, ok := c.builders[name]
	return ok
}

// Close shuts down every built service that implements io.Closer, in
// reverse instantiation order so dependents close before their
// dependencies. All close errors are reported together.
func (c *Container) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for i := len(c.order) - 1; i >= 0; i-- {
		name := c.order[i]
		if closer, ok := c.services[name].(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, errors.New(name+": "+err.Error()))
			}
		}
		delete(c.services, name)
	}
	c.order = nil
	return errors.Join(errs...)
}
