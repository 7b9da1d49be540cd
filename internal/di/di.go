// Package di provides a small lazy dependency injection container with
// typed tokens.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry resolves services by name.
type ServiceRegistry interface {
	Get(name string) any
}

// Container registers services and resolves them.
type Container interface {
	ServiceRegistry
	Register(name string, value any)
	RegisterFactory(name string, factory func(ServiceRegistry) any)
}

type entry struct {
	factory func(ServiceRegistry) any
	value   any
	built   bool
	once    sync.Once
}

type container struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewContainer returns an empty container.
func NewContainer() Container {
	return &container{entries: make(map[string]*entry)}
}

// Register stores a ready-made value under name.
func (c *container) Register(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = &entry{value: value, built: true}
}

// RegisterFactory stores a factory that runs once, on first Get.
func (c *container) RegisterFactory(name string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[name] = &entry{factory: factory}
}

// Get resolves a service. It panics on unknown names since wiring errors
// are programmer errors caught at startup.
func (c *container) Get(name string) any {
	c.mu.RLock()
	e, ok := c.entries[name]
	c.mu.RUnlock()
	if !ok {
		panic(fmt.Sprintf("di: service %q not registered", name))
	}

	if e.built {
		return e.value
	}

	e.once.Do(func() {
		e.value = e.factory(c)
	})
	return e.value
}

// Token is a typed service key.
type Token[T any] struct {
	name string
}

// NewToken creates a typed token.
func NewToken[T any](name string) Token[T] {
	return Token[T]{name: name}
}

// Name returns the registry key.
func (t Token[T]) Name() string {
	return t.name
}

// RegisterToken registers a typed factory.
func RegisterToken[T any](c Container, tok Token[T], factory func(ServiceRegistry) T) {
	c.RegisterFactory(tok.name, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves a typed service.
func GetToken[T any](sr ServiceRegistry, tok Token[T]) T {
	v, ok := sr.Get(tok.name).(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has unexpected type", tok.name))
	}
	return v
}
