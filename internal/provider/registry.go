package provider

import (
	"fmt"
	"strings"
	"sync"
)

// Factory constructs a named provider client. Implementations register
// themselves at startup; the indirection keeps this package free of SDK
// imports.
type Factory func() Client

// Registry manages the lifecycle of provider clients.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	clients   map[string]Client
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		clients:   make(map[string]Client),
	}
}

// Register makes a provider available under name.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Load instantiates the named provider if it is registered and not yet built.
func (r *Registry) Load(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.clients[name]; exists {
		return nil
	}
	factory, ok := r.factories[name]
	if !ok {
		return fmt.Errorf("unknown provider: %s", name)
	}
	r.clients[name] = factory()
	return nil
}

// Get returns a loaded provider client.
func (r *Registry) Get(name string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("provider not loaded: %s", name)
	}
	return c, nil
}

// ForKind returns the client owning a resource kind. The provider name is the
// kind's first path segment: "aws.ec2.Vpc" belongs to "aws".
func (r *Registry) ForKind(kind string) (Client, error) {
	name, _, ok := strings.Cut(kind, ".")
	if !ok || name == "" {
		return nil, fmt.Errorf("malformed resource kind %q", kind)
	}
	return r.Get(name)
}

// ProviderName extracts the provider segment of a kind.
func ProviderName(kind string) string {
	name, _, _ := strings.Cut(kind, ".")
	return name
}
