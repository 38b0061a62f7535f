// Package null implements an in-memory provider whose resources exist only
// in state. Used for tests and for wiring that needs ordering without
// side effects.
package null

import (
	"context"
	"fmt"
	"sync"
)

type Provider struct {
	mu         sync.Mutex
	nextID     int
	existsByID map[string]bool
}

func New() *Provider {
	return &Provider{existsByID: make(map[string]bool)}
}

func (p *Provider) Create(ctx context.Context, kind string, attrs map[string]any) (string, map[string]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.nextID++
	id := fmt.Sprintf("null-%d", p.nextID)
	p.existsByID[id] = true

	outputs := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		outputs[k] = v
	}
	outputs["id"] = id
	return id, outputs, nil
}

func (p *Provider) Update(ctx context.Context, kind string, id string, attrs map[string]any) (map[string]any, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.existsByID[id] {
		return nil, fmt.Errorf("null resource %s does not exist", id)
	}
	outputs := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		outputs[k] = v
	}
	outputs["id"] = id
	return outputs, nil
}

func (p *Provider) Destroy(ctx context.Context, kind string, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.existsByID, id)
	return nil
}
