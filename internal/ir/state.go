package ir

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
)

// ResourceState is the persisted record of one reconciled resource.
type ResourceState struct {
	Kind string `json:"kind"`
	Name string `json:"name"`
	// ID is the provider-assigned identifier.
	ID string `json:"id"`
	// Inputs are the declared attributes as applied, references rendered as
	// ref:// literals.
	Inputs map[string]any `json:"inputs"`
	// Outputs are the provider-resolved attributes, including fields the
	// provider assigns (ARNs, generated names).
	Outputs map[string]any `json:"outputs,omitempty"`
	// Dependencies records the resource's dependency edges at apply time,
	// so destroy ordering survives removal from configuration.
	Dependencies []string `json:"dependencies,omitempty"`
}

func (r *ResourceState) Address() Address {
	return Address{Kind: r.Kind, Name: r.Name}
}

// AppliedState is the last successfully reconciled configuration. It is
// mutated only through the state store, one resource at a time.
type AppliedState struct {
	Version   int              `json:"version"`
	Serial    int              `json:"serial"`
	Lineage   string           `json:"lineage"`
	Resources []*ResourceState `json:"resources"`
}

// NewAppliedState returns an empty first-run state with a fresh lineage.
func NewAppliedState() *AppliedState {
	return &AppliedState{Version: 1, Lineage: newLineage()}
}

func newLineage() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}

// Get returns the state entry at addr, or nil.
func (s *AppliedState) Get(addr Address) *ResourceState {
	for _, res := range s.Resources {
		if res.Address() == addr {
			return res
		}
	}
	return nil
}

// Contains reports whether addr has a state entry.
func (s *AppliedState) Contains(addr Address) bool {
	return s.Get(addr) != nil
}

// Upsert replaces or appends the entry for res, keeping (kind, name) order.
func (s *AppliedState) Upsert(res *ResourceState) {
	for i, existing := range s.Resources {
		if existing.Address() == res.Address() {
			s.Resources[i] = res
			return
		}
	}
	s.Resources = append(s.Resources, res)
	sort.Slice(s.Resources, func(i, j int) bool {
		return s.Resources[i].Address().Less(s.Resources[j].Address())
	})
}

// Remove deletes the entry at addr if present.
func (s *AppliedState) Remove(addr Address) {
	for i, res := range s.Resources {
		if res.Address() == addr {
			s.Resources = append(s.Resources[:i], s.Resources[i+1:]...)
			return
		}
	}
}

// Addresses returns all state identities in (kind, name) order.
func (s *AppliedState) Addresses() []Address {
	addrs := make([]Address, 0, len(s.Resources))
	for _, res := range s.Resources {
		addrs = append(addrs, res.Address())
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Less(addrs[j]) })
	return addrs
}

// Copy returns a deep copy, safe to hand out as a snapshot.
func (s *AppliedState) Copy() *AppliedState {
	out := &AppliedState{
		Version: s.Version,
		Serial:  s.Serial,
		Lineage: s.Lineage,
	}
	for _, res := range s.Resources {
		out.Resources = append(out.Resources, &ResourceState{
			Kind:         res.Kind,
			Name:         res.Name,
			ID:           res.ID,
			Inputs:       copyAnyMap(res.Inputs),
			Outputs:      copyAnyMap(res.Outputs),
			Dependencies: append([]string(nil), res.Dependencies...),
		})
	}
	return out
}

// Attribute looks up a named attribute for reference resolution, preferring
// provider outputs over declared inputs. "id" falls back to the provider ID.
func (r *ResourceState) Attribute(name string) (any, error) {
	if v, ok := r.Outputs[name]; ok {
		return v, nil
	}
	if v, ok := r.Inputs[name]; ok {
		return v, nil
	}
	if name == "id" && r.ID != "" {
		return r.ID, nil
	}
	return nil, fmt.Errorf("resource %s has no attribute %q", r.Address(), name)
}

func copyAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyAnyValue(v)
	}
	return out
}

func copyAnyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return copyAnyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = copyAnyValue(item)
		}
		return out
	default:
		return val
	}
}
