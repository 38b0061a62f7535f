package ir

import (
	"fmt"
	"sort"
	"strings"
)

// Address is the stable identity of a resource: kind plus a name unique
// within that kind.
type Address struct {
	Kind string
	Name string
}

func (a Address) String() string {
	return a.Kind + "." + a.Name
}

// Less orders addresses lexicographically by (kind, name). Used everywhere a
// deterministic tie-break is needed.
func (a Address) Less(b Address) bool {
	if a.Kind != b.Kind {
		return a.Kind < b.Kind
	}
	return a.Name < b.Name
}

// ParseAddress parses "kind.name" where kind is everything up to the last dot.
func ParseAddress(s string) (Address, error) {
	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return Address{}, fmt.Errorf("invalid resource address %q: want <kind>.<name>", s)
	}
	return Address{Kind: s[:i], Name: s[i+1:]}, nil
}

// Resource is a single declared infrastructure object.
type Resource struct {
	Kind       string
	Name       string
	Attributes map[string]Value
	// DependsOn carries ordering requirements that have no attribute
	// reference, e.g. an elastic IP that must wait for the internet gateway.
	DependsOn []Address
}

func (r *Resource) Address() Address {
	return Address{Kind: r.Kind, Name: r.Name}
}

// DesiredState is the immutable set of resources declared for one run.
// Iteration constructs have already been expanded by the time a DesiredState
// exists; every resource here is concrete.
type DesiredState struct {
	byAddr map[Address]*Resource
	order  []Address
}

// NewDesiredState builds a desired state, rejecting duplicate identities.
func NewDesiredState(resources []*Resource) (*DesiredState, error) {
	ds := &DesiredState{byAddr: make(map[Address]*Resource, len(resources))}
	for _, res := range resources {
		addr := res.Address()
		if _, exists := ds.byAddr[addr]; exists {
			return nil, fmt.Errorf("duplicate resource %s", addr)
		}
		ds.byAddr[addr] = res
		ds.order = append(ds.order, addr)
	}
	sort.Slice(ds.order, func(i, j int) bool { return ds.order[i].Less(ds.order[j]) })
	return ds, nil
}

// Get returns the resource at addr, or nil.
func (d *DesiredState) Get(addr Address) *Resource {
	return d.byAddr[addr]
}

// Contains reports whether addr is declared.
func (d *DesiredState) Contains(addr Address) bool {
	_, ok := d.byAddr[addr]
	return ok
}

// Addresses returns all identities in (kind, name) order.
func (d *DesiredState) Addresses() []Address {
	return d.order
}

// Resources returns all resources in (kind, name) order.
func (d *DesiredState) Resources() []*Resource {
	out := make([]*Resource, 0, len(d.order))
	for _, addr := range d.order {
		out = append(out, d.byAddr[addr])
	}
	return out
}

func (d *DesiredState) Len() int {
	return len(d.order)
}
