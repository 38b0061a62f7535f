// Package schema defines per-kind resource schemas: attribute types, required
// fields, replacement rules and kind-specific validation.
package schema

import (
	"fmt"
	"sort"

	"github.com/stackform-io/stackform/internal/ir"
)

// AttrType constrains an attribute's value type. A Reference is accepted
// wherever a scalar is, since its resolved value is not known until apply.
type AttrType int

const (
	TypeString AttrType = iota
	TypeNumber
	TypeBool
	TypeList
	TypeMap
)

func (t AttrType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber:
		return "number"
	case TypeBool:
		return "bool"
	case TypeList:
		return "list"
	case TypeMap:
		return "map"
	}
	return "unknown"
}

// Attr describes one attribute of a kind.
type Attr struct {
	Type     AttrType
	Required bool
	// ForcesReplacement marks the attribute immutable: changing it destroys
	// and recreates the resource.
	ForcesReplacement bool
}

// Schema describes one resource kind.
type Schema struct {
	Attributes map[string]Attr
	// Check runs kind-specific validation after the generic attribute checks.
	Check func(res *ir.Resource) error
}

// Error is a schema violation in a resource declaration. It is fatal before
// any planning or provider call.
type Error struct {
	Address ir.Address
	Detail  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid resource %s: %s", e.Address, e.Detail)
}

func errorf(addr ir.Address, format string, args ...any) *Error {
	return &Error{Address: addr, Detail: fmt.Sprintf(format, args...)}
}

// Known reports whether kind has a registered schema.
func Known(kind string) bool {
	_, ok := kinds[kind]
	return ok
}

// Get returns the schema for kind.
func Get(kind string) (*Schema, error) {
	s, ok := kinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}
	return s, nil
}

// ForcesReplacement reports whether changing attr on kind requires the
// resource to be destroyed and recreated. Unknown attributes are treated as
// updatable.
func ForcesReplacement(kind, attr string) bool {
	s, ok := kinds[kind]
	if !ok {
		return false
	}
	return s.Attributes[attr].ForcesReplacement
}

// Validate checks a resource declaration against its kind's schema.
func Validate(res *ir.Resource) error {
	addr := res.Address()
	s, ok := kinds[res.Kind]
	if !ok {
		return errorf(addr, "unknown resource kind %q", res.Kind)
	}

	for _, name := range sortedAttrNames(s.Attributes) {
		attr := s.Attributes[name]
		v, present := res.Attributes[name]
		if !present || v == nil {
			if attr.Required {
				return errorf(addr, "missing required attribute %q", name)
			}
			continue
		}
		if err := checkType(v, attr.Type); err != nil {
			return errorf(addr, "attribute %q: %v", name, err)
		}
	}

	for name := range res.Attributes {
		if _, ok := s.Attributes[name]; !ok {
			return errorf(addr, "unsupported attribute %q", name)
		}
	}

	if s.Check != nil {
		return s.Check(res)
	}
	return nil
}

func checkType(v ir.Value, want AttrType) error {
	if _, isRef := v.(ir.Reference); isRef {
		// Resolved type is unknown until apply; accepted everywhere.
		return nil
	}
	ok := false
	switch want {
	case TypeString:
		_, ok = v.(ir.String)
	case TypeNumber:
		_, ok = v.(ir.Number)
	case TypeBool:
		_, ok = v.(ir.Bool)
	case TypeList:
		_, ok = v.(ir.List)
	case TypeMap:
		_, ok = v.(ir.Map)
	}
	if !ok {
		return fmt.Errorf("want %s, got %s", want, valueTypeName(v))
	}
	return nil
}

func valueTypeName(v ir.Value) string {
	switch v.(type) {
	case ir.String:
		return "string"
	case ir.Number:
		return "number"
	case ir.Bool:
		return "bool"
	case ir.List:
		return "list"
	case ir.Map:
		return "map"
	case ir.Reference:
		return "reference"
	}
	return "null"
}

func sortedAttrNames(attrs map[string]Attr) []string {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// exactlyOneOf is a Check helper: the resource must set exactly one of the
// named attributes.
func exactlyOneOf(names ...string) func(*ir.Resource) error {
	return func(res *ir.Resource) error {
		set := 0
		for _, name := range names {
			if v, ok := res.Attributes[name]; ok && v != nil {
				set++
			}
		}
		if set != 1 {
			return errorf(res.Address(), "exactly one of %v must be set, got %d", names, set)
		}
		return nil
	}
}
