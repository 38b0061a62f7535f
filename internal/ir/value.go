package ir

import (
	"fmt"
	"sort"
	"strings"
)

// RefScheme is the URI scheme used to write cross-resource references in
// configuration, e.g. "ref://aws.ec2.Vpc/main/id".
const RefScheme = "ref://"

// Value is the attribute value union: string, number, bool, list, map, or a
// typed reference to another resource's attribute.
type Value interface {
	isValue()
}

type String string

type Number float64

type Bool bool

type List []Value

type Map map[string]Value

// Reference points at another resource's attribute. It is parsed from a
// ref:// literal exactly once, when the desired state is built, and resolved
// against applied state at apply time.
type Reference struct {
	Kind      string
	Name      string
	Attribute string
}

func (String) isValue()    {}
func (Number) isValue()    {}
func (Bool) isValue()      {}
func (List) isValue()      {}
func (Map) isValue()       {}
func (Reference) isValue() {}

// Target returns the address of the referenced resource.
func (r Reference) Target() Address {
	return Address{Kind: r.Kind, Name: r.Name}
}

func (r Reference) String() string {
	return fmt.Sprintf("%s%s/%s/%s", RefScheme, r.Kind, r.Name, r.Attribute)
}

// ParseReference parses a ref:// literal. The second return is false when the
// string is not a reference at all; a malformed reference returns an error.
func ParseReference(s string) (Reference, bool, error) {
	if !strings.HasPrefix(s, RefScheme) {
		return Reference{}, false, nil
	}
	parts := strings.Split(s[len(RefScheme):], "/")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Reference{}, true, fmt.Errorf("malformed reference %q: want ref://<kind>/<name>/<attribute>", s)
	}
	return Reference{Kind: parts[0], Name: parts[1], Attribute: parts[2]}, true, nil
}

// ParseValue converts a decoded configuration value (the any-typed output of
// the PKL evaluator) into a typed Value, promoting ref:// strings to
// References.
func ParseValue(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if ref, isRef, err := ParseReference(val); isRef {
			if err != nil {
				return nil, err
			}
			return ref, nil
		}
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case float64:
		return Number(val), nil
	case []any:
		list := make(List, 0, len(val))
		for _, item := range val {
			parsed, err := ParseValue(item)
			if err != nil {
				return nil, err
			}
			list = append(list, parsed)
		}
		return list, nil
	case map[string]any:
		m := make(Map, len(val))
		for k, item := range val {
			parsed, err := ParseValue(item)
			if err != nil {
				return nil, err
			}
			m[k] = parsed
		}
		return m, nil
	case map[any]any:
		m := make(Map, len(val))
		for k, item := range val {
			parsed, err := ParseValue(item)
			if err != nil {
				return nil, err
			}
			m[fmt.Sprintf("%v", k)] = parsed
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported attribute value type %T", v)
	}
}

// ParseAttributes converts a whole decoded attribute map.
func ParseAttributes(raw map[string]any) (map[string]Value, error) {
	attrs := make(map[string]Value, len(raw))
	for k, v := range raw {
		parsed, err := ParseValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		attrs[k] = parsed
	}
	return attrs, nil
}

// Interface converts a Value back into plain Go values for serialization and
// provider payloads. References render as their ref:// literal; callers that
// need resolved values must substitute them first.
func Interface(v Value) any {
	switch val := v.(type) {
	case nil:
		return nil
	case String:
		return string(val)
	case Number:
		if float64(val) == float64(int64(val)) {
			return int64(val)
		}
		return float64(val)
	case Bool:
		return bool(val)
	case List:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Interface(item)
		}
		return out
	case Map:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Interface(item)
		}
		return out
	case Reference:
		return val.String()
	default:
		return nil
	}
}

// References walks a value and collects every Reference in it.
func References(v Value) []Reference {
	var refs []Reference
	switch val := v.(type) {
	case Reference:
		refs = append(refs, val)
	case List:
		for _, item := range val {
			refs = append(refs, References(item)...)
		}
	case Map:
		for _, k := range sortedKeys(val) {
			refs = append(refs, References(val[k])...)
		}
	}
	return refs
}

// AttributeReferences collects references across a full attribute map, in
// deterministic key order.
func AttributeReferences(attrs map[string]Value) []Reference {
	var refs []Reference
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		refs = append(refs, References(attrs[k])...)
	}
	return refs
}

// Equal reports deep equality of two values. A Reference is only equal to the
// same Reference; it never compares equal to its resolved form.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case nil:
		return b == nil
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Number:
		bv, ok := b.(Number)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Reference:
		bv, ok := b.(Reference)
		return ok && av == bv
	case List:
		bv, ok := b.(List)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Map:
		bv, ok := b.(Map)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, item := range av {
			other, ok := bv[k]
			if !ok || !Equal(item, other) {
				return false
			}
		}
		return true
	}
	return false
}

func sortedKeys(m Map) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
