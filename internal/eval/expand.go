package eval

import (
	"fmt"
	"sort"
	"strings"
)

// expand flattens Count and ForEach declarations into concrete declarations,
// one per iteration, each with a derived name. ForEach keys expand in sorted
// order so derived declarations are deterministic.
func expand(decls []*ResourceDecl) []*ResourceDecl {
	var out []*ResourceDecl
	for _, decl := range decls {
		switch {
		case decl.Count > 0:
			for i := 0; i < decl.Count; i++ {
				clone := cloneDecl(decl)
				clone.Name = fmt.Sprintf("%s[%d]", decl.Name, i)
				clone.Attributes = substituteAll(clone.Attributes, map[string]string{
					"${count.index}": fmt.Sprintf("%d", i),
				})
				out = append(out, clone)
			}
		case len(decl.ForEach) > 0:
			keys := make([]string, 0, len(decl.ForEach))
			for k := range decl.ForEach {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, key := range keys {
				clone := cloneDecl(decl)
				clone.Name = fmt.Sprintf("%s[%q]", decl.Name, key)
				clone.Attributes = substituteAll(clone.Attributes, map[string]string{
					"${each.key}":   key,
					"${each.value}": fmt.Sprintf("%v", decl.ForEach[key]),
				})
				out = append(out, clone)
			}
		default:
			out = append(out, decl)
		}
	}
	return out
}

func cloneDecl(decl *ResourceDecl) *ResourceDecl {
	return &ResourceDecl{
		Kind:       decl.Kind,
		Name:       decl.Name,
		DependsOn:  append([]string(nil), decl.DependsOn...),
		Attributes: deepCopyMap(decl.Attributes),
	}
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}

func substituteAll(attrs map[string]any, replacements map[string]string) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = substituteValue(v, replacements)
	}
	return out
}

func substituteValue(v any, replacements map[string]string) any {
	switch val := v.(type) {
	case string:
		result := val
		for old, repl := range replacements {
			result = strings.ReplaceAll(result, old, repl)
		}
		return result
	case map[string]any:
		return substituteAll(val, replacements)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = substituteValue(item, replacements)
		}
		return out
	default:
		return v
	}
}
