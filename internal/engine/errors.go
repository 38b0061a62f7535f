package engine

import (
	"fmt"
	"strings"

	"github.com/stackform-io/stackform/internal/ir"
)

// UnresolvedReferenceError is a reference whose target resource is not
// declared in the desired state and has no applied-state entry. Fatal before
// planning; also covers declarations that name a resource under an alias that
// was never declared.
type UnresolvedReferenceError struct {
	Referrer ir.Address
	Target   ir.Address
	// Attribute is the referenced attribute path, empty for a dependsOn entry.
	Attribute string
}

func (e *UnresolvedReferenceError) Error() string {
	if e.Attribute == "" {
		return fmt.Sprintf("%s depends on undeclared resource %s", e.Referrer, e.Target)
	}
	return fmt.Sprintf("%s references %s.%s, but %s is not declared", e.Referrer, e.Target, e.Attribute, e.Target)
}

// CycleError reports a dependency cycle. Path holds the full cycle, first
// node repeated last.
type CycleError struct {
	Path []ir.Address
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Path))
	for i, addr := range e.Path {
		parts[i] = addr.String()
	}
	return "dependency cycle: " + strings.Join(parts, " -> ")
}
