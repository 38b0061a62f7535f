package eval

import (
	"fmt"

	"github.com/stackform-io/stackform/internal/ir"
	"github.com/stackform-io/stackform/internal/schema"
)

// BuildDesiredState turns decoded declarations into the immutable desired
// state: iteration constructs expand, ref:// literals become typed
// references, identities are checked for uniqueness and every resource is
// validated against its kind's schema. The graph and planner only ever see
// the result.
func BuildDesiredState(cfg *Config) (*ir.DesiredState, error) {
	var resources []*ir.Resource
	for _, decl := range expand(cfg.Resources) {
		res, err := buildResource(decl)
		if err != nil {
			return nil, err
		}
		if err := schema.Validate(res); err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}
	return ir.NewDesiredState(resources)
}

func buildResource(decl *ResourceDecl) (*ir.Resource, error) {
	if decl.Kind == "" || decl.Name == "" {
		return nil, fmt.Errorf("resource declaration needs both kind and name (got kind=%q name=%q)", decl.Kind, decl.Name)
	}

	attrs, err := ir.ParseAttributes(decl.Attributes)
	if err != nil {
		return nil, fmt.Errorf("resource %s.%s: %w", decl.Kind, decl.Name, err)
	}

	var deps []ir.Address
	for _, dep := range decl.DependsOn {
		addr, err := ir.ParseAddress(dep)
		if err != nil {
			return nil, fmt.Errorf("resource %s.%s dependsOn: %w", decl.Kind, decl.Name, err)
		}
		deps = append(deps, addr)
	}

	return &ir.Resource{
		Kind:       decl.Kind,
		Name:       decl.Name,
		Attributes: attrs,
		DependsOn:  deps,
	}, nil
}
