package engine

import (
	"fmt"
	"sort"

	"github.com/stackform-io/stackform/internal/ir"
	"github.com/stackform-io/stackform/internal/logging"
	"github.com/stackform-io/stackform/internal/schema"
)

// Plan diffs desired state against applied state and produces the ordered
// change-set. It is a pure function over its inputs: planning twice with the
// same inputs yields an identical change-set.
//
// Destroys of removed resources come first, dependents before their
// dependencies. Creates, updates and replaces follow in creation order,
// dependencies first. When a changed attribute forces replacement, the
// replacement taints every dependent transitively so no resource is left
// holding a reference into a destroyed dependency.
func (e *Engine) Plan(desired *ir.DesiredState, applied *ir.AppliedState, graph *Graph) (*ir.ChangeSet, error) {
	logging.Debug("planning", "desired", desired.Len(), "applied", len(applied.Resources))

	ops := make(map[ir.Address]*ir.Operation)

	for _, addr := range graph.CreationOrder() {
		res := desired.Get(addr)
		if res == nil {
			continue
		}
		prior := applied.Get(addr)
		if prior == nil {
			ops[addr] = &ir.Operation{Action: ir.ActionCreate, Address: addr, Desired: res}
			continue
		}

		changed := diffAttributes(res.Attributes, prior.Inputs)
		if len(changed) == 0 {
			continue
		}

		action := ir.ActionUpdate
		for _, attr := range changed {
			if schema.ForcesReplacement(res.Kind, attr) {
				action = ir.ActionReplace
				break
			}
		}
		ops[addr] = &ir.Operation{
			Action:            action,
			Address:           addr,
			Desired:           res,
			Prior:             prior,
			ChangedAttributes: changed,
		}
	}

	propagateReplacements(ops, desired, applied, graph)

	destroys, err := planDestroys(desired, applied)
	if err != nil {
		return nil, err
	}

	cs := &ir.ChangeSet{}
	cs.Operations = append(cs.Operations, destroys...)
	for _, addr := range graph.CreationOrder() {
		if op, ok := ops[addr]; ok {
			cs.Operations = append(cs.Operations, op)
		}
	}

	for _, op := range cs.Operations {
		switch op.Action {
		case ir.ActionCreate:
			cs.Summary.Create++
		case ir.ActionUpdate:
			cs.Summary.Update++
		case ir.ActionReplace:
			cs.Summary.Replace++
		case ir.ActionDestroy:
			cs.Summary.Destroy++
		}
	}
	cs.Summary.NoOp = desired.Len() - len(ops)

	return cs, nil
}

// propagateReplacements walks dependents of every replaced resource and
// schedules them too. A dependent referencing the replaced resource through
// an immutable attribute is itself replaced, and the taint keeps spreading;
// otherwise an update suffices, since only the resolved reference value
// changes.
func propagateReplacements(ops map[ir.Address]*ir.Operation, desired *ir.DesiredState, applied *ir.AppliedState, graph *Graph) {
	var queue []ir.Address
	for addr, op := range ops {
		if op.Action == ir.ActionReplace {
			queue = append(queue, addr)
		}
	}
	sort.Slice(queue, func(i, j int) bool { return queue[i].Less(queue[j]) })

	for len(queue) > 0 {
		replaced := queue[0]
		queue = queue[1:]

		for _, depAddr := range graph.Dependents(replaced) {
			res := desired.Get(depAddr)
			if res == nil {
				continue
			}
			existing := ops[depAddr]
			if existing != nil && (existing.Action == ir.ActionCreate || existing.Action == ir.ActionReplace) {
				continue
			}

			refAttrs := attributesReferencing(res, replaced)
			forces := false
			for _, attr := range refAttrs {
				if schema.ForcesReplacement(res.Kind, attr) {
					forces = true
					break
				}
			}

			reason := fmt.Sprintf("dependency %s is replaced", replaced)
			if existing == nil {
				action := ir.ActionUpdate
				if forces {
					action = ir.ActionReplace
				}
				ops[depAddr] = &ir.Operation{
					Action:            action,
					Address:           depAddr,
					Desired:           res,
					Prior:             applied.Get(depAddr),
					ChangedAttributes: refAttrs,
					Reason:            reason,
				}
				if forces {
					queue = append(queue, depAddr)
				}
				continue
			}
			// Existing update escalates when the reference is immutable.
			if forces {
				existing.Action = ir.ActionReplace
				existing.Reason = reason
				queue = append(queue, depAddr)
			}
		}
	}
}

// planDestroys emits destroy operations for every applied resource no longer
// declared, ordered so dependents are destroyed before their dependencies.
func planDestroys(desired *ir.DesiredState, applied *ir.AppliedState) ([]*ir.Operation, error) {
	removed := make(map[ir.Address]bool)
	for _, res := range applied.Resources {
		if !desired.Contains(res.Address()) {
			removed[res.Address()] = true
		}
	}
	if len(removed) == 0 {
		return nil, nil
	}

	stateGraph, err := BuildGraphFromState(applied)
	if err != nil {
		return nil, fmt.Errorf("ordering destroys: %w", err)
	}

	var ops []*ir.Operation
	for _, addr := range stateGraph.DestructionOrder() {
		if removed[addr] {
			ops = append(ops, &ir.Operation{
				Action:  ir.ActionDestroy,
				Address: addr,
				Prior:   applied.Get(addr),
			})
		}
	}
	return ops, nil
}

// attributesReferencing returns the attribute names of res whose values
// reference target, sorted.
func attributesReferencing(res *ir.Resource, target ir.Address) []string {
	var names []string
	for name, v := range res.Attributes {
		for _, ref := range ir.References(v) {
			if ref.Target() == target {
				names = append(names, name)
				break
			}
		}
	}
	sort.Strings(names)
	return names
}

// diffAttributes returns the sorted names of attributes that differ between
// the declared values and the inputs recorded at last apply. References
// compare by their literal form: a reference is only "changed" when it points
// somewhere new, not when its resolved value drifts.
func diffAttributes(desired map[string]ir.Value, priorInputs map[string]any) []string {
	keys := make(map[string]bool)
	for k := range desired {
		keys[k] = true
	}
	for k := range priorInputs {
		keys[k] = true
	}

	var changed []string
	for k := range keys {
		dv, inDesired := desired[k]
		pv, inPrior := priorInputs[k]
		if inDesired != inPrior {
			changed = append(changed, k)
			continue
		}
		if !inDesired {
			continue
		}
		if !normalizedEqual(ir.Interface(dv), pv) {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}

// normalizedEqual compares plain values modulo numeric representation, since
// JSON state round-trips all numbers as float64.
func normalizedEqual(a, b any) bool {
	switch av := normalizeScalar(a).(type) {
	case float64:
		bv, ok := normalizeScalar(b).(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case nil:
		return b == nil
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !normalizedEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, present := bv[k]
			if !present || !normalizedEqual(v, other) {
				return false
			}
		}
		return true
	default:
		return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
	}
}

func normalizeScalar(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}
