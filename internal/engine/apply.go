package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stackform-io/stackform/internal/ir"
	"github.com/stackform-io/stackform/internal/logging"
	"github.com/stackform-io/stackform/internal/provider"
	"github.com/stackform-io/stackform/internal/state"
)

// Status is the outcome of one operation after a run.
type Status string

const (
	// StatusApplied: the operation succeeded and its state is committed.
	StatusApplied Status = "applied"
	// StatusFailed: the operation failed after exhausting retries.
	StatusFailed Status = "failed"
	// StatusPending: the operation was never attempted, because the run
	// halted, a dependency failed, or the run was cancelled.
	StatusPending Status = "pending"
)

// Result reports one operation's outcome.
type Result struct {
	Address  ir.Address
	Action   ir.Action
	Status   Status
	Err      error
	Duration time.Duration
}

// ApplyResult lists per-operation results in change-set (dependency) order.
type ApplyResult struct {
	Results []*Result
}

func (r *ApplyResult) count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

func (r *ApplyResult) Applied() int { return r.count(StatusApplied) }
func (r *ApplyResult) Failed() int  { return r.count(StatusFailed) }
func (r *ApplyResult) Pending() int { return r.count(StatusPending) }

// ApplyEvent is a progress event during apply.
type ApplyEvent struct {
	Address  ir.Address
	Action   ir.Action
	Status   string // "started", "completed", "failed"
	Duration time.Duration
	Error    error
}

// ApplyCallback receives apply progress events.
type ApplyCallback func(event ApplyEvent)

// Apply executes a change-set. Operations with no mutual ordering constraint
// run concurrently under a bounded worker pool; any pair connected by a graph
// edge is serialized by gating each operation on completion of its
// dependencies. After every successful operation the resource's state is
// persisted before dependents are released, so a halted run always leaves a
// valid prefix of the desired graph committed.
//
// The change-set is consumed exactly once: destroys first (dependents before
// dependencies), then creates, updates and replaces (dependencies first).
// A fatal failure stops scheduling; in-flight operations finish and all
// remaining operations are reported pending.
func (e *Engine) Apply(ctx context.Context, cs *ir.ChangeSet, graph *Graph, store state.Store) (*ApplyResult, error) {
	results := make(map[ir.Address]*Result, len(cs.Operations))
	out := &ApplyResult{}
	for _, op := range cs.Operations {
		res := &Result{Address: op.Address, Action: op.Action, Status: StatusPending}
		results[op.Address] = res
		out.Results = append(out.Results, res)
	}

	destroys := cs.Destroys()
	firstErr := e.runPhase(ctx, destroys, destroyDeps(destroys), results, graph, store)

	if firstErr == nil && ctx.Err() == nil {
		creates := cs.CreatesAndUpdates()
		firstErr = e.runPhase(ctx, creates, createDeps(creates, graph), results, graph, store)
	}

	if firstErr == nil && ctx.Err() != nil {
		firstErr = fmt.Errorf("apply cancelled: %w", ctx.Err())
	}
	return out, firstErr
}

// destroyDeps inverts recorded dependency edges: the destroy of a resource
// waits for the destroys of everything that depends on it.
func destroyDeps(ops []*ir.Operation) map[ir.Address][]ir.Address {
	inSet := make(map[ir.Address]bool, len(ops))
	for _, op := range ops {
		inSet[op.Address] = true
	}
	deps := make(map[ir.Address][]ir.Address)
	for _, op := range ops {
		if op.Prior == nil {
			continue
		}
		for _, depStr := range op.Prior.Dependencies {
			dep, err := ir.ParseAddress(depStr)
			if err != nil || !inSet[dep] {
				continue
			}
			deps[dep] = append(deps[dep], op.Address)
		}
	}
	return deps
}

// createDeps gates each create/update on the operations covering its graph
// dependencies, when those are part of this change-set.
func createDeps(ops []*ir.Operation, graph *Graph) map[ir.Address][]ir.Address {
	inSet := make(map[ir.Address]bool, len(ops))
	for _, op := range ops {
		inSet[op.Address] = true
	}
	deps := make(map[ir.Address][]ir.Address)
	for _, op := range ops {
		for _, dep := range graph.Dependencies(op.Address) {
			if inSet[dep] {
				deps[op.Address] = append(deps[op.Address], dep)
			}
		}
	}
	return deps
}

// runPhase executes one group of operations with dependency gating: each
// operation waits until all of its listed dependencies completed. A failed
// dependency cascades, leaving dependents pending. Returns the first fatal
// error.
func (e *Engine) runPhase(ctx context.Context, ops []*ir.Operation, deps map[ir.Address][]ir.Address, results map[ir.Address]*Result, graph *Graph, store state.Store) error {
	if len(ops) == 0 {
		return nil
	}

	var (
		mu       sync.Mutex
		cond     = sync.NewCond(&mu)
		done     = make(map[ir.Address]bool)
		failed   = make(map[ir.Address]bool)
		firstErr error
	)

	parallelism := e.Parallelism
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	sem := make(chan struct{}, parallelism)

	// Wake waiters when the run is cancelled so nobody sits in cond.Wait.
	phaseDone := make(chan struct{})
	defer close(phaseDone)
	go func() {
		select {
		case <-ctx.Done():
			cond.Broadcast()
		case <-phaseDone:
		}
	}()

	var wg sync.WaitGroup
	for _, op := range ops {
		wg.Add(1)
		go func(op *ir.Operation) {
			defer wg.Done()

			mu.Lock()
			for {
				if firstErr != nil || ctx.Err() != nil {
					mu.Unlock()
					return
				}
				ready, depFailed := true, false
				for _, dep := range deps[op.Address] {
					if failed[dep] {
						depFailed = true
						break
					}
					if !done[dep] {
						ready = false
						break
					}
				}
				if depFailed {
					// Cascade so transitive dependents skip as well.
					failed[op.Address] = true
					mu.Unlock()
					cond.Broadcast()
					return
				}
				if ready {
					break
				}
				cond.Wait()
			}
			mu.Unlock()

			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				cond.Broadcast()
				return
			}

			start := time.Now()
			e.emit(ApplyEvent{Address: op.Address, Action: op.Action, Status: "started"})

			err := e.executeOperation(ctx, op, graph, store)

			mu.Lock()
			res := results[op.Address]
			res.Duration = time.Since(start)
			if err != nil {
				res.Status = StatusFailed
				res.Err = err
				failed[op.Address] = true
				if firstErr == nil {
					firstErr = fmt.Errorf("%s %s: %w", op.Action, op.Address, err)
				}
			} else {
				res.Status = StatusApplied
				done[op.Address] = true
			}
			mu.Unlock()
			cond.Broadcast()

			if err != nil {
				e.emit(ApplyEvent{Address: op.Address, Action: op.Action, Status: "failed", Duration: time.Since(start), Error: err})
			} else {
				e.emit(ApplyEvent{Address: op.Address, Action: op.Action, Status: "completed", Duration: time.Since(start)})
			}
		}(op)
	}
	wg.Wait()

	return firstErr
}

// executeOperation performs one operation against the provider and commits
// the resulting state entry before returning.
func (e *Engine) executeOperation(ctx context.Context, op *ir.Operation, graph *Graph, store state.Store) error {
	kind := op.Address.Kind
	logging.Debug("applying operation", "address", op.Address, "action", op.Action)

	client, err := e.providers.ForKind(kind)
	if err != nil {
		return err
	}

	if op.Action == ir.ActionDestroy {
		if op.Prior != nil && op.Prior.ID != "" {
			err := e.callWithRetry(ctx, func(c context.Context) error {
				return client.Destroy(c, kind, op.Prior.ID)
			})
			if err != nil {
				return err
			}
		}
		return store.Delete(ctx, op.Address)
	}

	attrs, err := resolveAttributes(op.Desired, store.Snapshot())
	if err != nil {
		return err
	}

	var id string
	var outputs map[string]any

	switch op.Action {
	case ir.ActionCreate:
		err = e.callWithRetry(ctx, func(c context.Context) error {
			var callErr error
			id, outputs, callErr = client.Create(c, kind, attrs)
			return callErr
		})
	case ir.ActionUpdate:
		id = op.Prior.ID
		err = e.callWithRetry(ctx, func(c context.Context) error {
			var callErr error
			outputs, callErr = client.Update(c, kind, id, attrs)
			return callErr
		})
	case ir.ActionReplace:
		// Destroy-then-create under the same identity.
		if op.Prior != nil && op.Prior.ID != "" {
			err = e.callWithRetry(ctx, func(c context.Context) error {
				return client.Destroy(c, kind, op.Prior.ID)
			})
			if err != nil {
				return err
			}
			if err := store.Delete(ctx, op.Address); err != nil {
				return err
			}
		}
		err = e.callWithRetry(ctx, func(c context.Context) error {
			var callErr error
			id, outputs, callErr = client.Create(c, kind, attrs)
			return callErr
		})
	default:
		return fmt.Errorf("unsupported action %q", op.Action)
	}
	if err != nil {
		return err
	}

	var depStrs []string
	for _, dep := range graph.Dependencies(op.Address) {
		depStrs = append(depStrs, dep.String())
	}

	return store.Save(ctx, &ir.ResourceState{
		Kind:         op.Desired.Kind,
		Name:         op.Desired.Name,
		ID:           id,
		Inputs:       interfaceAttributes(op.Desired.Attributes),
		Outputs:      outputs,
		Dependencies: depStrs,
	})
}

// callWithRetry runs one provider call with a per-attempt timeout and the
// engine's retry policy.
func (e *Engine) callWithRetry(ctx context.Context, fn func(context.Context) error) error {
	timeout := e.OperationTimeout
	if timeout <= 0 {
		timeout = DefaultOperationTimeout
	}
	return RetryWithBackoff(ctx, e.Retry, func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return fn(attemptCtx)
	}, provider.IsRetryable)
}

func (e *Engine) emit(event ApplyEvent) {
	if e.Callback != nil {
		e.Callback(event)
	}
}

// resolveAttributes substitutes every Reference with the referenced
// attribute's value from the applied-state snapshot. Graph ordering
// guarantees the dependency was committed before its dependents run.
func resolveAttributes(res *ir.Resource, snap *ir.AppliedState) (map[string]any, error) {
	out := make(map[string]any, len(res.Attributes))
	for name, v := range res.Attributes {
		resolved, err := resolveValue(v, snap)
		if err != nil {
			return nil, fmt.Errorf("resource %s attribute %q: %w", res.Address(), name, err)
		}
		out[name] = resolved
	}
	return out, nil
}

func resolveValue(v ir.Value, snap *ir.AppliedState) (any, error) {
	switch val := v.(type) {
	case ir.Reference:
		target := snap.Get(val.Target())
		if target == nil {
			return nil, fmt.Errorf("referenced resource %s has not been applied", val.Target())
		}
		return target.Attribute(val.Attribute)
	case ir.List:
		out := make([]any, len(val))
		for i, item := range val {
			resolved, err := resolveValue(item, snap)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	case ir.Map:
		out := make(map[string]any, len(val))
		for k, item := range val {
			resolved, err := resolveValue(item, snap)
			if err != nil {
				return nil, err
			}
			out[k] = resolved
		}
		return out, nil
	default:
		return ir.Interface(v), nil
	}
}

func interfaceAttributes(attrs map[string]ir.Value) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = ir.Interface(v)
	}
	return out
}
