package engine

import (
	"fmt"
	"sort"

	"github.com/stackform-io/stackform/internal/ir"
)

// Graph is the directed dependency graph over resource identities. An edge
// A->B means A references B, so B must be created before A and destroyed
// after it. The graph owns edges only, never resources.
type Graph struct {
	nodes map[ir.Address]*graphNode
	// order is the topological creation order, dependencies first. Ties are
	// broken lexicographically by (kind, name), so the order is
	// deterministic for a given resource set.
	order    []ir.Address
	orderIdx map[ir.Address]int
}

type graphNode struct {
	addr       ir.Address
	deps       []ir.Address
	dependents []ir.Address
}

// BuildGraph scans every attribute value for references, merges explicit
// dependsOn declarations, verifies all edges target declared resources and
// rejects cycles. It must run before any planning step.
func BuildGraph(desired *ir.DesiredState) (*Graph, error) {
	g := newGraph()
	for _, addr := range desired.Addresses() {
		g.nodes[addr] = &graphNode{addr: addr}
	}

	for _, res := range desired.Resources() {
		addr := res.Address()
		for _, ref := range ir.AttributeReferences(res.Attributes) {
			target := ref.Target()
			if !desired.Contains(target) {
				return nil, &UnresolvedReferenceError{Referrer: addr, Target: target, Attribute: ref.Attribute}
			}
			g.addEdge(addr, target)
		}
		for _, dep := range res.DependsOn {
			if !desired.Contains(dep) {
				return nil, &UnresolvedReferenceError{Referrer: addr, Target: dep}
			}
			g.addEdge(addr, dep)
		}
	}

	if err := g.sort(); err != nil {
		return nil, err
	}
	return g, nil
}

// BuildGraphFromState builds a graph from the dependency edges recorded in
// applied state, so destroy ordering works for resources no longer declared.
// Edges to entries already gone from state are dropped.
func BuildGraphFromState(applied *ir.AppliedState) (*Graph, error) {
	g := newGraph()
	for _, addr := range applied.Addresses() {
		g.nodes[addr] = &graphNode{addr: addr}
	}

	for _, res := range applied.Resources {
		addr := res.Address()
		for _, depStr := range res.Dependencies {
			dep, err := ir.ParseAddress(depStr)
			if err != nil {
				return nil, fmt.Errorf("state entry %s: %w", addr, err)
			}
			if _, ok := g.nodes[dep]; ok {
				g.addEdge(addr, dep)
			}
		}
	}

	if err := g.sort(); err != nil {
		return nil, err
	}
	return g, nil
}

func newGraph() *Graph {
	return &Graph{
		nodes:    make(map[ir.Address]*graphNode),
		orderIdx: make(map[ir.Address]int),
	}
}

func (g *Graph) addEdge(from, to ir.Address) {
	if from == to {
		// Self-references surface as a one-node cycle during sort.
		g.nodes[from].deps = append(g.nodes[from].deps, to)
		return
	}
	node := g.nodes[from]
	for _, existing := range node.deps {
		if existing == to {
			return
		}
	}
	node.deps = append(node.deps, to)
	g.nodes[to].dependents = append(g.nodes[to].dependents, from)
}

// sort runs a depth-first traversal with an explicit recursion stack. Nodes
// and their dependencies are visited in (kind, name) order; the postorder is
// the creation order. Revisiting a node already on the stack is a cycle and
// fails with the full cycle path.
func (g *Graph) sort() error {
	const (
		unvisited = 0
		onStack   = 1
		done      = 2
	)
	state := make(map[ir.Address]int, len(g.nodes))
	var stack []ir.Address
	var order []ir.Address

	var visit func(addr ir.Address) error
	visit = func(addr ir.Address) error {
		switch state[addr] {
		case done:
			return nil
		case onStack:
			return &CycleError{Path: cyclePath(stack, addr)}
		}
		state[addr] = onStack
		stack = append(stack, addr)

		for _, dep := range sortedAddrs(g.nodes[addr].deps) {
			if err := visit(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		state[addr] = done
		order = append(order, addr)
		return nil
	}

	roots := make([]ir.Address, 0, len(g.nodes))
	for addr := range g.nodes {
		roots = append(roots, addr)
	}
	for _, addr := range sortedAddrs(roots) {
		if err := visit(addr); err != nil {
			return err
		}
	}

	g.order = order
	for i, addr := range order {
		g.orderIdx[addr] = i
	}
	return nil
}

// cyclePath slices the recursion stack from the first occurrence of start and
// closes the loop.
func cyclePath(stack []ir.Address, start ir.Address) []ir.Address {
	for i, addr := range stack {
		if addr == start {
			path := append([]ir.Address(nil), stack[i:]...)
			return append(path, start)
		}
	}
	return []ir.Address{start, start}
}

// CreationOrder returns all identities, dependencies first.
func (g *Graph) CreationOrder() []ir.Address {
	return g.order
}

// DestructionOrder returns all identities, dependents first.
func (g *Graph) DestructionOrder() []ir.Address {
	out := make([]ir.Address, len(g.order))
	for i, addr := range g.order {
		out[len(g.order)-1-i] = addr
	}
	return out
}

// Index returns the position of addr in creation order.
func (g *Graph) Index(addr ir.Address) int {
	if i, ok := g.orderIdx[addr]; ok {
		return i
	}
	return -1
}

// Dependencies returns the direct dependencies of addr, sorted.
func (g *Graph) Dependencies(addr ir.Address) []ir.Address {
	if node, ok := g.nodes[addr]; ok {
		return sortedAddrs(node.deps)
	}
	return nil
}

// Dependents returns the resources that directly depend on addr, sorted.
func (g *Graph) Dependents(addr ir.Address) []ir.Address {
	if node, ok := g.nodes[addr]; ok {
		return sortedAddrs(node.dependents)
	}
	return nil
}

// TransitiveDependents returns every resource reachable by following
// dependent edges from addr, sorted.
func (g *Graph) TransitiveDependents(addr ir.Address) []ir.Address {
	seen := make(map[ir.Address]bool)
	var walk func(a ir.Address)
	walk = func(a ir.Address) {
		for _, dep := range g.Dependents(a) {
			if !seen[dep] {
				seen[dep] = true
				walk(dep)
			}
		}
	}
	walk(addr)
	out := make([]ir.Address, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	return sortedAddrs(out)
}

func sortedAddrs(addrs []ir.Address) []ir.Address {
	out := append([]ir.Address(nil), addrs...)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
