package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackform-io/stackform/internal/ir"
)

func res(t *testing.T, kind, name string, raw map[string]any, deps ...string) *ir.Resource {
	t.Helper()
	attrs, err := ir.ParseAttributes(raw)
	require.NoError(t, err)
	var depAddrs []ir.Address
	for _, d := range deps {
		addr, err := ir.ParseAddress(d)
		require.NoError(t, err)
		depAddrs = append(depAddrs, addr)
	}
	return &ir.Resource{Kind: kind, Name: name, Attributes: attrs, DependsOn: depAddrs}
}

func desired(t *testing.T, resources ...*ir.Resource) *ir.DesiredState {
	t.Helper()
	d, err := ir.NewDesiredState(resources)
	require.NoError(t, err)
	return d
}

func addrsToStrings(addrs []ir.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.String()
	}
	return out
}

func TestBuildGraphNetworkOrdering(t *testing.T) {
	d := desired(t,
		res(t, "aws.ec2.Vpc", "main", map[string]any{"cidrBlock": "10.0.0.0/16"}),
		res(t, "aws.ec2.Subnet", "a", map[string]any{
			"vpcId":     "ref://aws.ec2.Vpc/main/id",
			"cidrBlock": "10.0.1.0/24",
		}),
		res(t, "aws.ec2.InternetGateway", "gw", map[string]any{
			"vpcId": "ref://aws.ec2.Vpc/main/id",
		}),
		res(t, "aws.ec2.RouteTable", "public", map[string]any{
			"vpcId": "ref://aws.ec2.Vpc/main/id",
		}),
		res(t, "aws.ec2.Route", "default", map[string]any{
			"routeTableId":         "ref://aws.ec2.RouteTable/public/id",
			"destinationCidrBlock": "0.0.0.0/0",
			"gatewayId":            "ref://aws.ec2.InternetGateway/gw/id",
		}),
	)

	g, err := BuildGraph(d)
	require.NoError(t, err)

	order := g.CreationOrder()
	idx := make(map[string]int)
	for i, a := range order {
		idx[a.String()] = i
	}

	// Dependencies come before dependents.
	assert.Less(t, idx["aws.ec2.Vpc.main"], idx["aws.ec2.Subnet.a"])
	assert.Less(t, idx["aws.ec2.Vpc.main"], idx["aws.ec2.InternetGateway.gw"])
	assert.Less(t, idx["aws.ec2.RouteTable.public"], idx["aws.ec2.Route.default"])
	assert.Less(t, idx["aws.ec2.InternetGateway.gw"], idx["aws.ec2.Route.default"])

	// Destruction order is the exact reverse.
	destruction := g.DestructionOrder()
	require.Len(t, destruction, len(order))
	for i := range order {
		assert.Equal(t, order[i], destruction[len(order)-1-i])
	}
}

func TestBuildGraphDeterministicTieBreak(t *testing.T) {
	build := func() []string {
		d := desired(t,
			res(t, "null.Resource", "c", map[string]any{}),
			res(t, "null.Resource", "a", map[string]any{}),
			res(t, "null.Resource", "b", map[string]any{}),
		)
		g, err := BuildGraph(d)
		require.NoError(t, err)
		return addrsToStrings(g.CreationOrder())
	}

	first := build()
	assert.Equal(t, []string{"null.Resource.a", "null.Resource.b", "null.Resource.c"}, first)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, build())
	}
}

func TestBuildGraphUnresolvedReference(t *testing.T) {
	d := desired(t,
		res(t, "aws.ec2.Subnet", "a", map[string]any{
			"vpcId":     "ref://aws.ec2.Vpc/missing/id",
			"cidrBlock": "10.0.1.0/24",
		}),
	)

	_, err := BuildGraph(d)
	require.Error(t, err)

	var unresolved *UnresolvedReferenceError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "aws.ec2.Subnet.a", unresolved.Referrer.String())
	assert.Equal(t, "aws.ec2.Vpc.missing", unresolved.Target.String())
	assert.Equal(t, "id", unresolved.Attribute)
}

func TestBuildGraphUnresolvedDependsOn(t *testing.T) {
	d := desired(t,
		res(t, "null.Resource", "a", map[string]any{}, "null.Resource.ghost"),
	)

	_, err := BuildGraph(d)
	var unresolved *UnresolvedReferenceError
	require.ErrorAs(t, err, &unresolved)
	assert.Empty(t, unresolved.Attribute)
}

func TestBuildGraphCycle(t *testing.T) {
	d := desired(t,
		res(t, "null.Resource", "a", map[string]any{
			"triggers": map[string]any{"x": "ref://null.Resource/b/id"},
		}),
		res(t, "null.Resource", "b", map[string]any{
			"triggers": map[string]any{"x": "ref://null.Resource/a/id"},
		}),
	)

	_, err := BuildGraph(d)
	require.Error(t, err)

	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
	// First node repeated last.
	require.GreaterOrEqual(t, len(cycle.Path), 3)
	assert.Equal(t, cycle.Path[0], cycle.Path[len(cycle.Path)-1])
	assert.Contains(t, err.Error(), "dependency cycle:")
}

func TestBuildGraphSelfReference(t *testing.T) {
	d := desired(t,
		res(t, "null.Resource", "a", map[string]any{
			"triggers": map[string]any{"me": "ref://null.Resource/a/id"},
		}),
	)

	_, err := BuildGraph(d)
	var cycle *CycleError
	require.ErrorAs(t, err, &cycle)
}

func TestGraphDependents(t *testing.T) {
	d := desired(t,
		res(t, "aws.ec2.Vpc", "main", map[string]any{"cidrBlock": "10.0.0.0/16"}),
		res(t, "aws.ec2.Subnet", "a", map[string]any{
			"vpcId": "ref://aws.ec2.Vpc/main/id", "cidrBlock": "10.0.1.0/24",
		}),
		res(t, "aws.ec2.NatGateway", "nat", map[string]any{
			"subnetId":     "ref://aws.ec2.Subnet/a/id",
			"allocationId": "eipalloc-1",
		}),
	)

	g, err := BuildGraph(d)
	require.NoError(t, err)

	vpc := ir.Address{Kind: "aws.ec2.Vpc", Name: "main"}
	direct := addrsToStrings(g.Dependents(vpc))
	assert.Equal(t, []string{"aws.ec2.Subnet.a"}, direct)

	transitive := addrsToStrings(g.TransitiveDependents(vpc))
	assert.ElementsMatch(t, []string{"aws.ec2.Subnet.a", "aws.ec2.NatGateway.nat"}, transitive)
}

func TestBuildGraphFromStateDropsDanglingEdges(t *testing.T) {
	applied := ir.NewAppliedState()
	applied.Upsert(&ir.ResourceState{
		Kind: "aws.ec2.Subnet", Name: "a", ID: "subnet-1",
		Dependencies: []string{"aws.ec2.Vpc.gone"},
	})

	g, err := BuildGraphFromState(applied)
	require.NoError(t, err)
	assert.Len(t, g.CreationOrder(), 1)
}
