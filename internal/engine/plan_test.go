package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackform-io/stackform/internal/ir"
	"github.com/stackform-io/stackform/internal/provider"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	reg := provider.NewRegistry()
	return New(reg)
}

func planFor(t *testing.T, d *ir.DesiredState, applied *ir.AppliedState) *ir.ChangeSet {
	t.Helper()
	g, err := BuildGraph(d)
	require.NoError(t, err)
	cs, err := newTestEngine(t).Plan(d, applied, g)
	require.NoError(t, err)
	return cs
}

func TestPlanCreate(t *testing.T) {
	d := desired(t,
		res(t, "aws.ec2.Vpc", "main", map[string]any{"cidrBlock": "10.0.0.0/16"}),
	)

	cs := planFor(t, d, ir.NewAppliedState())
	require.Len(t, cs.Operations, 1)
	assert.Equal(t, ir.ActionCreate, cs.Operations[0].Action)
	assert.Equal(t, 1, cs.Summary.Create)
}

func TestPlanNoChanges(t *testing.T) {
	d := desired(t,
		res(t, "aws.ec2.Vpc", "main", map[string]any{"cidrBlock": "10.0.0.0/16", "tags": map[string]any{"Name": "main"}}),
	)
	applied := ir.NewAppliedState()
	applied.Upsert(&ir.ResourceState{
		Kind: "aws.ec2.Vpc", Name: "main", ID: "vpc-1",
		Inputs: map[string]any{"cidrBlock": "10.0.0.0/16", "tags": map[string]any{"Name": "main"}},
	})

	cs := planFor(t, d, applied)
	assert.True(t, cs.Empty())
	assert.Equal(t, 1, cs.Summary.NoOp)

	// Planning is idempotent: same inputs, same result.
	again := planFor(t, d, applied)
	assert.True(t, again.Empty())
}

func TestPlanUpdateVersusReplace(t *testing.T) {
	applied := ir.NewAppliedState()
	applied.Upsert(&ir.ResourceState{
		Kind: "aws.ec2.Vpc", Name: "main", ID: "vpc-1",
		Inputs: map[string]any{"cidrBlock": "10.0.0.0/16"},
	})

	// 1. Mutable attribute change plans an update.
	d := desired(t,
		res(t, "aws.ec2.Vpc", "main", map[string]any{"cidrBlock": "10.0.0.0/16", "tags": map[string]any{"Name": "x"}}),
	)
	cs := planFor(t, d, applied)
	require.Len(t, cs.Operations, 1)
	assert.Equal(t, ir.ActionUpdate, cs.Operations[0].Action)
	assert.Equal(t, []string{"tags"}, cs.Operations[0].ChangedAttributes)

	// 2. Immutable attribute change plans a replace.
	d = desired(t,
		res(t, "aws.ec2.Vpc", "main", map[string]any{"cidrBlock": "10.9.0.0/16"}),
	)
	cs = planFor(t, d, applied)
	require.Len(t, cs.Operations, 1)
	assert.Equal(t, ir.ActionReplace, cs.Operations[0].Action)
}

func TestPlanNumericNormalization(t *testing.T) {
	// JSON state round-trips numbers as float64; that alone is not a change.
	d := desired(t,
		res(t, "aws.elbv2.TargetGroup", "web", map[string]any{
			"name": "web", "port": 8080, "protocol": "HTTP", "vpcId": "vpc-1",
		}),
	)
	applied := ir.NewAppliedState()
	applied.Upsert(&ir.ResourceState{
		Kind: "aws.elbv2.TargetGroup", Name: "web", ID: "tg-1",
		Inputs: map[string]any{"name": "web", "port": float64(8080), "protocol": "HTTP", "vpcId": "vpc-1"},
	})

	cs := planFor(t, d, applied)
	assert.True(t, cs.Empty())
}

func TestPlanReferenceComparesByLiteral(t *testing.T) {
	// A reference only counts as changed when it points somewhere new,
	// not when the referenced resource's value drifts.
	d := desired(t,
		res(t, "aws.ec2.Vpc", "main", map[string]any{"cidrBlock": "10.0.0.0/16"}),
		res(t, "aws.ec2.Subnet", "a", map[string]any{
			"vpcId": "ref://aws.ec2.Vpc/main/id", "cidrBlock": "10.0.1.0/24",
		}),
	)
	applied := ir.NewAppliedState()
	applied.Upsert(&ir.ResourceState{
		Kind: "aws.ec2.Vpc", Name: "main", ID: "vpc-1",
		Inputs: map[string]any{"cidrBlock": "10.0.0.0/16"},
	})
	applied.Upsert(&ir.ResourceState{
		Kind: "aws.ec2.Subnet", Name: "a", ID: "subnet-1",
		Inputs: map[string]any{"vpcId": "ref://aws.ec2.Vpc/main/id", "cidrBlock": "10.0.1.0/24"},
	})

	cs := planFor(t, d, applied)
	assert.True(t, cs.Empty())
}

func TestPlanReplacementTaintsDependents(t *testing.T) {
	d := desired(t,
		res(t, "aws.ec2.Vpc", "main", map[string]any{"cidrBlock": "10.9.0.0/16"}),
		res(t, "aws.ec2.Subnet", "a", map[string]any{
			"vpcId": "ref://aws.ec2.Vpc/main/id", "cidrBlock": "10.9.1.0/24",
		}),
		res(t, "aws.ec2.NatGateway", "nat", map[string]any{
			"subnetId": "ref://aws.ec2.Subnet/a/id", "allocationId": "eipalloc-1",
		}),
	)
	applied := ir.NewAppliedState()
	applied.Upsert(&ir.ResourceState{
		Kind: "aws.ec2.Vpc", Name: "main", ID: "vpc-1",
		Inputs: map[string]any{"cidrBlock": "10.0.0.0/16"},
	})
	applied.Upsert(&ir.ResourceState{
		Kind: "aws.ec2.Subnet", Name: "a", ID: "subnet-1",
		Inputs: map[string]any{"vpcId": "ref://aws.ec2.Vpc/main/id", "cidrBlock": "10.9.1.0/24"},
	})
	applied.Upsert(&ir.ResourceState{
		Kind: "aws.ec2.NatGateway", Name: "nat", ID: "nat-1",
		Inputs: map[string]any{"subnetId": "ref://aws.ec2.Subnet/a/id", "allocationId": "eipalloc-1"},
	})

	cs := planFor(t, d, applied)
	actions := make(map[string]ir.Action)
	reasons := make(map[string]string)
	for _, op := range cs.Operations {
		actions[op.Address.String()] = op.Action
		reasons[op.Address.String()] = op.Reason
	}

	// The VPC replacement spreads through the subnet's immutable vpcId into
	// the NAT gateway's immutable subnetId.
	assert.Equal(t, ir.ActionReplace, actions["aws.ec2.Vpc.main"])
	assert.Equal(t, ir.ActionReplace, actions["aws.ec2.Subnet.a"])
	assert.Equal(t, ir.ActionReplace, actions["aws.ec2.NatGateway.nat"])
	assert.Contains(t, reasons["aws.ec2.Subnet.a"], "aws.ec2.Vpc.main")
	assert.Contains(t, reasons["aws.ec2.NatGateway.nat"], "aws.ec2.Subnet.a")
	assert.Equal(t, 3, cs.Summary.Replace)
}

func TestPlanReplacementTaintThroughMutableAttrIsUpdate(t *testing.T) {
	// aws.autoscaling.Group.launchTemplateId is mutable, so a launch
	// template replacement only updates the group.
	d := desired(t,
		res(t, "aws.ec2.LaunchTemplate", "web", map[string]any{
			"name": "web2", "imageId": "ami-1", "instanceType": "t3.micro",
		}),
		res(t, "aws.autoscaling.Group", "web", map[string]any{
			"name": "web", "minSize": 1, "maxSize": 3,
			"launchTemplateId": "ref://aws.ec2.LaunchTemplate/web/id",
			"subnetIds":        []any{"subnet-1"},
		}),
	)
	applied := ir.NewAppliedState()
	applied.Upsert(&ir.ResourceState{
		Kind: "aws.ec2.LaunchTemplate", Name: "web", ID: "lt-1",
		Inputs: map[string]any{"name": "web1", "imageId": "ami-1", "instanceType": "t3.micro"},
	})
	applied.Upsert(&ir.ResourceState{
		Kind: "aws.autoscaling.Group", Name: "web", ID: "web",
		Inputs: map[string]any{
			"name": "web", "minSize": float64(1), "maxSize": float64(3),
			"launchTemplateId": "ref://aws.ec2.LaunchTemplate/web/id",
			"subnetIds":        []any{"subnet-1"},
		},
	})

	cs := planFor(t, d, applied)
	actions := make(map[string]ir.Action)
	for _, op := range cs.Operations {
		actions[op.Address.String()] = op.Action
	}
	assert.Equal(t, ir.ActionReplace, actions["aws.ec2.LaunchTemplate.web"])
	assert.Equal(t, ir.ActionUpdate, actions["aws.autoscaling.Group.web"])
}

func TestPlanDestroyOrdering(t *testing.T) {
	// Nothing declared; state still holds a VPC and its subnet.
	d := desired(t)
	applied := ir.NewAppliedState()
	applied.Upsert(&ir.ResourceState{
		Kind: "aws.ec2.Vpc", Name: "main", ID: "vpc-1",
		Inputs: map[string]any{"cidrBlock": "10.0.0.0/16"},
	})
	applied.Upsert(&ir.ResourceState{
		Kind: "aws.ec2.Subnet", Name: "a", ID: "subnet-1",
		Inputs:       map[string]any{"vpcId": "vpc-1", "cidrBlock": "10.0.1.0/24"},
		Dependencies: []string{"aws.ec2.Vpc.main"},
	})

	cs := planFor(t, d, applied)
	require.Len(t, cs.Operations, 2)
	// Dependent first, dependency last.
	assert.Equal(t, ir.ActionDestroy, cs.Operations[0].Action)
	assert.Equal(t, "aws.ec2.Subnet.a", cs.Operations[0].Address.String())
	assert.Equal(t, "aws.ec2.Vpc.main", cs.Operations[1].Address.String())
	assert.Equal(t, 2, cs.Summary.Destroy)
}

func TestPlanDestroysPrecedeCreates(t *testing.T) {
	d := desired(t,
		res(t, "aws.sns.Topic", "alerts", map[string]any{"name": "alerts"}),
	)
	applied := ir.NewAppliedState()
	applied.Upsert(&ir.ResourceState{
		Kind: "aws.s3.Bucket", Name: "old", ID: "old-bucket",
		Inputs: map[string]any{"bucket": "old-bucket"},
	})

	cs := planFor(t, d, applied)
	require.Len(t, cs.Operations, 2)
	assert.Equal(t, ir.ActionDestroy, cs.Operations[0].Action)
	assert.Equal(t, ir.ActionCreate, cs.Operations[1].Action)
}

func TestPlanRemovedAttributeIsChange(t *testing.T) {
	d := desired(t,
		res(t, "aws.ec2.Vpc", "main", map[string]any{"cidrBlock": "10.0.0.0/16"}),
	)
	applied := ir.NewAppliedState()
	applied.Upsert(&ir.ResourceState{
		Kind: "aws.ec2.Vpc", Name: "main", ID: "vpc-1",
		Inputs: map[string]any{"cidrBlock": "10.0.0.0/16", "tags": map[string]any{"Name": "x"}},
	})

	cs := planFor(t, d, applied)
	require.Len(t, cs.Operations, 1)
	assert.Equal(t, ir.ActionUpdate, cs.Operations[0].Action)
	assert.Equal(t, []string{"tags"}, cs.Operations[0].ChangedAttributes)
}
