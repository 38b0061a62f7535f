package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("aws.ec2.Vpc.main")
	require.NoError(t, err)
	assert.Equal(t, "aws.ec2.Vpc", addr.Kind)
	assert.Equal(t, "main", addr.Name)
	assert.Equal(t, "aws.ec2.Vpc.main", addr.String())

	for _, s := range []string{"", "noseparator", ".leading", "trailing."} {
		_, err := ParseAddress(s)
		assert.Error(t, err, s)
	}
}

func TestNewDesiredStateRejectsDuplicates(t *testing.T) {
	_, err := NewDesiredState([]*Resource{
		{Kind: "null.Resource", Name: "a"},
		{Kind: "null.Resource", Name: "a"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "null.Resource.a")
}

func TestDesiredStateOrdering(t *testing.T) {
	d, err := NewDesiredState([]*Resource{
		{Kind: "null.Resource", Name: "b"},
		{Kind: "aws.ec2.Vpc", Name: "z"},
		{Kind: "null.Resource", Name: "a"},
	})
	require.NoError(t, err)

	addrs := d.Addresses()
	require.Len(t, addrs, 3)
	assert.Equal(t, "aws.ec2.Vpc.z", addrs[0].String())
	assert.Equal(t, "null.Resource.a", addrs[1].String())
	assert.Equal(t, "null.Resource.b", addrs[2].String())

	assert.True(t, d.Contains(Address{Kind: "aws.ec2.Vpc", Name: "z"}))
	assert.Nil(t, d.Get(Address{Kind: "aws.ec2.Vpc", Name: "missing"}))
}

func TestAppliedStateUpsertAndCopy(t *testing.T) {
	s := NewAppliedState()
	s.Upsert(&ResourceState{Kind: "null.Resource", Name: "a", ID: "1", Inputs: map[string]any{"k": "v"}})
	s.Upsert(&ResourceState{Kind: "null.Resource", Name: "a", ID: "2"})

	require.Len(t, s.Resources, 1)
	assert.Equal(t, "2", s.Resources[0].ID)

	cp := s.Copy()
	cp.Remove(Address{Kind: "null.Resource", Name: "a"})
	assert.Len(t, s.Resources, 1)
	assert.Len(t, cp.Resources, 0)
}

func TestResourceStateAttribute(t *testing.T) {
	rs := &ResourceState{
		Kind: "aws.ec2.Vpc", Name: "main", ID: "vpc-123",
		Inputs:  map[string]any{"cidrBlock": "10.0.0.0/16"},
		Outputs: map[string]any{"cidrBlock": "10.0.0.0/16", "arn": "arn:vpc"},
	}

	// Outputs win, inputs fall back, id is synthesized.
	v, err := rs.Attribute("arn")
	require.NoError(t, err)
	assert.Equal(t, "arn:vpc", v)

	v, err = rs.Attribute("cidrBlock")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.0/16", v)

	v, err = rs.Attribute("id")
	require.NoError(t, err)
	assert.Equal(t, "vpc-123", v)

	_, err = rs.Attribute("missing")
	assert.Error(t, err)
}
