package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReference(t *testing.T) {
	// 1. Plain string is not a reference
	_, isRef, err := ParseReference("vpc-123")
	require.NoError(t, err)
	assert.False(t, isRef)

	// 2. Valid reference
	ref, isRef, err := ParseReference("ref://aws.ec2.Vpc/main/id")
	require.NoError(t, err)
	assert.True(t, isRef)
	assert.Equal(t, "aws.ec2.Vpc", ref.Kind)
	assert.Equal(t, "main", ref.Name)
	assert.Equal(t, "id", ref.Attribute)
	assert.Equal(t, Address{Kind: "aws.ec2.Vpc", Name: "main"}, ref.Target())

	// 3. Malformed references
	for _, s := range []string{"ref://", "ref://aws.ec2.Vpc/main", "ref://aws.ec2.Vpc//id", "ref://a/b/c/d"} {
		_, isRef, err := ParseReference(s)
		assert.True(t, isRef, s)
		assert.Error(t, err, s)
	}
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(map[string]any{
		"name":    "web",
		"count":   3,
		"enabled": true,
		"subnets": []any{"ref://aws.ec2.Subnet/a/id", "subnet-plain"},
	})
	require.NoError(t, err)

	m, ok := v.(Map)
	require.True(t, ok)
	assert.Equal(t, String("web"), m["name"])
	assert.Equal(t, Number(3), m["count"])
	assert.Equal(t, Bool(true), m["enabled"])

	list, ok := m["subnets"].(List)
	require.True(t, ok)
	assert.Equal(t, Reference{Kind: "aws.ec2.Subnet", Name: "a", Attribute: "id"}, list[0])
	assert.Equal(t, String("subnet-plain"), list[1])

	// Malformed reference inside a nested value surfaces as an error.
	_, err = ParseValue([]any{"ref://broken"})
	assert.Error(t, err)
}

func TestInterfaceRoundTrip(t *testing.T) {
	v, err := ParseValue(map[string]any{
		"vpcId": "ref://aws.ec2.Vpc/main/id",
		"ports": []any{80, 443},
		"size":  2.5,
	})
	require.NoError(t, err)

	out, ok := Interface(v).(map[string]any)
	require.True(t, ok)
	// References render back as their literal form.
	assert.Equal(t, "ref://aws.ec2.Vpc/main/id", out["vpcId"])
	// Whole numbers come back as integers.
	assert.Equal(t, []any{int64(80), int64(443)}, out["ports"])
	assert.Equal(t, 2.5, out["size"])
}

func TestAttributeReferencesDeterministicOrder(t *testing.T) {
	attrs, err := ParseAttributes(map[string]any{
		"b": "ref://aws.ec2.Subnet/b/id",
		"a": "ref://aws.ec2.Subnet/a/id",
		"c": []any{"ref://aws.ec2.Subnet/a/id"},
	})
	require.NoError(t, err)

	// Collected in attribute key order, nested values walked in place.
	refs := AttributeReferences(attrs)
	require.Len(t, refs, 3)
	assert.Equal(t, "a", refs[0].Name)
	assert.Equal(t, "b", refs[1].Name)
	assert.Equal(t, "a", refs[2].Name)
}

func TestValueEqual(t *testing.T) {
	a, err := ParseValue(map[string]any{"x": []any{1, "two"}, "ref": "ref://k.a/n/id"})
	require.NoError(t, err)
	b, err := ParseValue(map[string]any{"x": []any{1, "two"}, "ref": "ref://k.a/n/id"})
	require.NoError(t, err)
	c, err := ParseValue(map[string]any{"x": []any{1, "three"}, "ref": "ref://k.a/n/id"})
	require.NoError(t, err)

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.False(t, Equal(String("1"), Number(1)))
}
