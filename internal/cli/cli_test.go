package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackform-io/stackform/internal/eval"
	"github.com/stackform-io/stackform/internal/ir"
)

func TestLoadRequiredProvidersFromState(t *testing.T) {
	// A resource recorded in state but no longer declared still needs its
	// provider loaded, otherwise the destroy has nothing to call.
	registry := newRegistry()

	applied := ir.NewAppliedState()
	applied.Upsert(&ir.ResourceState{
		Kind: "null.Resource",
		Name: "orphan",
		ID:   "null-1",
	})

	err := loadRequiredProviders(registry, nil, applied)
	require.NoError(t, err)

	client, err := registry.Get("null")
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestLoadRequiredProvidersUnknownProvider(t *testing.T) {
	registry := newRegistry()

	applied := ir.NewAppliedState()
	applied.Upsert(&ir.ResourceState{
		Kind: "bogus.Thing",
		Name: "x",
		ID:   "b-1",
	})

	err := loadRequiredProviders(registry, nil, applied)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bogus")
}

func TestValidationAcceptsDanglingReference(t *testing.T) {
	// validate only schema-checks the configuration; a reference to an
	// undeclared resource is a plan-time error, not a validation error.
	cfg := &eval.Config{
		Resources: []*eval.ResourceDecl{
			{
				Kind: "null.Resource",
				Name: "a",
				Attributes: map[string]any{
					"triggers": map[string]any{
						"dep": "ref://null.Resource/missing/id",
					},
				},
			},
		},
	}

	desired, err := eval.BuildDesiredState(cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, desired.Len())
}

func TestActionSymbol(t *testing.T) {
	tests := []struct {
		action ir.Action
		symbol string
		color  string
	}{
		{ir.ActionCreate, "+", colorGreen},
		{ir.ActionDestroy, "-", colorRed},
		{ir.ActionReplace, "-/+", colorYellow},
		{ir.ActionUpdate, "~", colorYellow},
	}

	for _, tt := range tests {
		symbol, color := actionSymbol(tt.action)
		assert.Equal(t, tt.symbol, symbol)
		assert.Equal(t, tt.color, color)
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "null", formatValue(nil))
	assert.Equal(t, `"web"`, formatValue("web"))
	assert.Equal(t, "3", formatValue(int64(3)))
	assert.Equal(t, "true", formatValue(true))
}
