package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackform-io/stackform/internal/ir"
	"github.com/stackform-io/stackform/internal/provider"
	"github.com/stackform-io/stackform/internal/state"
)

// fakeClient records every call in order and can be scripted to fail.
type fakeClient struct {
	mu      sync.Mutex
	calls   []string
	nextID  int
	failOn  map[string]error // keyed by "<op> <kind>.<name-ish>" lookup via attrs["name"] or id
	retries map[string]int   // remaining failures before success
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		failOn:  make(map[string]error),
		retries: make(map[string]int),
	}
}

func (f *fakeClient) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeClient) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeClient) scripted(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n, ok := f.retries[call]; ok && n > 0 {
		f.retries[call] = n - 1
		return provider.NewError("create", call, true, errors.New("throttled"))
	}
	return f.failOn[call]
}

func (f *fakeClient) Create(ctx context.Context, kind string, attrs map[string]any) (string, map[string]any, error) {
	name, _ := attrs["name"].(string)
	call := fmt.Sprintf("create %s/%s", kind, name)
	f.record(call)
	if err := f.scripted(call); err != nil {
		return "", nil, err
	}

	f.mu.Lock()
	f.nextID++
	id := fmt.Sprintf("id-%d", f.nextID)
	f.mu.Unlock()

	outputs := map[string]any{"id": id}
	for k, v := range attrs {
		outputs[k] = v
	}
	return id, outputs, nil
}

func (f *fakeClient) Update(ctx context.Context, kind string, id string, attrs map[string]any) (map[string]any, error) {
	call := fmt.Sprintf("update %s/%s", kind, id)
	f.record(call)
	if err := f.scripted(call); err != nil {
		return nil, err
	}
	outputs := map[string]any{"id": id}
	for k, v := range attrs {
		outputs[k] = v
	}
	return outputs, nil
}

func (f *fakeClient) Destroy(ctx context.Context, kind string, id string) error {
	call := fmt.Sprintf("destroy %s/%s", kind, id)
	f.record(call)
	return f.scripted(call)
}

func applyHarness(t *testing.T) (*Engine, *fakeClient, state.Store) {
	t.Helper()
	fake := newFakeClient()
	reg := provider.NewRegistry()
	reg.Register("test", func() provider.Client { return fake })
	require.NoError(t, reg.Load("test"))

	eng := New(reg)
	eng.Retry = &RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}

	store := state.NewLocalStore(filepath.Join(t.TempDir(), "state.json"))
	return eng, fake, store
}

func testRes(t *testing.T, name string, raw map[string]any, deps ...string) *ir.Resource {
	t.Helper()
	if raw == nil {
		raw = map[string]any{}
	}
	raw["name"] = name
	return res(t, "test.Thing", name, raw, deps...)
}

func TestApplyResolvesReferencesInOrder(t *testing.T) {
	eng, fake, store := applyHarness(t)
	ctx := context.Background()

	d := desired(t,
		testRes(t, "base", nil),
		testRes(t, "child", map[string]any{"baseId": "ref://test.Thing/base/id"}),
	)
	g, err := BuildGraph(d)
	require.NoError(t, err)

	applied, err := store.Load(ctx)
	require.NoError(t, err)
	cs, err := eng.Plan(d, applied, g)
	require.NoError(t, err)

	result, err := eng.Apply(ctx, cs, g, store)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Applied())

	calls := fake.recorded()
	require.Equal(t, []string{"create test.Thing/base", "create test.Thing/child"}, calls)

	// The child saw the base's real ID, not the ref literal.
	snap := store.Snapshot()
	child := snap.Get(ir.Address{Kind: "test.Thing", Name: "child"})
	require.NotNil(t, child)
	assert.Equal(t, "id-1", child.Outputs["baseId"])
	// Inputs keep the unresolved literal for future diffs.
	assert.Equal(t, "ref://test.Thing/base/id", child.Inputs["baseId"])
	// The dependency edge is recorded for destroy ordering.
	assert.Equal(t, []string{"test.Thing.base"}, child.Dependencies)
}

func TestApplyConvergesToNoChanges(t *testing.T) {
	eng, _, store := applyHarness(t)
	ctx := context.Background()

	d := desired(t,
		testRes(t, "base", nil),
		testRes(t, "child", map[string]any{"baseId": "ref://test.Thing/base/id"}),
	)
	g, err := BuildGraph(d)
	require.NoError(t, err)

	applied, _ := store.Load(ctx)
	cs, err := eng.Plan(d, applied, g)
	require.NoError(t, err)
	_, err = eng.Apply(ctx, cs, g, store)
	require.NoError(t, err)

	// Planning again over the committed state yields an empty change-set.
	cs, err = eng.Plan(d, store.Snapshot(), g)
	require.NoError(t, err)
	assert.True(t, cs.Empty())
}

func TestApplyFailureLeavesDependentsPending(t *testing.T) {
	eng, fake, store := applyHarness(t)
	ctx := context.Background()

	fake.failOn["create test.Thing/middle"] = provider.NewError("create", "test.Thing", false, errors.New("boom"))

	d := desired(t,
		testRes(t, "base", nil),
		testRes(t, "middle", map[string]any{"baseId": "ref://test.Thing/base/id"}),
		testRes(t, "leaf", map[string]any{"midId": "ref://test.Thing/middle/id"}),
	)
	g, err := BuildGraph(d)
	require.NoError(t, err)

	applied, _ := store.Load(ctx)
	cs, err := eng.Plan(d, applied, g)
	require.NoError(t, err)

	result, err := eng.Apply(ctx, cs, g, store)
	require.Error(t, err)
	assert.Equal(t, 1, result.Applied())
	assert.Equal(t, 1, result.Failed())
	assert.Equal(t, 1, result.Pending())

	// The committed prefix survives: base is in state, middle and leaf are not.
	snap := store.Snapshot()
	assert.NotNil(t, snap.Get(ir.Address{Kind: "test.Thing", Name: "base"}))
	assert.Nil(t, snap.Get(ir.Address{Kind: "test.Thing", Name: "middle"}))
	assert.Nil(t, snap.Get(ir.Address{Kind: "test.Thing", Name: "leaf"}))

	// A second apply picks up where the first stopped.
	delete(fake.failOn, "create test.Thing/middle")
	cs, err = eng.Plan(d, store.Snapshot(), g)
	require.NoError(t, err)
	require.Len(t, cs.Operations, 2)
	_, err = eng.Apply(ctx, cs, g, store)
	require.NoError(t, err)
	assert.NotNil(t, store.Snapshot().Get(ir.Address{Kind: "test.Thing", Name: "leaf"}))
}

func TestApplyRetriesTransientFailures(t *testing.T) {
	eng, fake, store := applyHarness(t)
	ctx := context.Background()

	fake.retries["create test.Thing/flaky"] = 2

	d := desired(t, testRes(t, "flaky", nil))
	g, err := BuildGraph(d)
	require.NoError(t, err)

	applied, _ := store.Load(ctx)
	cs, err := eng.Plan(d, applied, g)
	require.NoError(t, err)

	result, err := eng.Apply(ctx, cs, g, store)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied())
	// Two failures plus the success.
	assert.Len(t, fake.recorded(), 3)
}

func TestApplyRetryExhaustionFails(t *testing.T) {
	eng, fake, store := applyHarness(t)
	ctx := context.Background()

	fake.retries["create test.Thing/flaky"] = 10

	d := desired(t, testRes(t, "flaky", nil))
	g, err := BuildGraph(d)
	require.NoError(t, err)

	applied, _ := store.Load(ctx)
	cs, err := eng.Plan(d, applied, g)
	require.NoError(t, err)

	result, err := eng.Apply(ctx, cs, g, store)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries")
	assert.Equal(t, 1, result.Failed())
	// Initial attempt plus MaxRetries.
	assert.Len(t, fake.recorded(), 4)
}

func TestApplyReplaceDestroysThenCreates(t *testing.T) {
	eng, fake, store := applyHarness(t)
	ctx := context.Background()

	// Seed state directly through the store.
	require.NoError(t, store.Save(ctx, &ir.ResourceState{
		Kind: "test.Thing", Name: "base", ID: "old-1",
		Inputs: map[string]any{"name": "base", "size": "small"},
	}))

	d := desired(t, testRes(t, "base", map[string]any{"size": "large"}))
	g, err := BuildGraph(d)
	require.NoError(t, err)

	// Drive the replace through the change-set directly; how the planner
	// decides on replacement is covered in plan_test.
	cs := &ir.ChangeSet{
		Operations: []*ir.Operation{{
			Action:            ir.ActionReplace,
			Address:           ir.Address{Kind: "test.Thing", Name: "base"},
			Desired:           d.Get(ir.Address{Kind: "test.Thing", Name: "base"}),
			Prior:             store.Snapshot().Get(ir.Address{Kind: "test.Thing", Name: "base"}),
			ChangedAttributes: []string{"size"},
		}},
	}
	cs.Summary.Replace = 1

	result, err := eng.Apply(ctx, cs, g, store)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Applied())

	calls := fake.recorded()
	require.Equal(t, []string{"destroy test.Thing/old-1", "create test.Thing/base"}, calls)

	// The new identity replaced the old in state.
	entry := store.Snapshot().Get(ir.Address{Kind: "test.Thing", Name: "base"})
	require.NotNil(t, entry)
	assert.NotEqual(t, "old-1", entry.ID)
}

func TestApplyDestroyPhaseOrdering(t *testing.T) {
	eng, fake, store := applyHarness(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &ir.ResourceState{
		Kind: "test.Thing", Name: "base", ID: "base-1",
		Inputs: map[string]any{"name": "base"},
	}))
	require.NoError(t, store.Save(ctx, &ir.ResourceState{
		Kind: "test.Thing", Name: "child", ID: "child-1",
		Inputs:       map[string]any{"name": "child"},
		Dependencies: []string{"test.Thing.base"},
	}))

	d := desired(t)
	g, err := BuildGraph(d)
	require.NoError(t, err)

	cs, err := eng.Plan(d, store.Snapshot(), g)
	require.NoError(t, err)
	require.Len(t, cs.Operations, 2)

	result, err := eng.Apply(ctx, cs, g, store)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Applied())

	// The dependent is destroyed before its dependency even though both run
	// through the concurrent phase.
	calls := fake.recorded()
	require.Equal(t, []string{"destroy test.Thing/child-1", "destroy test.Thing/base-1"}, calls)

	assert.Len(t, store.Snapshot().Resources, 0)
}

func TestApplyCancellationLeavesPending(t *testing.T) {
	eng, _, store := applyHarness(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := desired(t, testRes(t, "a", nil), testRes(t, "b", nil))
	g, err := BuildGraph(d)
	require.NoError(t, err)

	applied, _ := store.Load(context.Background())
	cs, err := eng.Plan(d, applied, g)
	require.NoError(t, err)

	result, err := eng.Apply(ctx, cs, g, store)
	require.Error(t, err)
	assert.Equal(t, 2, result.Pending())
}

func TestApplyEmitsCallbacks(t *testing.T) {
	eng, _, store := applyHarness(t)
	ctx := context.Background()

	var mu sync.Mutex
	var events []string
	eng.Callback = func(e ApplyEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, fmt.Sprintf("%s %s", e.Status, e.Address))
	}

	d := desired(t, testRes(t, "a", nil))
	g, err := BuildGraph(d)
	require.NoError(t, err)

	applied, _ := store.Load(ctx)
	cs, err := eng.Plan(d, applied, g)
	require.NoError(t, err)
	_, err = eng.Apply(ctx, cs, g, store)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"started test.Thing.a", "completed test.Thing.a"}, events)
}
