package ir

// Action is the operation a change performs.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionReplace Action = "replace"
	ActionDestroy Action = "destroy"
)

// Operation is one planned change. Desired is nil for destroys; Prior is nil
// for creates.
type Operation struct {
	Action  Action
	Address Address
	Desired *Resource
	Prior   *ResourceState
	// ChangedAttributes names the attributes that differ, for rendering and
	// for replacement decisions.
	ChangedAttributes []string
	// Reason is set when the operation was not forced by a direct attribute
	// change, e.g. a dependency being replaced.
	Reason string
}

// ChangeSet is the ordered sequence of operations transforming applied state
// toward desired state. Destroys come first (dependents before dependencies),
// then creates, updates and replaces in dependency order. It is produced by
// the planner and consumed exactly once by the executor.
type ChangeSet struct {
	Operations []*Operation
	Summary    ChangeSummary
}

type ChangeSummary struct {
	Create  int
	Update  int
	Replace int
	Destroy int
	NoOp    int
}

// Empty reports whether the change-set contains no operations.
func (c *ChangeSet) Empty() bool {
	return len(c.Operations) == 0
}

// Destroys returns the destroy operations in order.
func (c *ChangeSet) Destroys() []*Operation {
	var out []*Operation
	for _, op := range c.Operations {
		if op.Action == ActionDestroy {
			out = append(out, op)
		}
	}
	return out
}

// CreatesAndUpdates returns the non-destroy operations in order.
func (c *ChangeSet) CreatesAndUpdates() []*Operation {
	var out []*Operation
	for _, op := range c.Operations {
		if op.Action != ActionDestroy {
			out = append(out, op)
		}
	}
	return out
}
