package scenario

import "fmt"

// NodeRef is the logical index of a managed node instance (0..N-1).
// Resolution to a network address is owned by the node manager.
type NodeRef int

// ChannelStatus is the lifecycle state of a payment channel.
type ChannelStatus string

const (
	ChannelOpened  ChannelStatus = "opened"
	ChannelClosed  ChannelStatus = "closed"
	ChannelSettled ChannelStatus = "settled"
)

// TaskKind discriminates the task tree variants.
type TaskKind int

const (
	KindSerial TaskKind = iota
	KindParallel
	KindAction
)

func (k TaskKind) String() string {
	switch k {
	case KindSerial:
		return "serial"
	case KindParallel:
		return "parallel"
	case KindAction:
		return "action"
	default:
		return "unknown"
	}
}

// Task is a node in the scenario task tree. A task is either a group
// (serial or parallel) owning an ordered list of children, or a leaf
// carrying a typed action. The tree is built once by the loader and is
// immutable afterwards.
type Task struct {
	// Kind discriminates between group and leaf tasks.
	Kind TaskKind
	// Name identifies the task in logs and the run report.
	Name string
	// Children holds the ordered child tasks of a group. Empty for leaves.
	Children []*Task
	// Action is the typed leaf action. Nil for groups.
	Action Action
}

// IsGroup returns true for serial and parallel tasks.
func (t *Task) IsGroup() bool {
	return t.Kind == KindSerial || t.Kind == KindParallel
}

// Walk visits the task and all descendants depth-first, in definition
// order. It is the only traversal the model exposes; there is no
// mutation API.
func (t *Task) Walk(fn func(*Task)) {
	fn(t)
	for _, c := range t.Children {
		c.Walk(fn)
	}
}

// Size returns the number of tasks in the subtree rooted at t.
func (t *Task) Size() int {
	n := 0
	t.Walk(func(*Task) { n++ })
	return n
}

// String returns a short description used in logs.
func (t *Task) String() string {
	if t.IsGroup() {
		return fmt.Sprintf("%s(%d)", t.Kind, len(t.Children))
	}
	return t.Name
}

// validate checks the structural invariants of the subtree: groups have
// at least one child and leaves carry a valid action.
func (t *Task) validate() error {
	switch t.Kind {
	case KindSerial, KindParallel:
		if len(t.Children) == 0 {
			return &MalformedTaskError{Task: t.Kind.String(), Reason: "group has no tasks"}
		}
		for _, c := range t.Children {
			if err := c.validate(); err != nil {
				return err
			}
		}
		return nil
	case KindAction:
		if t.Action == nil {
			return &MalformedTaskError{Task: t.Name, Reason: "missing action"}
		}
		return t.Action.Validate()
	default:
		return &MalformedTaskError{Task: t.Name, Reason: fmt.Sprintf("unknown task kind %d", t.Kind)}
	}
}
