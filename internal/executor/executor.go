// Package executor maps leaf actions onto calls against the node and
// PFS adapters. Every executor splits its work into a side-effecting
// Submit and an idempotent Observe used by the polling policy.
package executor

import (
	"context"
	"fmt"

	"github.com/scenrun/scenrun/internal/assert"
	"github.com/scenrun/scenrun/internal/client"
	"github.com/scenrun/scenrun/internal/poll"
	"github.com/scenrun/scenrun/internal/scenario"
)

// Executor runs one leaf action. Submit issues the side-effecting call
// once; Observe reads current state and decides whether the expected
// effect has occurred. Observe must be safe to call repeatedly.
type Executor interface {
	Submit(ctx context.Context) error
	Observe(ctx context.Context) (poll.Observation, error)
}

// Deps are the external collaborators an executor may call.
type Deps struct {
	Node client.NodeClient
	PFS  client.PFSClient
}

// NewFunc builds an executor for one action kind.
type NewFunc func(action scenario.Action, deps Deps) (Executor, error)

var registry = map[scenario.ActionKind]NewFunc{}

// Register adds an executor constructor for an action kind. It is
// called from init functions of the executor implementations.
func Register(kind scenario.ActionKind, fn NewFunc) {
	registry[kind] = fn
}

// New builds the executor matching the action's kind.
func New(action scenario.Action, deps Deps) (Executor, error) {
	fn, ok := registry[action.Kind()]
	if !ok {
		return nil, fmt.Errorf("no executor registered for action %q", action.Kind())
	}
	return fn(action, deps)
}

// SubmitError marks a failed side-effecting call. It is terminal for
// the action; submits are never retried.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string { return fmt.Sprintf("submit failed: %v", e.Err) }
func (e *SubmitError) Unwrap() error { return e.Err }

// MismatchError marks an observed state that can never satisfy the
// action's success predicate, so polling stops immediately.
type MismatchError struct {
	Result assert.Result
}

func (e *MismatchError) Error() string { return "assertion mismatch: " + e.Result.String() }

func wrongAction(kind scenario.ActionKind, action scenario.Action) error {
	return fmt.Errorf("executor %q got action of type %T", kind, action)
}
