package executor

import (
	"context"
	"errors"

	"github.com/scenrun/scenrun/internal/assert"
	"github.com/scenrun/scenrun/internal/client"
	"github.com/scenrun/scenrun/internal/poll"
	"github.com/scenrun/scenrun/internal/scenario"
)

// assertChannel polls the observed channel state until it matches the
// expectation. Off-chain balances converge after a transfer settles,
// so transient mismatches are retried within the budget.
type assertChannel struct {
	action *scenario.AssertChannel
	node   client.NodeClient
}

func newAssertChannel(action scenario.Action, deps Deps) (Executor, error) {
	a, ok := action.(*scenario.AssertChannel)
	if !ok {
		return nil, wrongAction(scenario.ActionAssertChannel, action)
	}
	return &assertChannel{action: a, node: deps.Node}, nil
}

func (e *assertChannel) Submit(context.Context) error { return nil }

func (e *assertChannel) Observe(ctx context.Context) (poll.Observation, error) {
	state, err := e.node.GetChannel(ctx, e.action.From, e.action.To)
	if errors.Is(err, client.ErrChannelNotFound) {
		return poll.Observation{Detail: "channel not found"}, nil
	}
	if err != nil {
		return poll.Observation{}, err
	}

	res := assert.Channel(e.action, state)
	return poll.Observation{Done: res.OK(), Detail: res.String()}, nil
}

func init() {
	Register(scenario.ActionAssertChannel, newAssertChannel)
}
