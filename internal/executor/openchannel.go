package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/scenrun/scenrun/internal/client"
	"github.com/scenrun/scenrun/internal/poll"
	"github.com/scenrun/scenrun/internal/scenario"
)

// openChannel opens a channel and waits for it to be confirmed opened
// with at least the requested deposit. Confirmation arrives only with
// a mined block, so the observe side is polled.
type openChannel struct {
	action *scenario.OpenChannel
	node   client.NodeClient
}

func newOpenChannel(action scenario.Action, deps Deps) (Executor, error) {
	a, ok := action.(*scenario.OpenChannel)
	if !ok {
		return nil, wrongAction(scenario.ActionOpenChannel, action)
	}
	return &openChannel{action: a, node: deps.Node}, nil
}

func (e *openChannel) Submit(ctx context.Context) error {
	return e.node.OpenChannel(ctx, e.action.From, e.action.To, e.action.TotalDeposit)
}

func (e *openChannel) Observe(ctx context.Context) (poll.Observation, error) {
	state, err := e.node.GetChannel(ctx, e.action.From, e.action.To)
	if errors.Is(err, client.ErrChannelNotFound) {
		return poll.Observation{Detail: "channel not yet visible"}, nil
	}
	if err != nil {
		return poll.Observation{}, err
	}

	done := state.Status == scenario.ChannelOpened && state.TotalDeposit >= e.action.TotalDeposit
	return poll.Observation{
		Done: done,
		Detail: fmt.Sprintf("channel %d->%d: %s (want opened, deposit >= %d)",
			e.action.From, e.action.To, state, e.action.TotalDeposit),
	}, nil
}

func init() {
	Register(scenario.ActionOpenChannel, newOpenChannel)
}
