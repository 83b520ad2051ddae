package executor

import (
	"context"
	"fmt"

	"github.com/scenrun/scenrun/internal/client"
	"github.com/scenrun/scenrun/internal/poll"
	"github.com/scenrun/scenrun/internal/scenario"
)

// waitBlocks waits until the chain height has advanced by the given
// number of blocks from the height at task start. Block production
// timing is external, so this is a delay-until-condition, not a sleep.
type waitBlocks struct {
	action *scenario.WaitBlocks
	node   client.NodeClient
	start  uint64
}

func newWaitBlocks(action scenario.Action, deps Deps) (Executor, error) {
	a, ok := action.(*scenario.WaitBlocks)
	if !ok {
		return nil, wrongAction(scenario.ActionWaitBlocks, action)
	}
	return &waitBlocks{action: a, node: deps.Node}, nil
}

func (e *waitBlocks) Submit(ctx context.Context) error {
	height, err := e.node.ChainHeight(ctx)
	if err != nil {
		return err
	}
	e.start = height
	return nil
}

func (e *waitBlocks) Observe(ctx context.Context) (poll.Observation, error) {
	height, err := e.node.ChainHeight(ctx)
	if err != nil {
		return poll.Observation{}, err
	}
	target := e.start + e.action.Blocks
	return poll.Observation{
		Done:   height >= target,
		Detail: fmt.Sprintf("chain height %d, waiting for %d", height, target),
	}, nil
}

func init() {
	Register(scenario.ActionWaitBlocks, newWaitBlocks)
}
