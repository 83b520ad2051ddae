package executor

import (
	"context"
	"errors"

	"github.com/scenrun/scenrun/internal/assert"
	"github.com/scenrun/scenrun/internal/client"
	"github.com/scenrun/scenrun/internal/poll"
	"github.com/scenrun/scenrun/internal/scenario"
)

// assertPFSHistory polls the routing log of the PFS until it matches
// the expectation. The PFS records requests asynchronously, so the
// log may trail the payment that caused them.
type assertPFSHistory struct {
	action *scenario.AssertPFSHistory
	pfs    client.PFSClient
}

func newAssertPFSHistory(action scenario.Action, deps Deps) (Executor, error) {
	a, ok := action.(*scenario.AssertPFSHistory)
	if !ok {
		return nil, wrongAction(scenario.ActionAssertPFSHistory, action)
	}
	if deps.PFS == nil {
		return nil, errors.New("scenario asserts pfs history but no pfs url is configured")
	}
	return &assertPFSHistory{action: a, pfs: deps.PFS}, nil
}

func (e *assertPFSHistory) Submit(context.Context) error { return nil }

func (e *assertPFSHistory) Observe(ctx context.Context) (poll.Observation, error) {
	records, err := e.pfs.RoutingHistory(ctx, e.action.Source)
	if err != nil {
		return poll.Observation{}, err
	}

	res := assert.PFSHistory(e.action, records)
	return poll.Observation{Done: res.OK(), Detail: res.String()}, nil
}

func init() {
	Register(scenario.ActionAssertPFSHistory, newAssertPFSHistory)
}
