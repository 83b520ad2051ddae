package executor

import (
	"context"
	"fmt"

	"github.com/scenrun/scenrun/internal/assert"
	"github.com/scenrun/scenrun/internal/client"
	"github.com/scenrun/scenrun/internal/poll"
	"github.com/scenrun/scenrun/internal/scenario"
)

// transfer submits one payment and checks the sender's HTTP response
// against the expected status. A 200 additionally requires the node to
// confirm the payment completed, not merely accepted. The response is
// final once received, so a mismatch stops polling immediately.
type transfer struct {
	action  *scenario.Transfer
	node    client.NodeClient
	outcome client.TransferOutcome
}

func newTransfer(action scenario.Action, deps Deps) (Executor, error) {
	a, ok := action.(*scenario.Transfer)
	if !ok {
		return nil, wrongAction(scenario.ActionTransfer, action)
	}
	return &transfer{action: a, node: deps.Node}, nil
}

func (e *transfer) Submit(ctx context.Context) error {
	outcome, err := e.node.Transfer(ctx, e.action.From, e.action.To, e.action.Amount)
	if err != nil {
		return err
	}
	e.outcome = outcome
	return nil
}

func (e *transfer) Observe(context.Context) (poll.Observation, error) {
	if e.outcome.StatusCode != e.action.ExpectedHTTPStatus {
		return poll.Observation{}, &MismatchError{Result: assert.Result{Fields: []assert.FieldResult{{
			Name:     "http_status",
			Expected: fmt.Sprintf("%d", e.action.ExpectedHTTPStatus),
			Observed: fmt.Sprintf("%d", e.outcome.StatusCode),
		}}}}
	}
	if e.action.ExpectedHTTPStatus == 200 && !e.outcome.Completed {
		return poll.Observation{}, &MismatchError{Result: assert.Result{Fields: []assert.FieldResult{{
			Name:     "payment",
			Expected: "completed",
			Observed: "accepted but not completed",
		}}}}
	}
	return poll.Observation{
		Done: true,
		Detail: fmt.Sprintf("transfer %d->%d amount %d: status %d",
			e.action.From, e.action.To, e.action.Amount, e.outcome.StatusCode),
	}, nil
}

func init() {
	Register(scenario.ActionTransfer, newTransfer)
}
