// Package client defines the adapters through which the engine talks
// to payment-channel nodes and the path-finding service. The engine is
// a consumer of these APIs; it owns no wire protocol of its own.
package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/scenrun/scenrun/internal/scenario"
)

var (
	// ErrChannelNotFound is returned by GetChannel when the channel is
	// not yet visible on the queried node.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrChannelContention is returned when the node rejects an
	// operation because a conflicting operation on the same channel is
	// in flight.
	ErrChannelContention = errors.New("conflicting channel operation in progress")
)

// ChannelState is the observed state of one channel direction.
type ChannelState struct {
	TotalDeposit uint64                 `json:"total_deposit"`
	Balance      uint64                 `json:"balance"`
	Status       scenario.ChannelStatus `json:"state"`
}

func (s ChannelState) String() string {
	return fmt.Sprintf("state=%s total_deposit=%d balance=%d", s.Status, s.TotalDeposit, s.Balance)
}

// TransferOutcome is the observed result of a payment submission.
type TransferOutcome struct {
	// StatusCode is the HTTP status the sender node responded with.
	StatusCode int
	// Completed reports whether the node confirmed the payment as
	// completed, not merely accepted.
	Completed bool
	// Identifier is the payment identifier assigned by the node.
	Identifier uint64
}

// RouteRecord is one routing request recorded by the PFS: the target
// of the request and the route it returned, in hop order.
type RouteRecord struct {
	Target scenario.NodeRef
	Route  []scenario.NodeRef
}

// NodeClient is the control API of the payment-channel nodes plus
// chain read access. Implementations must be safe for concurrent use
// by parallel scenario branches.
type NodeClient interface {
	// OpenChannel asks the node to open a channel towards its partner
	// and deposit totalDeposit into it. The call is asynchronous; the
	// channel becomes visible via GetChannel once mined.
	OpenChannel(ctx context.Context, from, to scenario.NodeRef, totalDeposit uint64) error

	// GetChannel reads the channel state as seen from the `from` side.
	GetChannel(ctx context.Context, from, to scenario.NodeRef) (ChannelState, error)

	// Transfer submits a payment on the sender node and reports the
	// HTTP outcome.
	Transfer(ctx context.Context, from, to scenario.NodeRef, amount uint64) (TransferOutcome, error)

	// ChainHeight returns the current block height of the chain the
	// network runs on.
	ChainHeight(ctx context.Context) (uint64, error)
}

// PFSClient is the query interface of the path-finding service.
type PFSClient interface {
	// RoutingHistory returns the routing requests recorded for the
	// given source node, oldest first.
	RoutingHistory(ctx context.Context, source scenario.NodeRef) ([]RouteRecord, error)
}

// Resolver maps logical node references to addresses. Resolution is
// owned by the external node manager; the engine only consumes it.
type Resolver interface {
	// BaseURL returns the control API base URL of the node.
	BaseURL(node scenario.NodeRef) (string, error)
	// Address returns the on-chain address of the node.
	Address(node scenario.NodeRef) (string, error)
	// Nodes returns the number of managed nodes.
	Nodes() int
}

// StaticResolver resolves node references from a fixed list, typically
// sourced from the runner configuration.
type StaticResolver struct {
	entries []StaticNode
}

// StaticNode is one entry of a StaticResolver.
type StaticNode struct {
	BaseURL string
	Address string
}

// NewStaticResolver builds a resolver over a fixed node list.
func NewStaticResolver(nodes []StaticNode) *StaticResolver {
	return &StaticResolver{entries: nodes}
}

func (r *StaticResolver) BaseURL(node scenario.NodeRef) (string, error) {
	e, err := r.entry(node)
	if err != nil {
		return "", err
	}
	return e.BaseURL, nil
}

func (r *StaticResolver) Address(node scenario.NodeRef) (string, error) {
	e, err := r.entry(node)
	if err != nil {
		return "", err
	}
	return e.Address, nil
}

func (r *StaticResolver) Nodes() int { return len(r.entries) }

func (r *StaticResolver) entry(node scenario.NodeRef) (StaticNode, error) {
	if int(node) < 0 || int(node) >= len(r.entries) {
		return StaticNode{}, fmt.Errorf("unknown node %d", node)
	}
	return r.entries[node], nil
}
