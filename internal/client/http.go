package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/scenrun/scenrun/internal/scenario"
)

// HTTPNodeClient talks to the control REST API of the managed nodes.
// One resty client per node is built up front, so the adapter is safe
// for concurrent use by parallel branches.
type HTTPNodeClient struct {
	resolver Resolver
	token    string
	clients  []*resty.Client
}

// NewHTTPNodeClient builds a node client for every node known to the
// resolver. token is the token network address the scenario operates
// on.
func NewHTTPNodeClient(resolver Resolver, token string, timeout time.Duration) (*HTTPNodeClient, error) {
	clients := make([]*resty.Client, resolver.Nodes())
	for i := range clients {
		baseURL, err := resolver.BaseURL(scenario.NodeRef(i))
		if err != nil {
			return nil, err
		}
		clients[i] = resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json")
	}
	return &HTTPNodeClient{resolver: resolver, token: token, clients: clients}, nil
}

type openChannelRequest struct {
	PartnerAddress string `json:"partner_address"`
	TokenAddress   string `json:"token_address"`
	TotalDeposit   uint64 `json:"total_deposit"`
}

type apiError struct {
	Errors string `json:"errors"`
}

func (c *HTTPNodeClient) OpenChannel(ctx context.Context, from, to scenario.NodeRef, totalDeposit uint64) error {
	partner, err := c.resolver.Address(to)
	if err != nil {
		return err
	}
	cl, err := c.client(from)
	if err != nil {
		return err
	}

	var apiErr apiError
	resp, err := cl.R().
		SetContext(ctx).
		SetBody(openChannelRequest{
			PartnerAddress: partner,
			TokenAddress:   c.token,
			TotalDeposit:   totalDeposit,
		}).
		SetError(&apiErr).
		Put("/api/v1/channels")
	if err != nil {
		return fmt.Errorf("open channel %d->%d: %w", from, to, err)
	}
	switch {
	case resp.IsSuccess():
		return nil
	case resp.StatusCode() == http.StatusConflict:
		return fmt.Errorf("open channel %d->%d: %w: %s", from, to, ErrChannelContention, apiErr.Errors)
	default:
		return fmt.Errorf("open channel %d->%d: node returned %d: %s", from, to, resp.StatusCode(), apiErr.Errors)
	}
}

func (c *HTTPNodeClient) GetChannel(ctx context.Context, from, to scenario.NodeRef) (ChannelState, error) {
	partner, err := c.resolver.Address(to)
	if err != nil {
		return ChannelState{}, err
	}
	cl, err := c.client(from)
	if err != nil {
		return ChannelState{}, err
	}

	var state ChannelState
	resp, err := cl.R().
		SetContext(ctx).
		SetResult(&state).
		Get(fmt.Sprintf("/api/v1/channels/%s/%s", c.token, partner))
	if err != nil {
		return ChannelState{}, fmt.Errorf("get channel %d->%d: %w", from, to, err)
	}
	switch {
	case resp.IsSuccess():
		return state, nil
	case resp.StatusCode() == http.StatusNotFound:
		return ChannelState{}, fmt.Errorf("get channel %d->%d: %w", from, to, ErrChannelNotFound)
	default:
		return ChannelState{}, fmt.Errorf("get channel %d->%d: node returned %d", from, to, resp.StatusCode())
	}
}

type transferRequest struct {
	Amount uint64 `json:"amount"`
}

type transferResponse struct {
	Identifier uint64 `json:"identifier"`
	Status     string `json:"status"`
}

func (c *HTTPNodeClient) Transfer(ctx context.Context, from, to scenario.NodeRef, amount uint64) (TransferOutcome, error) {
	target, err := c.resolver.Address(to)
	if err != nil {
		return TransferOutcome{}, err
	}
	cl, err := c.client(from)
	if err != nil {
		return TransferOutcome{}, err
	}

	var body transferResponse
	resp, err := cl.R().
		SetContext(ctx).
		SetBody(transferRequest{Amount: amount}).
		SetResult(&body).
		Post(fmt.Sprintf("/api/v1/payments/%s/%s", c.token, target))
	if err != nil {
		return TransferOutcome{}, fmt.Errorf("transfer %d->%d: %w", from, to, err)
	}
	return TransferOutcome{
		StatusCode: resp.StatusCode(),
		Completed:  body.Status == "completed",
		Identifier: body.Identifier,
	}, nil
}

type statusResponse struct {
	BlockNumber uint64 `json:"block_number"`
}

// ChainHeight reads the current block height through node 0's control
// API; all nodes follow the same chain.
func (c *HTTPNodeClient) ChainHeight(ctx context.Context) (uint64, error) {
	cl, err := c.client(0)
	if err != nil {
		return 0, err
	}

	var status statusResponse
	resp, err := cl.R().
		SetContext(ctx).
		SetResult(&status).
		Get("/api/v1/status")
	if err != nil {
		return 0, fmt.Errorf("chain height: %w", err)
	}
	if !resp.IsSuccess() {
		return 0, fmt.Errorf("chain height: node returned %d", resp.StatusCode())
	}
	return status.BlockNumber, nil
}

func (c *HTTPNodeClient) client(node scenario.NodeRef) (*resty.Client, error) {
	if int(node) < 0 || int(node) >= len(c.clients) {
		return nil, fmt.Errorf("unknown node %d", node)
	}
	return c.clients[node], nil
}

var _ NodeClient = (*HTTPNodeClient)(nil)
