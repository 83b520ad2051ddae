package client

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"github.com/scenrun/scenrun/internal/scenario"
)

// HTTPPFSClient queries the routing history debug endpoint of the
// path-finding service. The PFS speaks on-chain addresses; the client
// maps them back to node references through the resolver.
type HTTPPFSClient struct {
	client *resty.Client
	token  string
	byAddr map[string]scenario.NodeRef
}

// NewHTTPPFSClient builds a PFS client for the given service URL.
func NewHTTPPFSClient(url string, resolver Resolver, token string) (*HTTPPFSClient, error) {
	byAddr := make(map[string]scenario.NodeRef, resolver.Nodes())
	for i := 0; i < resolver.Nodes(); i++ {
		addr, err := resolver.Address(scenario.NodeRef(i))
		if err != nil {
			return nil, err
		}
		byAddr[addr] = scenario.NodeRef(i)
	}
	return &HTTPPFSClient{
		client: resty.New().SetBaseURL(url),
		token:  token,
		byAddr: byAddr,
	}, nil
}

type routesResponse struct {
	RequestCount int          `json:"request_count"`
	Responses    []routeEntry `json:"responses"`
}

type routeEntry struct {
	Target string   `json:"target"`
	Path   []string `json:"path"`
}

func (c *HTTPPFSClient) RoutingHistory(ctx context.Context, source scenario.NodeRef) ([]RouteRecord, error) {
	addr, ok := c.addressOf(source)
	if !ok {
		return nil, fmt.Errorf("unknown node %d", source)
	}

	var body routesResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&body).
		Get(fmt.Sprintf("/api/v1/_debug/routes/%s/%s", c.token, addr))
	if err != nil {
		return nil, fmt.Errorf("routing history for node %d: %w", source, err)
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("routing history for node %d: pfs returned %d", source, resp.StatusCode())
	}

	records := make([]RouteRecord, 0, len(body.Responses))
	for _, entry := range body.Responses {
		record := RouteRecord{}
		target, ok := c.byAddr[entry.Target]
		if !ok {
			return nil, fmt.Errorf("routing history for node %d: unknown target address %s", source, entry.Target)
		}
		record.Target = target
		for _, hop := range entry.Path {
			ref, ok := c.byAddr[hop]
			if !ok {
				return nil, fmt.Errorf("routing history for node %d: unknown hop address %s", source, hop)
			}
			record.Route = append(record.Route, ref)
		}
		records = append(records, record)
	}
	return records, nil
}

func (c *HTTPPFSClient) addressOf(node scenario.NodeRef) (string, bool) {
	for addr, ref := range c.byAddr {
		if ref == node {
			return addr, true
		}
	}
	return "", false
}

var _ PFSClient = (*HTTPPFSClient)(nil)
