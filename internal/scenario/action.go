package scenario

import "fmt"

// ActionKind names a leaf action type as it appears in scenario files.
type ActionKind string

const (
	ActionOpenChannel      ActionKind = "open_channel"
	ActionTransfer         ActionKind = "transfer"
	ActionWaitBlocks       ActionKind = "wait_blocks"
	ActionAssertChannel    ActionKind = "assert"
	ActionAssertPFSHistory ActionKind = "assert_pfs_history"
)

// Action is the closed set of leaf task payloads. Every implementation
// is a plain value type with all required parameters as concrete
// fields, checked by Validate at construction time.
type Action interface {
	Kind() ActionKind
	Validate() error
}

// OpenChannel opens a channel between two nodes and deposits into it.
// It completes once the channel reports opened with at least the
// requested deposit.
type OpenChannel struct {
	From         NodeRef `mapstructure:"from"`
	To           NodeRef `mapstructure:"to"`
	TotalDeposit uint64  `mapstructure:"total_deposit"`
}

func (OpenChannel) Kind() ActionKind { return ActionOpenChannel }

func (a OpenChannel) Validate() error {
	if err := checkNodePair(a.Kind(), a.From, a.To); err != nil {
		return err
	}
	if a.TotalDeposit == 0 {
		return missingField(a.Kind(), "total_deposit")
	}
	return nil
}

// Transfer issues a single payment from one node to another. The HTTP
// status of the sender's response must equal ExpectedHTTPStatus; a 200
// additionally requires the node to confirm the payment completed.
type Transfer struct {
	From               NodeRef `mapstructure:"from"`
	To                 NodeRef `mapstructure:"to"`
	Amount             uint64  `mapstructure:"amount"`
	ExpectedHTTPStatus int     `mapstructure:"expected_http_status"`
}

func (Transfer) Kind() ActionKind { return ActionTransfer }

func (a Transfer) Validate() error {
	if err := checkNodePair(a.Kind(), a.From, a.To); err != nil {
		return err
	}
	if a.Amount == 0 {
		return missingField(a.Kind(), "amount")
	}
	if a.ExpectedHTTPStatus < 100 || a.ExpectedHTTPStatus > 599 {
		return &MalformedTaskError{
			Task:   string(a.Kind()),
			Field:  "expected_http_status",
			Reason: fmt.Sprintf("invalid HTTP status %d", a.ExpectedHTTPStatus),
		}
	}
	return nil
}

// WaitBlocks blocks until the chain height has advanced by at least
// Blocks from the height observed when the task starts.
type WaitBlocks struct {
	Blocks uint64 `mapstructure:"blocks"`
}

func (WaitBlocks) Kind() ActionKind { return ActionWaitBlocks }

func (a WaitBlocks) Validate() error {
	if a.Blocks == 0 {
		return missingField(a.Kind(), "blocks")
	}
	return nil
}

// AssertChannel checks the observed state of a channel against the
// given fields. Nil numeric fields are not checked. Numeric checks are
// exact unless Tolerance is set, in which case a deviation of up to
// Tolerance in either direction is accepted.
type AssertChannel struct {
	From         NodeRef       `mapstructure:"from"`
	To           NodeRef       `mapstructure:"to"`
	TotalDeposit *uint64       `mapstructure:"total_deposit"`
	Balance      *uint64       `mapstructure:"balance"`
	State        ChannelStatus `mapstructure:"state"`
	Tolerance    uint64        `mapstructure:"tolerance"`
}

func (AssertChannel) Kind() ActionKind { return ActionAssertChannel }

func (a AssertChannel) Validate() error {
	if err := checkNodePair(a.Kind(), a.From, a.To); err != nil {
		return err
	}
	switch a.State {
	case "", ChannelOpened, ChannelClosed, ChannelSettled:
	default:
		return &MalformedTaskError{
			Task:   string(a.Kind()),
			Field:  "state",
			Reason: fmt.Sprintf("unknown channel state %q", a.State),
		}
	}
	if a.TotalDeposit == nil && a.Balance == nil && a.State == "" {
		return &MalformedTaskError{
			Task:   string(a.Kind()),
			Reason: "no fields to assert",
		}
	}
	return nil
}

// AssertPFSHistory checks the PFS routing log for requests originating
// from Source: exactly RequestCount requests must be recorded, and each
// request to Target must have returned the positionally corresponding
// route in ExpectedRoutes (exact sequence match).
type AssertPFSHistory struct {
	Source         NodeRef     `mapstructure:"source"`
	RequestCount   int         `mapstructure:"request_count"`
	Target         NodeRef     `mapstructure:"target"`
	ExpectedRoutes [][]NodeRef `mapstructure:"expected_routes"`
}

func (AssertPFSHistory) Kind() ActionKind { return ActionAssertPFSHistory }

func (a AssertPFSHistory) Validate() error {
	if a.Source < 0 {
		return missingField(a.Kind(), "source")
	}
	if a.Target < 0 {
		return missingField(a.Kind(), "target")
	}
	if a.RequestCount < 0 {
		return &MalformedTaskError{
			Task:   string(a.Kind()),
			Field:  "request_count",
			Reason: "must not be negative",
		}
	}
	if len(a.ExpectedRoutes) == 0 {
		return missingField(a.Kind(), "expected_routes")
	}
	for i, route := range a.ExpectedRoutes {
		if len(route) == 0 {
			return &MalformedTaskError{
				Task:   string(a.Kind()),
				Field:  "expected_routes",
				Reason: fmt.Sprintf("route %d is empty", i),
			}
		}
	}
	return nil
}

func checkNodePair(kind ActionKind, from, to NodeRef) error {
	if from < 0 {
		return missingField(kind, "from")
	}
	if to < 0 {
		return missingField(kind, "to")
	}
	if from == to {
		return &MalformedTaskError{
			Task:   string(kind),
			Field:  "to",
			Reason: "from and to must differ",
		}
	}
	return nil
}

func missingField(kind ActionKind, field string) error {
	return &MalformedTaskError{Task: string(kind), Field: field, Reason: "required field missing"}
}
