package scenario

import (
	"fmt"
	"sort"

	"github.com/go-viper/mapstructure/v2"
)

// definition mirrors the raw YAML scenario document before validation.
type definition struct {
	Version  int            `yaml:"version"`
	Name     string         `yaml:"name"`
	Settings map[string]any `yaml:"settings"`
	Nodes    map[string]any `yaml:"nodes"`
	Scenario map[string]any `yaml:"scenario"`
}

const currentVersion = 2

// build turns a raw scenario definition into a validated Scenario.
// Any structural or parameter problem yields a MalformedTaskError.
func build(def *definition) (*Scenario, error) {
	if def.Version != 0 && def.Version != currentVersion {
		return nil, &MalformedTaskError{
			Task:   "scenario",
			Field:  "version",
			Reason: fmt.Sprintf("unsupported version %d", def.Version),
		}
	}

	sc := &Scenario{Name: def.Name, Version: currentVersion}

	// Settings are pass-through configuration for external collaborators,
	// so unknown keys are allowed there.
	if err := decodeLoose("settings", def.Settings, &sc.Settings); err != nil {
		return nil, err
	}
	sc.Settings.Raw = def.Settings

	if err := decodeParams("nodes", def.Nodes, &sc.Nodes); err != nil {
		return nil, err
	}

	if len(def.Scenario) == 0 {
		return nil, &MalformedTaskError{Task: "scenario", Reason: "missing scenario section"}
	}
	root, err := buildTask(def.Scenario)
	if err != nil {
		return nil, err
	}
	if !root.IsGroup() {
		return nil, &MalformedTaskError{Task: "scenario", Reason: "root task must be a serial or parallel group"}
	}
	if err := root.validate(); err != nil {
		return nil, err
	}
	if sc.Nodes.Count > 0 {
		if err := checkNodeBounds(root, sc.Nodes.Count); err != nil {
			return nil, err
		}
	}

	sc.Root = root
	return sc, nil
}

// buildTask builds a single task from a one-key mapping, where the key
// selects the task kind and the value carries its parameters.
func buildTask(raw map[string]any) (*Task, error) {
	if len(raw) != 1 {
		return nil, &MalformedTaskError{
			Task:   "task",
			Reason: fmt.Sprintf("task mapping must have exactly one key, got %d", len(raw)),
		}
	}
	var kind string
	var value any
	for k, v := range raw {
		kind, value = k, v
	}

	switch kind {
	case "serial":
		return buildGroup(KindSerial, value)
	case "parallel":
		return buildGroup(KindParallel, value)
	case string(ActionOpenChannel):
		return buildAction(value, &OpenChannel{})
	case string(ActionTransfer):
		return buildAction(value, &Transfer{})
	case string(ActionWaitBlocks):
		return buildWaitBlocks(value)
	case string(ActionAssertChannel):
		return buildAction(value, &AssertChannel{})
	case string(ActionAssertPFSHistory):
		return buildAction(value, &AssertPFSHistory{})
	default:
		return nil, &MalformedTaskError{Task: kind, Reason: "unknown task kind"}
	}
}

type groupDef struct {
	Name  string `mapstructure:"name"`
	Tasks []any  `mapstructure:"tasks"`
}

func buildGroup(kind TaskKind, value any) (*Task, error) {
	var def groupDef
	if err := decodeParams(kind.String(), value, &def); err != nil {
		return nil, err
	}
	if len(def.Tasks) == 0 {
		return nil, &MalformedTaskError{Task: kind.String(), Field: "tasks", Reason: "group has no tasks"}
	}

	group := &Task{Kind: kind, Name: def.Name}
	if group.Name == "" {
		group.Name = kind.String()
	}
	for i, rawChild := range def.Tasks {
		childMap, ok := normalizeTaskMapping(rawChild)
		if !ok {
			return nil, &MalformedTaskError{
				Task:   kind.String(),
				Field:  "tasks",
				Reason: fmt.Sprintf("task %d is not a mapping", i),
			}
		}
		child, err := buildTask(childMap)
		if err != nil {
			return nil, err
		}
		group.Children = append(group.Children, child)
	}
	return group, nil
}

// buildAction decodes an action parameter bag into its typed action
// via a pointer-field shadow so absent required fields are detected,
// then validates the result.
func buildAction(value any, action Action) (*Task, error) {
	kind := action.Kind()
	switch a := action.(type) {
	case *OpenChannel:
		var def struct {
			From         *int    `mapstructure:"from"`
			To           *int    `mapstructure:"to"`
			TotalDeposit *uint64 `mapstructure:"total_deposit"`
		}
		if err := decodeParams(string(kind), value, &def); err != nil {
			return nil, err
		}
		if def.From == nil {
			return nil, missingField(kind, "from")
		}
		if def.To == nil {
			return nil, missingField(kind, "to")
		}
		if def.TotalDeposit == nil {
			return nil, missingField(kind, "total_deposit")
		}
		a.From, a.To, a.TotalDeposit = NodeRef(*def.From), NodeRef(*def.To), *def.TotalDeposit

	case *Transfer:
		var def struct {
			From           *int    `mapstructure:"from"`
			To             *int    `mapstructure:"to"`
			Amount         *uint64 `mapstructure:"amount"`
			ExpectedStatus *int    `mapstructure:"expected_http_status"`
		}
		if err := decodeParams(string(kind), value, &def); err != nil {
			return nil, err
		}
		if def.From == nil {
			return nil, missingField(kind, "from")
		}
		if def.To == nil {
			return nil, missingField(kind, "to")
		}
		if def.Amount == nil {
			return nil, missingField(kind, "amount")
		}
		if def.ExpectedStatus == nil {
			return nil, missingField(kind, "expected_http_status")
		}
		a.From, a.To = NodeRef(*def.From), NodeRef(*def.To)
		a.Amount, a.ExpectedHTTPStatus = *def.Amount, *def.ExpectedStatus

	case *AssertChannel:
		var def struct {
			From         *int    `mapstructure:"from"`
			To           *int    `mapstructure:"to"`
			TotalDeposit *uint64 `mapstructure:"total_deposit"`
			Balance      *uint64 `mapstructure:"balance"`
			State        string  `mapstructure:"state"`
			Tolerance    uint64  `mapstructure:"tolerance"`
		}
		if err := decodeParams(string(kind), value, &def); err != nil {
			return nil, err
		}
		if def.From == nil {
			return nil, missingField(kind, "from")
		}
		if def.To == nil {
			return nil, missingField(kind, "to")
		}
		a.From, a.To = NodeRef(*def.From), NodeRef(*def.To)
		a.TotalDeposit, a.Balance = def.TotalDeposit, def.Balance
		a.State, a.Tolerance = ChannelStatus(def.State), def.Tolerance

	case *AssertPFSHistory:
		var def struct {
			Source         *int    `mapstructure:"source"`
			RequestCount   *int    `mapstructure:"request_count"`
			Target         *int    `mapstructure:"target"`
			ExpectedRoutes [][]int `mapstructure:"expected_routes"`
		}
		if err := decodeParams(string(kind), value, &def); err != nil {
			return nil, err
		}
		if def.Source == nil {
			return nil, missingField(kind, "source")
		}
		if def.RequestCount == nil {
			return nil, missingField(kind, "request_count")
		}
		if def.Target == nil {
			return nil, missingField(kind, "target")
		}
		a.Source, a.Target = NodeRef(*def.Source), NodeRef(*def.Target)
		a.RequestCount = *def.RequestCount
		for _, route := range def.ExpectedRoutes {
			refs := make([]NodeRef, len(route))
			for i, n := range route {
				refs[i] = NodeRef(n)
			}
			a.ExpectedRoutes = append(a.ExpectedRoutes, refs)
		}

	default:
		return nil, &MalformedTaskError{Task: string(kind), Reason: "unhandled action kind"}
	}

	if err := action.Validate(); err != nil {
		return nil, err
	}
	return &Task{Kind: KindAction, Name: string(kind), Action: action}, nil
}

// buildWaitBlocks accepts both the scalar shorthand (wait_blocks: 2)
// and the mapping form (wait_blocks: {blocks: 2}).
func buildWaitBlocks(value any) (*Task, error) {
	kind := ActionWaitBlocks
	action := &WaitBlocks{}
	switch v := value.(type) {
	case map[string]any, map[any]any:
		var def struct {
			Blocks *uint64 `mapstructure:"blocks"`
		}
		if err := decodeParams(string(kind), v, &def); err != nil {
			return nil, err
		}
		if def.Blocks == nil {
			return nil, missingField(kind, "blocks")
		}
		action.Blocks = *def.Blocks
	default:
		var blocks uint64
		if err := decodeParams(string(kind), v, &blocks); err != nil {
			return nil, err
		}
		action.Blocks = blocks
	}
	if err := action.Validate(); err != nil {
		return nil, err
	}
	return &Task{Kind: KindAction, Name: string(kind), Action: action}, nil
}

// decodeParams decodes a raw parameter bag into its typed shadow.
// Unknown keys are rejected so typos surface at load time.
func decodeParams(task string, input, output any) error {
	if input == nil {
		return nil
	}
	var meta mapstructure.Metadata
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Metadata:         &meta,
		Result:           output,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder for %q: %w", task, err)
	}
	if err := dec.Decode(input); err != nil {
		return &MalformedTaskError{Task: task, Reason: err.Error()}
	}
	if len(meta.Unused) > 0 {
		sort.Strings(meta.Unused)
		return &MalformedTaskError{
			Task:   task,
			Field:  meta.Unused[0],
			Reason: "unknown parameter",
		}
	}
	return nil
}

// decodeLoose decodes a parameter bag without rejecting unknown keys.
func decodeLoose(task string, input, output any) error {
	if input == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           output,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder for %q: %w", task, err)
	}
	if err := dec.Decode(input); err != nil {
		return &MalformedTaskError{Task: task, Reason: err.Error()}
	}
	return nil
}

// normalizeTaskMapping converts a raw YAML list element into the
// canonical map[string]any task form.
func normalizeTaskMapping(raw any) (map[string]any, bool) {
	switch m := raw.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = v
		}
		return out, true
	default:
		return nil, false
	}
}

// checkNodeBounds verifies that every node reference in the tree falls
// within the managed node set.
func checkNodeBounds(root *Task, count int) error {
	var err error
	check := func(kind ActionKind, field string, refs ...NodeRef) {
		if err != nil {
			return
		}
		for _, ref := range refs {
			if int(ref) >= count {
				err = &MalformedTaskError{
					Task:   string(kind),
					Field:  field,
					Reason: fmt.Sprintf("node %d out of range (nodes.count is %d)", ref, count),
				}
				return
			}
		}
	}
	root.Walk(func(t *Task) {
		if t.Kind != KindAction {
			return
		}
		switch a := t.Action.(type) {
		case *OpenChannel:
			check(a.Kind(), "from", a.From)
			check(a.Kind(), "to", a.To)
		case *Transfer:
			check(a.Kind(), "from", a.From)
			check(a.Kind(), "to", a.To)
		case *AssertChannel:
			check(a.Kind(), "from", a.From)
			check(a.Kind(), "to", a.To)
		case *AssertPFSHistory:
			check(a.Kind(), "source", a.Source)
			check(a.Kind(), "target", a.Target)
			for _, route := range a.ExpectedRoutes {
				check(a.Kind(), "expected_routes", route...)
			}
		}
	})
	return err
}
