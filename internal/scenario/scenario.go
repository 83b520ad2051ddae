package scenario

// Scenario is a fully validated scenario: global settings, the managed
// node set, and the root of the task tree.
type Scenario struct {
	// Name is derived from the file name or the scenario document.
	Name string
	// Version is the scenario format version.
	Version int
	// Settings carries the global scenario settings.
	Settings Settings
	// Nodes describes the managed node set.
	Nodes NodesSpec
	// Root is the root task, always a group.
	Root *Task
}

// Settings holds global scenario settings. Apart from the service
// endpoints they are passed through to the node manager uninterpreted.
type Settings struct {
	// GasPrice is the gas price policy for on-chain transactions.
	GasPrice string `mapstructure:"gas_price"`
	// Chain selects the chain the scenario runs against.
	Chain string `mapstructure:"chain"`
	// Token is the token network address the scenario operates on.
	Token string `mapstructure:"token"`
	// Services configures external services used by the scenario.
	Services ServicesSettings `mapstructure:"services"`
	// Raw is the complete settings document as written, for collaborators
	// that interpret keys this core does not.
	Raw map[string]any `mapstructure:"-"`
}

// ServicesSettings configures the external services of a scenario.
type ServicesSettings struct {
	PFS PFSSettings `mapstructure:"pfs"`
}

// PFSSettings configures the path-finding service.
type PFSSettings struct {
	URL string `mapstructure:"url"`
}

// NodesSpec describes the managed node set of a scenario.
type NodesSpec struct {
	// Count is the number of nodes the scenario expects (0..Count-1).
	Count int `mapstructure:"count"`
	// DefaultOptions are per-node default options, passed through to the
	// node manager uninterpreted.
	DefaultOptions map[string]any `mapstructure:"default_options"`
}
