// Package config loads runner configuration from file, environment and
// defaults.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config holds the overall configuration of the runner.
type Config struct {
	// Nodes are the payment nodes under test, indexed by position.
	Nodes []Node `mapstructure:"nodes"`
	// Token is the address of the token network the scenario exercises.
	Token string `mapstructure:"token"`
	// PFS configures the path-finding service.
	PFS PFS `mapstructure:"pfs"`
	// Poll bounds the observation retries of asynchronous actions.
	Poll Poll `mapstructure:"poll"`
	// Timeout is the run-level wall-clock budget. Zero means no limit.
	Timeout time.Duration `mapstructure:"timeout"`
	// Paths locates run artifacts on disk.
	Paths Paths `mapstructure:"paths"`
	// Log configures the structured logger.
	Log Log `mapstructure:"log"`
	// Debug configures the local debug listener (prometheus metrics).
	Debug Debug `mapstructure:"debug"`
}

// Node identifies one payment node.
type Node struct {
	// Endpoint is the base URL of the node's REST API.
	Endpoint string `mapstructure:"endpoint"`
	// Address is the node's on-chain address, used to resolve PFS
	// routing history entries back to node indices.
	Address string `mapstructure:"address"`
}

// PFS holds path-finding service settings.
type PFS struct {
	URL string `mapstructure:"url"`
}

// Poll mirrors the retry policy knobs.
type Poll struct {
	MaxAttempts   int           `mapstructure:"maxAttempts"`
	MaxWallTime   time.Duration `mapstructure:"maxWallTime"`
	Interval      time.Duration `mapstructure:"interval"`
	MaxInterval   time.Duration `mapstructure:"maxInterval"`
	BackoffFactor float64       `mapstructure:"backoffFactor"`
}

// Paths holds filesystem locations.
type Paths struct {
	// DataDir holds the run history database.
	DataDir string `mapstructure:"dataDir"`
	// LogDir receives per-run log files. Empty disables file logging.
	LogDir string `mapstructure:"logDir"`
}

// Log holds logger settings.
type Log struct {
	Level string `mapstructure:"level"`
	Quiet bool   `mapstructure:"quiet"`
}

// Debug holds the debug listener settings.
type Debug struct {
	// Addr is the listen address for the metrics endpoint. Empty
	// disables the listener.
	Addr string `mapstructure:"addr"`
}

// Validate checks the invariants a run depends on.
func (c *Config) Validate() error {
	for i, node := range c.Nodes {
		if node.Endpoint == "" {
			return fmt.Errorf("node %d: endpoint is required", i)
		}
		if _, err := url.ParseRequestURI(node.Endpoint); err != nil {
			return fmt.Errorf("node %d: invalid endpoint %q: %w", i, node.Endpoint, err)
		}
	}
	if c.PFS.URL != "" {
		if _, err := url.ParseRequestURI(c.PFS.URL); err != nil {
			return fmt.Errorf("invalid pfs url %q: %w", c.PFS.URL, err)
		}
	}
	if c.Poll.BackoffFactor < 1 {
		return fmt.Errorf("poll backoff factor must be >= 1, got %v", c.Poll.BackoffFactor)
	}
	if c.Poll.MaxAttempts <= 0 && c.Poll.MaxWallTime <= 0 {
		return fmt.Errorf("poll policy needs at least one of maxAttempts or maxWallTime")
	}
	return nil
}
