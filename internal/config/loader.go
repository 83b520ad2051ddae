package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "SCENRUN"

// Loader reads and merges configuration from file, environment and
// defaults.
type Loader struct {
	configFile string
	homeDir    string
}

// Option configures a Loader.
type Option func(*Loader)

// WithConfigFile sets an explicit configuration file path. Without it
// the loader searches the default locations.
func WithConfigFile(path string) Option {
	return func(l *Loader) { l.configFile = path }
}

// WithHomeDir overrides the runner home directory used for default
// paths and config discovery.
func WithHomeDir(dir string) Option {
	return func(l *Loader) { l.homeDir = dir }
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load builds the Config. A missing config file is not an error; the
// defaults and environment are enough to run against localhost nodes.
func (l *Loader) Load() (*Config, error) {
	home, err := l.resolveHome()
	if err != nil {
		return nil, err
	}

	// A .env next to the config is a convenience for local setups.
	_ = godotenv.Load(filepath.Join(home, ".env"))

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	l.setDefaults(v, home)

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(home)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (l *Loader) resolveHome() (string, error) {
	if l.homeDir != "" {
		return l.homeDir, nil
	}
	if dir := os.Getenv(envPrefix + "_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".scenrun"), nil
}

func (l *Loader) setDefaults(v *viper.Viper, home string) {
	v.SetDefault("poll.maxAttempts", 30)
	v.SetDefault("poll.interval", time.Second)
	v.SetDefault("poll.maxInterval", 10*time.Second)
	v.SetDefault("poll.backoffFactor", 1.5)
	v.SetDefault("timeout", 15*time.Minute)
	v.SetDefault("paths.dataDir", filepath.Join(home, "data"))
	v.SetDefault("paths.logDir", filepath.Join(home, "logs"))
	v.SetDefault("log.level", "info")
}
