package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (AUGLET_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: AUGLET_STATE_DRIVER -> state.driver,
	// AUGLET_LOG_LEVEL -> log_level, etc.
	if err := k.Load(env.Provider("AUGLET_", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// envSections lists the known section paths, longest prefix first, so
// state_profile_cache takes priority over state.
var envSections = []struct{ prefix, path string }{
	{"state_profile_cache", "state.profile_cache"},
	{"server", "server"},
	{"state", "state"},
	{"agent", "agent"},
}

// envKey maps an environment variable name onto a config key. Only the
// known section prefixes become nesting separators, so underscored leaf
// names like log_level survive.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, "AUGLET_"))
	for _, section := range envSections {
		if strings.HasPrefix(s, section.prefix+"_") {
			return section.path + "." + strings.TrimPrefix(s, section.prefix+"_")
		}
	}
	return s
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validDrivers is the set of recognized state driver values.
var validDrivers = map[StateDriver]bool{
	StateDriverMemory: true,
	StateDriverRedis:  true,
	StateDriverSQLite: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}

	if !validDrivers[c.State.Driver] {
		return fmt.Errorf("invalid state driver %q: must be one of memory, redis, sqlite", c.State.Driver)
	}
	if c.State.Driver == StateDriverRedis && c.State.RedisAddr == "" {
		return fmt.Errorf("state.redis_addr is required for the redis driver")
	}
	if c.State.Driver == StateDriverSQLite && c.State.SQLitePath == "" {
		return fmt.Errorf("state.sqlite_path is required for the sqlite driver")
	}

	if c.Agent.MaxToolCycles <= 0 {
		return fmt.Errorf("agent.max_tool_cycles must be positive")
	}
	if c.Agent.IntentConfidence < 0 || c.Agent.IntentConfidence > 1 {
		return fmt.Errorf("agent.intent_confidence must be in [0,1]")
	}
	if c.Agent.SelectionRecordCap <= 0 {
		return fmt.Errorf("agent.selection_record_cap must be positive")
	}

	return nil
}
