package config

// StateDriver identifies the backing store for session state.
type StateDriver string

const (
	StateDriverMemory StateDriver = "memory"
	StateDriverRedis  StateDriver = "redis"
	StateDriverSQLite StateDriver = "sqlite"
)

// Config is the top-level auglet configuration, corresponding to .auglet.yml.
type Config struct {
	BotName  string       `yaml:"bot_name" koanf:"bot_name"`
	Provider string       `yaml:"provider" koanf:"provider"`
	Model    string       `yaml:"model" koanf:"model"`
	Server   ServerConfig `yaml:"server" koanf:"server"`
	State    StateConfig  `yaml:"state" koanf:"state"`
	Agent    AgentConfig  `yaml:"agent" koanf:"agent"`
	LogLevel string       `yaml:"log_level" koanf:"log_level"`
}

// ServerConfig holds the chat transport server settings.
type ServerConfig struct {
	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all" koanf:"allow_all"` // allow all CORS origins (dev mode)
}

// StateConfig selects and configures the session/profile persistence layer.
type StateConfig struct {
	Driver       StateDriver `yaml:"driver" koanf:"driver"`
	RedisAddr    string      `yaml:"redis_addr" koanf:"redis_addr"`
	RedisDB      int         `yaml:"redis_db" koanf:"redis_db"`
	SQLitePath   string      `yaml:"sqlite_path" koanf:"sqlite_path"`
	TTLHours     int         `yaml:"ttl_hours" koanf:"ttl_hours"`
	ProfileCache CacheConfig `yaml:"profile_cache" koanf:"profile_cache"`
}

// CacheConfig holds the profile cache eviction settings.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries" koanf:"max_entries"`
	TTLMinutes int `yaml:"ttl_minutes" koanf:"ttl_minutes"`
}

// AgentConfig bounds the conversation orchestrator.
type AgentConfig struct {
	// MaxToolCycles caps the reason/act cycles in a single turn.
	MaxToolCycles int `yaml:"max_tool_cycles" koanf:"max_tool_cycles"`
	// IntentConfidence is the minimum confidence for routing to a
	// dedicated intent handler; anything below falls through to the
	// general task loop.
	IntentConfidence float64 `yaml:"intent_confidence" koanf:"intent_confidence"`
	// MaxHistoryItems bounds how many messages are prepared for the LLM.
	MaxHistoryItems int `yaml:"max_history_items" koanf:"max_history_items"`
	// SelectionRecordCap bounds the tool-selection history kept per session.
	SelectionRecordCap int `yaml:"selection_record_cap" koanf:"selection_record_cap"`
}
