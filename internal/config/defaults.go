package config

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BotName:  "Auglet",
		Provider: "openai",
		Model:    "gpt-4o",
		LogLevel: "info",
		Server: ServerConfig{
			Port: 3978,
		},
		State: StateConfig{
			Driver:     StateDriverMemory,
			RedisAddr:  "localhost:6379",
			SQLitePath: ".auglet/state.db",
			TTLHours:   24,
			ProfileCache: CacheConfig{
				MaxEntries: 256,
				TTLMinutes: 15,
			},
		},
		Agent: AgentConfig{
			MaxToolCycles:      5,
			IntentConfidence:   0.5,
			MaxHistoryItems:    40,
			SelectionRecordCap: 100,
		},
	}
}
