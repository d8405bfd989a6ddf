package config

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Port:               8080,
		DataDir:            "data",
		WorkflowServiceURL: "http://localhost:9090",
		LogRetentionDays:   90,
		SeedOnStart:        true,
	}
}
