package config

// Config is the top-level actiond configuration, corresponding to
// .actiond.yml.
type Config struct {
	Port               int    `yaml:"port" koanf:"port"`
	DataDir            string `yaml:"data_dir" koanf:"data_dir"`
	WorkflowServiceURL string `yaml:"workflow_service_url" koanf:"workflow_service_url"`
	NATSURL            string `yaml:"nats_url" koanf:"nats_url"`
	LogRetentionDays   int    `yaml:"log_retention_days" koanf:"log_retention_days"`
	SeedOnStart        bool   `yaml:"seed_on_start" koanf:"seed_on_start"`
	CORSAllowAll       bool   `yaml:"cors_allow_all" koanf:"cors_allow_all"`
}
