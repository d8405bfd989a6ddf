package config

import (
	"fmt"
	"strconv"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .actiond.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to actiond! Let's configure the trigger engine.")
	fmt.Println()

	defaults := DefaultConfig()

	// 1. Listen port.
	portPrompt := promptui.Prompt{
		Label:   "Port to listen on",
		Default: strconv.Itoa(defaults.Port),
		Validate: func(s string) error {
			n, err := strconv.Atoi(s)
			if err != nil || n <= 0 || n > 65535 {
				return fmt.Errorf("enter a port between 1 and 65535")
			}
			return nil
		},
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	port, _ := strconv.Atoi(portStr)

	// 2. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory for the SQLite database",
		Default: defaults.DataDir,
	}
	dataDir, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	// 3. Workflow service.
	workflowPrompt := promptui.Prompt{
		Label:   "Workflow service base URL",
		Default: defaults.WorkflowServiceURL,
	}
	workflowURL, err := workflowPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("workflow service URL: %w", err)
	}

	// 4. Optional NATS fan-out.
	natsPrompt := promptui.Prompt{
		Label:   "NATS URL for dispatch events (leave blank to disable)",
		Default: "",
	}
	natsURL, err := natsPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("NATS URL: %w", err)
	}

	// 5. Seed built-in actions on startup.
	seedPrompt := promptui.Select{
		Label: "Seed built-in actions on startup",
		Items: []string{"yes", "no"},
	}
	seedIdx, _, err := seedPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("seed selection: %w", err)
	}

	cfg := &Config{
		Port:               port,
		DataDir:            dataDir,
		WorkflowServiceURL: workflowURL,
		NATSURL:            natsURL,
		LogRetentionDays:   defaults.LogRetentionDays,
		SeedOnStart:        seedIdx == 0,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configPath := ".actiond.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}
