package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/valet/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key]",
	Short: "Show configuration",
	Long: `Display the resolved valet configuration.

Without arguments, displays all settings. With one argument (key),
displays the value for that key.

Configuration is read from ` + "`valet.yaml`" + ` in the working directory or
from the path given with --config, with environment overrides applied.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		if len(args) == 1 {
			displayConfigKey(cfg, args[0])
			return
		}
		displayAllConfig(cfg)
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	// Mask API key if set
	apiKeyDisplay := "(not set)"
	if cfg.Anthropic.APIKey != "" {
		apiKeyDisplay = "****"
	}

	fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.router_model: %s\n", cfg.Anthropic.RouterModel)
	fmt.Printf("anthropic.use_aws_bedrock: %t\n", cfg.Anthropic.UseAWSBedrock)
	fmt.Printf("engine.max_retries: %d\n", cfg.Engine.MaxRetries)
	fmt.Printf("engine.worker_max_retries: %d\n", cfg.Engine.WorkerMaxRetries)
	fmt.Printf("engine.max_stage_visits: %d\n", cfg.Engine.MaxStageVisits)
	fmt.Printf("sandbox.python: %s\n", cfg.Sandbox.Python)
	fmt.Printf("sandbox.container: %s\n", displayOr(cfg.Sandbox.Container, "(local)"))
	fmt.Printf("sandbox.timeout: %s\n", cfg.Sandbox.Timeout)
	fmt.Printf("sandbox.lint_command: %s\n", displayOr(cfg.Sandbox.LintCommand, "(disabled)"))
	fmt.Printf("registry.dir: %s\n", cfg.Registry.Dir)
	fmt.Printf("registry.pending_dir: %s\n", cfg.Registry.PendingDir)
	fmt.Printf("registry.index_path: %s\n", cfg.Registry.IndexPath)
	fmt.Printf("registry.top_n: %d\n", cfg.Registry.TopN)
	fmt.Printf("registry.distance_threshold: %g\n", cfg.Registry.DistanceThreshold)
	fmt.Printf("registry.watch: %t\n", cfg.Registry.Watch)
	fmt.Printf("context.memory_path: %s\n", cfg.Context.MemoryPath)
	fmt.Printf("context.memory_top_k: %d\n", cfg.Context.MemoryTopK)
	fmt.Printf("context.recent_window: %d\n", cfg.Context.RecentWindow)
	fmt.Printf("context.max_chars: %d\n", cfg.Context.MaxChars)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "anthropic.api_key":
		if cfg.Anthropic.APIKey == "" {
			return "(not set)", nil
		}
		return "****", nil
	case "anthropic.model":
		return cfg.Anthropic.Model, nil
	case "anthropic.router_model":
		return cfg.Anthropic.RouterModel, nil
	case "anthropic.use_aws_bedrock":
		return strconv.FormatBool(cfg.Anthropic.UseAWSBedrock), nil
	case "engine.max_retries":
		return strconv.Itoa(cfg.Engine.MaxRetries), nil
	case "engine.worker_max_retries":
		return strconv.Itoa(cfg.Engine.WorkerMaxRetries), nil
	case "engine.max_stage_visits":
		return strconv.Itoa(cfg.Engine.MaxStageVisits), nil
	case "sandbox.python":
		return cfg.Sandbox.Python, nil
	case "sandbox.container":
		return displayOr(cfg.Sandbox.Container, "(local)"), nil
	case "sandbox.timeout":
		return cfg.Sandbox.Timeout.String(), nil
	case "sandbox.lint_command":
		return displayOr(cfg.Sandbox.LintCommand, "(disabled)"), nil
	case "registry.dir":
		return cfg.Registry.Dir, nil
	case "registry.pending_dir":
		return cfg.Registry.PendingDir, nil
	case "registry.index_path":
		return cfg.Registry.IndexPath, nil
	case "registry.top_n":
		return strconv.Itoa(cfg.Registry.TopN), nil
	case "registry.distance_threshold":
		return strconv.FormatFloat(cfg.Registry.DistanceThreshold, 'g', -1, 64), nil
	case "registry.watch":
		return strconv.FormatBool(cfg.Registry.Watch), nil
	case "context.memory_path":
		return cfg.Context.MemoryPath, nil
	case "context.memory_top_k":
		return strconv.Itoa(cfg.Context.MemoryTopK), nil
	case "context.recent_window":
		return strconv.Itoa(cfg.Context.RecentWindow), nil
	case "context.max_chars":
		return strconv.Itoa(cfg.Context.MaxChars), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

func displayOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
