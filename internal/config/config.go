// Package config handles configuration loading and management for valet.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for valet.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Sandbox   SandboxConfig   `mapstructure:"sandbox"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Context   ContextConfig   `mapstructure:"context"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	// Model is the model used for code generation and synthesis.
	Model string `mapstructure:"model"`
	// RouterModel is the cheaper model used for intent classification
	// and plan extraction.
	RouterModel string `mapstructure:"router_model"`
	// UseAWSBedrock routes requests through AWS Bedrock instead of the
	// direct API.
	UseAWSBedrock bool `mapstructure:"use_aws_bedrock"`
	// AWSRegion is the Bedrock region (e.g. "us-west-2").
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS profile name.
	AWSProfile string `mapstructure:"aws_profile"`
}

// EngineConfig holds orchestration engine settings.
type EngineConfig struct {
	// MaxRetries bounds the self-correction loop on the sequential and
	// verification paths. Applied uniformly; there is no per-call-site
	// override.
	MaxRetries int `mapstructure:"max_retries"`
	// WorkerMaxRetries bounds the retry budget of each parallel worker.
	// Workers are meant to be narrow, so this is smaller than MaxRetries.
	WorkerMaxRetries int `mapstructure:"worker_max_retries"`
	// MaxStageVisits is the global cap on stage visits per request,
	// independent of any node-local counter.
	MaxStageVisits int `mapstructure:"max_stage_visits"`
}

// SandboxConfig holds sandboxed-execution settings.
type SandboxConfig struct {
	// Python is the interpreter invoked inside the sandbox.
	Python string `mapstructure:"python"`
	// Container, when set, runs code via "docker exec <container>"
	// instead of a local subprocess.
	Container string `mapstructure:"container"`
	// Timeout is the wall-clock limit per execution.
	Timeout time.Duration `mapstructure:"timeout"`
	// InstallTimeout is the wall-clock limit per package install.
	InstallTimeout time.Duration `mapstructure:"install_timeout"`
	// LintCommand is the static checker run before execution. Empty or
	// missing tool disables the gate.
	LintCommand string `mapstructure:"lint_command"`
	// WorkDir is the working directory for executions.
	WorkDir string `mapstructure:"work_dir"`
}

// RegistryConfig holds solution-registry settings.
type RegistryConfig struct {
	// Dir is the directory holding one solution file per entry.
	Dir string `mapstructure:"dir"`
	// PendingDir is the directory holding pending-solution JSON files.
	PendingDir string `mapstructure:"pending_dir"`
	// IndexPath is the derived sqlite index file.
	IndexPath string `mapstructure:"index_path"`
	// TopN is how many reference solutions the generator receives.
	TopN int `mapstructure:"top_n"`
	// DistanceThreshold is the maximum semantic distance for a match.
	DistanceThreshold float64 `mapstructure:"distance_threshold"`
	// Watch enables re-indexing when solution files change on disk.
	Watch bool `mapstructure:"watch"`
}

// ContextConfig holds context-builder settings.
type ContextConfig struct {
	// MemoryPath is the long-term memory database. Empty disables memory.
	MemoryPath string `mapstructure:"memory_path"`
	// MemoryTopK is how many semantic memory hits are merged in.
	MemoryTopK int `mapstructure:"memory_top_k"`
	// RecentWindow is how many recent turns are included.
	RecentWindow int `mapstructure:"recent_window"`
	// MaxChars bounds the assembled context block.
	MaxChars int `mapstructure:"max_chars"`
	// Directives is the static list of standing directives.
	Directives []string `mapstructure:"directives"`
}

// Load loads configuration from XDG paths, project overrides, and environment
// variables. Precedence (highest to lowest):
// 1. Environment variables (VALET_*, ANTHROPIC_API_KEY)
// 2. Project config (.valet.yaml in current directory or parent)
// 3. User config (~/.config/valet/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("VALET")
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)

	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.router_model", "claude-3-5-haiku-20241022")
	v.SetDefault("anthropic.use_aws_bedrock", false)

	v.SetDefault("engine.max_retries", 3)
	v.SetDefault("engine.worker_max_retries", 1)
	v.SetDefault("engine.max_stage_visits", 25)

	v.SetDefault("sandbox.python", "python3")
	v.SetDefault("sandbox.container", "")
	v.SetDefault("sandbox.timeout", "30s")
	v.SetDefault("sandbox.install_timeout", "120s")
	v.SetDefault("sandbox.lint_command", "ruff check")
	v.SetDefault("sandbox.work_dir", "")

	v.SetDefault("registry.dir", ".valet/solutions")
	v.SetDefault("registry.pending_dir", ".valet/pending")
	v.SetDefault("registry.index_path", ".valet/index.db")
	v.SetDefault("registry.top_n", 3)
	v.SetDefault("registry.distance_threshold", 1.2)
	v.SetDefault("registry.watch", false)

	v.SetDefault("context.memory_path", ".valet/memory.db")
	v.SetDefault("context.memory_top_k", 5)
	v.SetDefault("context.recent_window", 4)
	v.SetDefault("context.max_chars", 6000)
	v.SetDefault("context.directives", []string{})
}

// getUserConfigDir returns the XDG config directory for valet.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "valet")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "valet")
	}
	return filepath.Join(home, ".config", "valet")
}

// findProjectConfig searches for .valet.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".valet.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			Model:       "claude-sonnet-4-20250514",
			RouterModel: "claude-3-5-haiku-20241022",
		},
		Engine: EngineConfig{
			MaxRetries:       3,
			WorkerMaxRetries: 1,
			MaxStageVisits:   25,
		},
		Sandbox: SandboxConfig{
			Python:         "python3",
			Timeout:        30 * time.Second,
			InstallTimeout: 120 * time.Second,
			LintCommand:    "ruff check",
		},
		Registry: RegistryConfig{
			Dir:               ".valet/solutions",
			PendingDir:        ".valet/pending",
			IndexPath:         ".valet/index.db",
			TopN:              3,
			DistanceThreshold: 1.2,
		},
		Context: ContextConfig{
			MemoryPath:   ".valet/memory.db",
			MemoryTopK:   5,
			RecentWindow: 4,
			MaxChars:     6000,
		},
	}
}
