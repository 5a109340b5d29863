package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/valet/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "valet",
	Short: "Personal assistant that plans, writes, and runs code for you",
	Long: `Valet turns natural-language requests into answers. Simple requests
are answered directly; complex ones are planned, turned into Python
programs, executed in a sandbox with automatic self-correction, and the
working programs are saved for reuse.

Core capabilities:
- Routes requests between a fast answer path and a full task pipeline
- Decomposes multi-part requests into parallel subtasks
- Executes generated code in an isolated sandbox with retry on failure
- Persists working solutions and recalls them for similar requests`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves configuration for subcommands.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		cfg, err := config.LoadFromPath(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", configPath, err)
		}
		return cfg, nil
	}
	return config.Load()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: search ~/.config/valet and the working tree)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(solutionsCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
