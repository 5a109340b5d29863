package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/valet/internal/events"
	"github.com/ShayCichocki/valet/internal/jobs"
	"github.com/ShayCichocki/valet/internal/llm"
	"github.com/ShayCichocki/valet/internal/registry"
	"github.com/ShayCichocki/valet/internal/sandbox"
)

var jobsJSON bool

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Run background verification jobs",
}

var jobsVerifyCmd = &cobra.Command{
	Use:   "verify <pending-id>",
	Short: "Verify a pending candidate and save it on success",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		client, err := llm.NewAnthropicClient(cfg.Anthropic)
		if err != nil {
			return err
		}
		reg, err := registry.Open(cfg.Registry)
		if err != nil {
			return err
		}
		defer reg.Close()
		pending, err := registry.NewPendingStore(cfg.Registry.PendingDir)
		if err != nil {
			return err
		}

		bus := events.NewBus()
		runner := jobs.NewRunner(cfg, client, reg, pending,
			sandbox.NewExecutor(cfg.Sandbox, nil),
			sandbox.NewLinter(cfg.Sandbox, nil),
			bus)

		jobID := jobs.NewJobID()
		var stream <-chan []byte
		var plain <-chan events.Event
		if jobsJSON {
			stream = runner.Stream(ctx, jobID)
		} else {
			plain = bus.Subscribe(jobID)
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- runner.VerifyPending(ctx, jobID, args[0])
		}()

		if jobsJSON {
			for frame := range stream {
				os.Stdout.Write(frame)
				fmt.Println()
			}
		} else {
			for ev := range plain {
				printEvent(ev)
			}
		}
		return <-errCh
	},
}

func printEvent(ev events.Event) {
	stage := fmt.Sprintf("%-10s", ev.Stage)
	switch ev.Type {
	case events.TypeError:
		fmt.Printf("%s %s\n", color.RedString(stage), ev.Content)
	case events.TypeStepComplete:
		fmt.Printf("%s %s\n", color.GreenString(stage), ev.Content)
	default:
		fmt.Printf("%s %s\n", stage, ev.Content)
	}
}

func init() {
	jobsVerifyCmd.Flags().BoolVar(&jobsJSON, "json", false, "Emit raw event frames instead of formatted lines")
	jobsCmd.AddCommand(jobsVerifyCmd)
}
