package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/valet/internal/config"
	"github.com/ShayCichocki/valet/internal/engine"
	"github.com/ShayCichocki/valet/internal/llm"
	"github.com/ShayCichocki/valet/internal/memory"
	"github.com/ShayCichocki/valet/internal/pipeline"
	"github.com/ShayCichocki/valet/internal/registry"
	"github.com/ShayCichocki/valet/internal/sandbox"
	"github.com/ShayCichocki/valet/internal/tui"
	"github.com/ShayCichocki/valet/pkg/models"
)

var runPlain bool

var runCmd = &cobra.Command{
	Use:   "run [request]",
	Short: "Handle one request through the full pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runRequest(cmd.Context(), cfg, strings.Join(args, " "))
	},
}

func init() {
	runCmd.Flags().BoolVar(&runPlain, "plain", false, "Disable the live progress view for parallel plans")
}

// buildPipeline wires the collaborators for one process.
func buildPipeline(ctx context.Context, cfg *config.Config) (*pipeline.Pipeline, func(), error) {
	client, err := llm.NewAnthropicClient(cfg.Anthropic)
	if err != nil {
		return nil, nil, err
	}

	var mem memory.Store = memory.Nop{}
	if cfg.Context.MemoryPath != "" {
		sqliteMem, err := memory.NewSQLiteStore(cfg.Context.MemoryPath)
		if err != nil {
			log.Printf("[valet] memory unavailable, continuing without: %v", err)
		} else {
			mem = sqliteMem
		}
	}

	reg, err := registry.Open(cfg.Registry)
	if err != nil {
		mem.Close()
		return nil, nil, fmt.Errorf("open registry: %w", err)
	}
	if cfg.Registry.Watch {
		if err := reg.Watch(ctx); err != nil {
			log.Printf("[valet] registry watch disabled: %v", err)
		}
	}

	executor := sandbox.NewExecutor(cfg.Sandbox, nil)
	linter := sandbox.NewLinter(cfg.Sandbox, nil)

	p := pipeline.New(cfg, client, mem, reg, executor, linter)
	cleanup := func() {
		reg.Close()
		mem.Close()
		client.Tracker().LogUsage()
	}
	return p, cleanup, nil
}

func runRequest(ctx context.Context, cfg *config.Config, text string) error {
	p, cleanup, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	sessionID := uuid.New().String()

	if runPlain {
		// Speed answers stream straight to the terminal; everything else
		// prints once the pipeline finishes.
		var streamed bool
		p.OnResponseDelta = func(token string) {
			streamed = true
			fmt.Print(token)
		}
		s, err := p.Run(ctx, sessionID, text, nil)
		if err != nil {
			return err
		}
		if streamed {
			fmt.Println()
		} else {
			fmt.Println(s.Response)
		}
		return nil
	}

	// Live view: worker transitions stream into the TUI once a parallel
	// plan starts; sequential requests print directly.
	resultCh := make(chan *engine.State, 1)
	errCh := make(chan error, 1)
	statusCh := make(chan tui.StatusMsg, 64)

	p.OnWorkerStatus = func(taskID string, status models.SubTaskStatus) {
		select {
		case statusCh <- tui.StatusMsg{TaskID: taskID, Status: status}:
		default:
		}
	}

	go func() {
		s, err := p.Run(ctx, sessionID, text, nil)
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- s
	}()

	// Wait for either completion or the first worker transition. Only a
	// parallel plan produces transitions, so this decides the display mode.
	select {
	case err := <-errCh:
		return err
	case s := <-resultCh:
		fmt.Println(s.Response)
		return nil
	case first := <-statusCh:
		return runWorkerView(first, statusCh, resultCh, errCh)
	}
}

// runWorkerView drives the live progress display until the pipeline ends.
func runWorkerView(first tui.StatusMsg, statusCh chan tui.StatusMsg, resultCh chan *engine.State, errCh chan error) error {
	// The plan is not known here beyond what transitions reveal, so the
	// view is seeded lazily from the first completed state instead. Fall
	// back to plain output if the terminal rejects the program.
	var finalState *engine.State

	// Collect transitions while waiting; the program shows them as they
	// arrive.
	plan := models.Plan{{ID: first.TaskID, Description: first.TaskID, Status: models.SubTaskRunning}}
	view := tui.NewWorkerView(plan)
	prog := tea.NewProgram(view)

	go func() {
		prog.Send(first)
		for {
			select {
			case msg := <-statusCh:
				prog.Send(msg)
			case s := <-resultCh:
				finalState = s
				prog.Send(tui.DoneMsg{Response: s.Response})
				return
			case err := <-errCh:
				finalState = nil
				prog.Send(tui.DoneMsg{Response: color.RedString("error: %v", err)})
				return
			}
		}
	}()

	if _, err := prog.Run(); err != nil {
		// Terminal not usable; wait for the pipeline and print plainly.
		select {
		case s := <-resultCh:
			fmt.Println(s.Response)
			return nil
		case err := <-errCh:
			return err
		}
	}
	if finalState == nil {
		return fmt.Errorf("request failed")
	}
	return nil
}
