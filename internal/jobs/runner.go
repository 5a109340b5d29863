// Package jobs runs verification work outside the synchronous request
// path. A job takes candidate code plus an instruction, drives it through
// lint, execution, and bounded refinement, and reports progress as events
// rather than a return value.
package jobs

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/ShayCichocki/valet/internal/config"
	"github.com/ShayCichocki/valet/internal/events"
	"github.com/ShayCichocki/valet/internal/extract"
	"github.com/ShayCichocki/valet/internal/llm"
	"github.com/ShayCichocki/valet/internal/registry"
	"github.com/ShayCichocki/valet/internal/sandbox"
)

// Runner verifies candidate solutions and promotes the survivors into the
// registry.
type Runner struct {
	cfg      *config.Config
	llm      llm.Collaborator
	registry *registry.Registry
	pending  *registry.PendingStore
	executor *sandbox.Executor
	linter   *sandbox.Linter
	bus      *events.Bus
}

// NewRunner assembles a Runner publishing to bus.
func NewRunner(cfg *config.Config, collab llm.Collaborator, reg *registry.Registry, pending *registry.PendingStore, ex *sandbox.Executor, lint *sandbox.Linter, bus *events.Bus) *Runner {
	return &Runner{
		cfg:      cfg,
		llm:      collab,
		registry: reg,
		pending:  pending,
		executor: ex,
		linter:   lint,
		bus:      bus,
	}
}

// NewJobID returns a fresh job identifier.
func NewJobID() string {
	return uuid.New().String()
}

// Stream exposes the bus's event stream for a job.
func (r *Runner) Stream(ctx context.Context, jobID string) <-chan []byte {
	return r.bus.Stream(ctx, jobID)
}

// RunVerificationJob drives one candidate through lint, execution, and
// refinement. It publishes progress events throughout and exactly one
// terminal event at the end. The returned name is the saved solution's
// registry key on success.
func (r *Runner) RunVerificationJob(ctx context.Context, jobID, code, instruction string) (name string, err error) {
	publish := func(stage events.Stage, typ events.Type, content string) {
		r.bus.Publish(events.New(jobID, stage, typ, content))
	}

	var lastErr string
	for attempt := 0; attempt <= r.cfg.Engine.MaxRetries; attempt++ {
		if attempt > 0 {
			publish(events.StageRefining, events.TypeStepStart, fmt.Sprintf("refinement attempt %d", attempt))
			refined, refineErr := r.refine(ctx, code, instruction, lastErr)
			if refineErr != nil {
				lastErr = refineErr.Error()
				publish(events.StageRefining, events.TypeLog, "refinement failed: "+lastErr)
				continue
			}
			code = refined
			publish(events.StageRefining, events.TypeStepComplete, "produced refined candidate")
		}

		publish(events.StageLinting, events.TypeStepStart, "linting candidate")
		if clean, findings := r.linter.Check(ctx, code); !clean {
			lastErr = "lint: " + findings
			publish(events.StageLinting, events.TypeLog, lastErr)
			continue
		}
		publish(events.StageLinting, events.TypeStepComplete, "lint clean")

		publish(events.StageTesting, events.TypeStepStart, "executing candidate")
		res := r.executor.Execute(ctx, code)
		if res.Failed() {
			lastErr = res.FailureDetail()
			publish(events.StageTesting, events.TypeError, lastErr)
			continue
		}
		publish(events.StageTesting, events.TypeStepComplete, strings.TrimSpace(res.Stdout))

		name = r.solutionName(ctx, instruction)
		if saveErr := r.registry.Save(name, code, instruction); saveErr != nil {
			// Persistence is best effort even here; the code did verify.
			log.Printf("[jobs] save failed for %s: %v", name, saveErr)
			publish(events.StageCompleted, events.TypeLog, "verified but not persisted: "+saveErr.Error())
		}
		publish(events.StageCompleted, events.TypeStepComplete, "verified and saved as "+name)
		return name, nil
	}

	publish(events.StageFailed, events.TypeError, lastErr)
	return "", fmt.Errorf("verification failed: %s", lastErr)
}

// VerifyPending runs a verification job for a stored pending solution,
// updating its status as the job proceeds. Approved candidates leave the
// pending directory; failed ones stay with the error recorded in notes.
func (r *Runner) VerifyPending(ctx context.Context, jobID, pendingID string) error {
	ps, err := r.pending.Get(pendingID)
	if err != nil {
		r.bus.Publish(events.New(jobID, events.StageFailed, events.TypeError, err.Error()))
		return err
	}

	ps.Status = registry.StatusVerifying
	if err := r.pending.Update(ps); err != nil {
		log.Printf("[jobs] pending status update failed: %v", err)
	}

	instruction := ps.Description
	if instruction == "" {
		instruction = ps.Name
	}

	if _, err := r.RunVerificationJob(ctx, jobID, ps.Code, instruction); err != nil {
		ps.Status = registry.StatusFailed
		ps.Notes = err.Error()
		if uerr := r.pending.Update(ps); uerr != nil {
			log.Printf("[jobs] pending status update failed: %v", uerr)
		}
		return err
	}

	if err := r.pending.Delete(ps.ID); err != nil {
		log.Printf("[jobs] pending cleanup failed: %v", err)
	}
	return nil
}

const refineSystem = `You fix Python programs. Given a program, what it is
supposed to do, and how it failed, respond with a single fenced python
code block containing the corrected program and nothing else.`

func (r *Runner) refine(ctx context.Context, code, instruction, failure string) (string, error) {
	prompt := fmt.Sprintf("Goal: %s\n\nProgram:\n```python\n%s\n```\n\nFailure:\n%s", instruction, code, failure)
	raw, err := r.llm.Complete(ctx, refineSystem, prompt)
	if err != nil {
		return "", fmt.Errorf("refine: %w", err)
	}
	refined := extract.Code(raw)
	if refined == "" {
		return "", fmt.Errorf("refine: no code in response")
	}
	return refined, nil
}

const namerSystem = `You name reusable programs. Given a task, respond with
a short kebab-case name (2-5 words, lowercase, hyphen separated) and
nothing else.`

func (r *Runner) solutionName(ctx context.Context, instruction string) string {
	raw, err := r.llm.Classify(ctx, namerSystem, instruction)
	if err == nil {
		if name := extract.Slug(raw); name != "" {
			return name
		}
	}
	return extract.Slug(instruction)
}
