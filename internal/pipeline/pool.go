package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/valet/internal/engine"
	"github.com/ShayCichocki/valet/internal/extract"
	"github.com/ShayCichocki/valet/pkg/models"
)

// fanOut runs one generate/execute cycle per subtask concurrently and
// blocks until every worker reaches a terminal status. Workers are
// isolated: a failure is recorded in that subtask's result and never
// cancels a sibling.
func (p *Pipeline) fanOut(ctx context.Context, s *engine.State) (engine.Patch, error) {
	plan := append(models.Plan(nil), s.Plan...)
	results := make(map[string]string, len(plan))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	for i := range plan {
		task := &plan[i]
		g.Go(func() error {
			p.workerStatus(task.ID, models.SubTaskRunning)
			result, code, ok := p.runWorker(ctx, task)

			mu.Lock()
			task.Result = result
			task.Code = code
			if ok {
				task.Status = models.SubTaskComplete
			} else {
				task.Status = models.SubTaskFailed
			}
			results[task.ID] = result
			mu.Unlock()

			p.workerStatus(task.ID, task.Status)
			return nil
		})
	}
	// Strict barrier: synthesis never sees a partial plan.
	g.Wait()

	return engine.Patch{
		Plan:           &plan,
		SubTaskResults: results,
	}, nil
}

func (p *Pipeline) workerStatus(taskID string, status models.SubTaskStatus) {
	if p.OnWorkerStatus != nil {
		p.OnWorkerStatus(taskID, status)
	}
}

// runWorker is the narrow per-subtask pipeline: generate, execute, and
// retry within the worker budget. The returned result is the subtask's
// stdout on success or its last error text on failure.
func (p *Pipeline) runWorker(ctx context.Context, task *models.SubTask) (result, code string, ok bool) {
	matches := p.registry.Query(task.Description, p.cfg.Registry.TopN, p.cfg.Registry.DistanceThreshold)
	refs := make([]engine.Reference, 0, len(matches))
	for _, m := range matches {
		refs = append(refs, newReference(m.Entry))
	}

	desc := task.Description
	if task.CodeHint != "" {
		desc = fmt.Sprintf("%s\nHint: %s", desc, task.CodeHint)
	}

	var lastErr string
	for attempt := 0; attempt <= p.cfg.Engine.WorkerMaxRetries; attempt++ {
		prompt := buildGenerationPrompt(desc, "", refs)
		if lastErr != "" {
			prompt = fmt.Sprintf("%s\n\nYour previous attempt:\n```python\n%s\n```\n\nIt failed with:\n%s\n\nReturn a corrected program.",
				prompt, code, lastErr)
		}

		raw, err := p.llm.Complete(ctx, generatorSystem, prompt)
		if err != nil {
			lastErr = err.Error()
			continue
		}
		code = extract.Code(raw)
		if code == "" {
			// Text-only answer satisfies the subtask.
			return strings.TrimSpace(extract.StripThinking(raw)), "", true
		}

		res := p.executor.Execute(ctx, code)
		if !res.Failed() {
			return res.Stdout, code, true
		}
		lastErr = res.FailureDetail()
		log.Printf("[pipeline] worker %s attempt %d failed: %.120s", task.ID, attempt+1, lastErr)
	}
	return lastErr, code, false
}
