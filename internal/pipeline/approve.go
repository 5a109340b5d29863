package pipeline

import (
	"context"
	"log"
	"strings"

	"github.com/ShayCichocki/valet/internal/engine"
	"github.com/ShayCichocki/valet/internal/extract"
)

const namerSystem = `You name reusable programs. Given a task, respond with
a short kebab-case name (2-5 words, lowercase, hyphen separated) and
nothing else.`

// approve persists a successfully executed program to the registry unless
// it duplicates what the generator was already shown. Persistence is best
// effort; the user still gets their answer if the save fails.
func (p *Pipeline) approve(ctx context.Context, s *engine.State) (engine.Patch, error) {
	name := p.solutionName(ctx, s.Text)

	// Dedup against exactly what the generator was shown, not a fresh
	// query: the index may have moved under this request.
	trimmed := strings.TrimSpace(s.Code)
	for _, ref := range s.ReferenceSolutions {
		if strings.TrimSpace(ref.Code) == trimmed {
			log.Printf("[pipeline] skipping save, code identical to %s", ref.Name)
			return engine.Patch{}, nil
		}
		if ref.Name == name {
			log.Printf("[pipeline] skipping save, name %s already used by a reference entry", name)
			return engine.Patch{}, nil
		}
	}

	if err := p.registry.Save(name, s.Code, s.Text); err != nil {
		log.Printf("[pipeline] solution save failed: %v", err)
	} else {
		log.Printf("[pipeline] saved solution %s", name)
	}

	if err := p.memory.Add(ctx, "completed task: "+s.Text, map[string]string{"kind": "task", "solution": name}); err != nil {
		log.Printf("[pipeline] memory save failed: %v", err)
	}
	return engine.Patch{}, nil
}

// solutionName asks the router model for a kebab-case name, falling back
// to a slug of the request text.
func (p *Pipeline) solutionName(ctx context.Context, task string) string {
	raw, err := p.llm.Classify(ctx, namerSystem, task)
	if err == nil {
		if name := extract.Slug(raw); name != "" {
			return name
		}
	}
	return extract.Slug(task)
}
