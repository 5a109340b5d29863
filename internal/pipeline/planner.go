package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ShayCichocki/valet/internal/engine"
	"github.com/ShayCichocki/valet/internal/extract"
	"github.com/ShayCichocki/valet/pkg/models"
)

// parallelHints gate the planner call. A request with none of these never
// decomposes, so the model round trip is skipped.
var parallelHints = []string{" and ", " both ", " each ", " as well as ", ",", ";"}

const plannerSystem = `You split a request into independent subtasks when,
and only when, it genuinely contains multiple separable pieces of work.
Respond ONLY with JSON.`

const plannerFormat = `Respond with a JSON object:
{"parallel": true|false, "subtasks": [{"id": "t1", "description": "...", "code_hint": "optional"}]}
Use parallel=false with an empty subtasks list for single-step requests.`

// planDoc is the planner's wire shape.
type planDoc struct {
	Parallel bool `json:"parallel"`
	Subtasks []struct {
		ID          string `json:"id"`
		Description string `json:"description"`
		CodeHint    string `json:"code_hint"`
	} `json:"subtasks"`
}

// plan decides whether to fan the request out. Every failure mode, parse
// included, lands on the sequential path.
func (p *Pipeline) plan(ctx context.Context, s *engine.State) (engine.Patch, error) {
	sequential := engine.Patch{Plan: &models.Plan{}}

	lower := " " + strings.ToLower(s.Text) + " "
	gated := false
	for _, hint := range parallelHints {
		if strings.Contains(lower, hint) {
			gated = true
			break
		}
	}
	if !gated {
		return sequential, nil
	}

	prompt := fmt.Sprintf("Request: %s\n\n%s", s.Text, plannerFormat)
	if s.ContextBlock != "" {
		prompt = s.ContextBlock + "\n\n" + prompt
	}
	raw, err := p.llm.Classify(ctx, plannerSystem, prompt)
	if err != nil {
		log.Printf("[pipeline] planner call failed, staying sequential: %v", err)
		return sequential, nil
	}

	var doc planDoc
	if !extract.JSONObject(raw, &doc) {
		log.Printf("[pipeline] planner output unparseable, staying sequential")
		return sequential, nil
	}
	if !doc.Parallel || len(doc.Subtasks) < 2 {
		return sequential, nil
	}

	plan := make(models.Plan, 0, len(doc.Subtasks))
	seen := map[string]bool{}
	for i, st := range doc.Subtasks {
		id := strings.TrimSpace(st.ID)
		for n := i + 1; id == "" || seen[id]; n++ {
			id = fmt.Sprintf("t%d", n)
		}
		seen[id] = true
		plan = append(plan, models.SubTask{
			ID:          id,
			Description: st.Description,
			CodeHint:    st.CodeHint,
			Status:      models.SubTaskPending,
		})
	}
	return engine.Patch{Plan: &plan}, nil
}
