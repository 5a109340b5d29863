package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/ShayCichocki/valet/internal/engine"
	"github.com/ShayCichocki/valet/internal/extract"
	"github.com/ShayCichocki/valet/internal/llm"
	"github.com/ShayCichocki/valet/internal/registry"
)

const generatorSystem = `You write complete, self-contained Python programs.
The program must print its findings to stdout. Respond with a single fenced
python code block and nothing else. If the request needs no code, answer in
plain text instead.`

// generate produces a candidate program for the request. Reference
// solutions from the registry are included verbatim as examples; on a
// correction attempt the prior code and its error are appended so the
// model sees its own mistake.
func (p *Pipeline) generate(ctx context.Context, s *engine.State) (engine.Patch, error) {
	patch := engine.Patch{}

	refs := s.ReferenceSolutions
	if refs == nil {
		matches := p.registry.Query(s.Text, p.cfg.Registry.TopN, p.cfg.Registry.DistanceThreshold)
		refs = make([]engine.Reference, 0, len(matches))
		for _, m := range matches {
			refs = append(refs, newReference(m.Entry))
		}
		patch.ReferenceSolutions = refs
	}

	prompt := buildGenerationPrompt(s.Text, s.ContextBlock, refs)
	if s.ErrorMessage != "" {
		// Entering on the retry edge: consume one attempt and carry the
		// failure into the conversation.
		patch.RetryCount = engine.Int(s.RetryCount + 1)
		patch.AppendHistory = []llm.Message{
			{Role: "assistant", Content: "```python\n" + s.Code + "\n```"},
			{Role: "user", Content: "That code failed:\n" + s.ErrorMessage + "\nFix it and return the corrected program."},
		}
		patch.ErrorMessage = engine.Str("")
		prompt = fmt.Sprintf("%s\n\nYour previous attempt:\n```python\n%s\n```\n\nIt failed with:\n%s\n\nReturn a corrected program.",
			prompt, s.Code, s.ErrorMessage)
	}

	raw, err := p.llm.Complete(ctx, generatorSystem, prompt)
	if err != nil {
		// The staged patch still counts the attempt, so a persistently
		// failing model runs out of retries instead of visit budget.
		return patch, fmt.Errorf("generate code: %w", err)
	}

	code := extract.Code(raw)
	patch.Code = engine.Str(code)
	if code == "" {
		// No program came back; the model's prose is the best answer.
		patch.Response = engine.Str(strings.TrimSpace(extract.StripThinking(raw)))
	}
	return patch, nil
}

func buildGenerationPrompt(task, contextBlock string, refs []engine.Reference) string {
	var sb strings.Builder
	if contextBlock != "" {
		sb.WriteString(contextBlock)
		sb.WriteString("\n\n")
	}
	if len(refs) > 0 {
		sb.WriteString("Reference solutions that worked before:\n\n")
		for _, r := range refs {
			sb.WriteString(r.Text)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("Task: ")
	sb.WriteString(task)
	return sb.String()
}

func newReference(e registry.SolutionEntry) engine.Reference {
	return engine.Reference{
		Name: e.Name,
		Code: e.Code,
		Text: fmt.Sprintf("### %s\n%s\n```python\n%s\n```", e.Name, e.Description, strings.TrimRight(e.Code, "\n")),
	}
}
