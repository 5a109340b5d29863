package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ShayCichocki/valet/internal/engine"
	"github.com/ShayCichocki/valet/internal/llm"
)

const synthesisSystem = `You are a helpful personal assistant. Combine the
results below into one clear answer to the user's request. Report failures
honestly instead of omitting them.`

// synthesize fans the parallel results back into one answer. Every subtask
// appears in the summary, failed ones included; a synthesis-model failure
// falls back to the raw concatenated results rather than losing them.
func (p *Pipeline) synthesize(ctx context.Context, s *engine.State) (engine.Patch, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Request: %s\n\nSubtask results:\n", s.Text)
	for _, task := range s.Plan {
		fmt.Fprintf(&sb, "\n[%s] %s (%s)\n%s\n", task.ID, task.Description, task.Status, strings.TrimSpace(task.Result))
	}

	answer, err := p.llm.Complete(ctx, synthesisSystem, sb.String())
	if err != nil {
		log.Printf("[pipeline] synthesis failed, returning raw results: %v", err)
		answer = sb.String()
	}

	return engine.Patch{
		Response: engine.Str(answer),
		AppendHistory: []llm.Message{
			{Role: "user", Content: s.Text},
			{Role: "assistant", Content: answer},
		},
	}, nil
}

// respond terminates the sequential path. Success phrases the sandbox
// output as an answer; exhausted retries surface the last error with
// whatever partial output exists, never an empty response.
func (p *Pipeline) respond(ctx context.Context, s *engine.State) (engine.Patch, error) {
	var answer string
	switch {
	case s.ErrorMessage != "":
		answer = "I couldn't complete that task."
		if partial := strings.TrimSpace(s.Result); partial != "" {
			answer += "\nPartial output:\n" + partial
		}
		answer += "\nLast error:\n" + strings.TrimSpace(s.ErrorMessage)
	case s.Response != "":
		// The generator answered in prose; nothing ran.
		answer = s.Response
	default:
		prompt := fmt.Sprintf("Request: %s\n\nProgram output:\n%s", s.Text, strings.TrimSpace(s.Result))
		phrased, err := p.llm.Complete(ctx, synthesisSystem, prompt)
		if err != nil {
			log.Printf("[pipeline] answer phrasing failed, returning raw output: %v", err)
			phrased = strings.TrimSpace(s.Result)
		}
		answer = phrased
	}

	return engine.Patch{
		Response: engine.Str(answer),
		AppendHistory: []llm.Message{
			{Role: "user", Content: s.Text},
			{Role: "assistant", Content: answer},
		},
	}, nil
}
