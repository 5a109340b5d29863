package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/ShayCichocki/valet/internal/engine"
	"github.com/ShayCichocki/valet/internal/llm"
)

const speedSystem = `You are a helpful personal assistant. Answer briefly
and directly. Use the provided memories when relevant.`

// speedPath answers simple requests in one model call, skipping planning
// and execution entirely. The exchange is still written to memory so later
// requests can recall it.
func (p *Pipeline) speedPath(ctx context.Context, s *engine.State) (engine.Patch, error) {
	snippets := p.memory.Search(ctx, s.Text, p.cfg.Context.MemoryTopK)

	prompt := s.Text
	if len(snippets) > 0 {
		var memBlock string
		for _, sn := range snippets {
			memBlock += "- " + sn.Text + "\n"
		}
		prompt = "Memories:\n" + memBlock + "\nRequest: " + s.Text
	}
	if window := recentWindow(s.History, p.cfg.Context.RecentWindow); window != "" {
		prompt = "Conversation so far:\n" + window + "\n\n" + prompt
	}

	// The answer streams so the caller can show tokens as they arrive.
	var sb strings.Builder
	err := p.llm.Stream(ctx, speedSystem, prompt, func(token string) {
		sb.WriteString(token)
		if p.OnResponseDelta != nil {
			p.OnResponseDelta(token)
		}
	})
	if err != nil {
		return engine.Patch{}, fmt.Errorf("speed answer: %w", err)
	}
	answer := sb.String()

	if err := p.memory.Add(ctx, fmt.Sprintf("user asked: %s; assistant answered: %s", s.Text, answer), map[string]string{"kind": "exchange"}); err != nil {
		log.Printf("[pipeline] memory save failed: %v", err)
	}

	return engine.Patch{
		Response: engine.Str(answer),
		AppendHistory: []llm.Message{
			{Role: "user", Content: s.Text},
			{Role: "assistant", Content: answer},
		},
	}, nil
}
