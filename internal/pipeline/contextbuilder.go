package pipeline

import (
	"context"
	"strings"

	"github.com/ShayCichocki/valet/internal/engine"
)

// buildContext assembles the prompt context: recalled memories under the
// distance-ranked top-k, a window of recent turns, and the standing
// directives. Memory trouble yields an empty block, never a failed stage.
func (p *Pipeline) buildContext(ctx context.Context, s *engine.State) (engine.Patch, error) {
	snippets := p.memory.Search(ctx, s.Text, p.cfg.Context.MemoryTopK)

	memories := make([]string, 0, len(snippets))
	for _, sn := range snippets {
		memories = append(memories, sn.Text)
	}

	var sb strings.Builder
	if len(memories) > 0 {
		sb.WriteString("Relevant memories:\n")
		for _, m := range memories {
			sb.WriteString("- ")
			sb.WriteString(m)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}
	if window := recentWindow(s.History, p.cfg.Context.RecentWindow); window != "" {
		sb.WriteString("Recent conversation:\n")
		sb.WriteString(window)
		sb.WriteString("\n\n")
	}
	if len(s.Directives) > 0 {
		sb.WriteString("Standing directives:\n")
		for _, d := range s.Directives {
			sb.WriteString("- ")
			sb.WriteString(d)
			sb.WriteString("\n")
		}
	}

	block := strings.TrimSpace(sb.String())
	if max := p.cfg.Context.MaxChars; max > 0 && len(block) > max {
		block = block[:max]
	}

	return engine.Patch{
		ContextBlock: engine.Str(block),
		Memories:     memories,
	}, nil
}
