package pipeline

import (
	"context"
	"log"
	"strings"

	"github.com/ShayCichocki/valet/internal/engine"
	"github.com/ShayCichocki/valet/internal/llm"
)

// Routing labels. Anything the classifier cannot decide becomes complex:
// under-routing to the light path would silently skip tool use, while
// over-routing only costs latency.
const (
	RouteSpeed   = "speed"
	RouteComplex = "complex"
)

const routerSystem = `You classify requests for an assistant.
Reply with exactly one word.
"speed": greetings, small talk, simple factual questions answerable from memory.
"complex": anything needing code, tools, computation, fresh data, or multiple steps.`

// route classifies the request as speed or complex using the router model
// at temperature zero, so identical input always routes the same way.
func (p *Pipeline) route(ctx context.Context, s *engine.State) (engine.Patch, error) {
	prompt := s.Text
	if window := recentWindow(s.History, p.cfg.Context.RecentWindow); window != "" {
		prompt = "Recent conversation:\n" + window + "\n\nRequest: " + s.Text
	}

	label, err := p.llm.Classify(ctx, routerSystem, prompt)
	if err != nil {
		log.Printf("[pipeline] router classify failed, defaulting to complex: %v", err)
		return engine.Patch{Route: engine.Str(RouteComplex)}, nil
	}

	route := RouteComplex
	if strings.Contains(strings.ToLower(label), RouteSpeed) {
		route = RouteSpeed
	}
	return engine.Patch{Route: engine.Str(route)}, nil
}

// recentWindow renders the last n turns, oldest first.
func recentWindow(history []llm.Message, n int) string {
	if n <= 0 || len(history) == 0 {
		return ""
	}
	if len(history) > n {
		history = history[len(history)-n:]
	}
	var sb strings.Builder
	for _, m := range history {
		sb.WriteString(m.Role)
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
