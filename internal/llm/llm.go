// Package llm defines the language-model collaborator boundary and its
// Anthropic-backed implementation. The orchestration engine only ever sees
// the Collaborator interface; prompt text and model selection are inputs.
package llm

import (
	"context"
)

// Message is one prior conversation turn.
type Message struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`
	// Content is the turn's text.
	Content string `json:"content"`
}

// Collaborator is the language-model boundary used by all pipeline stages.
type Collaborator interface {
	// Complete runs the main model with a system persona and returns the
	// full text response.
	Complete(ctx context.Context, system, prompt string) (string, error)

	// Classify runs the router model at temperature zero. Output is
	// deterministic for identical input.
	Classify(ctx context.Context, system, prompt string) (string, error)

	// Stream runs the main model and delivers tokens incrementally via fn;
	// the response is never buffered in full before the first token.
	Stream(ctx context.Context, system, prompt string, fn func(token string)) error
}
