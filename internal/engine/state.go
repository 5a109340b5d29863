// Package engine implements the staged state machine that carries one user
// request from routing through planning, generation, execution, and
// synthesis. Stages are pure functions from state to patch; the engine owns
// sequencing, patch application, visit accounting, and checkpointing.
package engine

import (
	"github.com/ShayCichocki/valet/internal/llm"
	"github.com/ShayCichocki/valet/pkg/models"
)

// Reference is a stored solution retrieved for this request, carried so
// later stages can dedup against exactly what the generator was shown.
type Reference struct {
	Name string
	Code string
	// Text is the entry rendered for inclusion in a generation prompt.
	Text string
}

// State is everything known about one in-flight request. Stages never
// mutate it directly; they return a Patch the engine applies.
type State struct {
	// SessionID keys checkpoints and conversation history.
	SessionID string
	// Text is the user's request as received.
	Text string
	// Route is the chosen handling path: "chat", "task", or "speed".
	Route string

	// History holds prior conversation turns, oldest first.
	History []llm.Message
	// Directives are standing user instructions injected into every prompt.
	Directives []string
	// Memories are recalled long-term facts relevant to this request.
	Memories []string
	// ContextBlock is the assembled prompt context for this request.
	ContextBlock string

	// Plan is the decomposition of a task route into subtasks.
	Plan models.Plan
	// Code is the current candidate program for a sequential task.
	Code string
	// Result holds sandbox stdout from the last successful execution.
	Result string
	// ErrorMessage holds the failure detail driving a retry, if any.
	ErrorMessage string
	// RetryCount is the number of correction attempts consumed so far.
	RetryCount int

	// SubTaskResults maps subtask ID to its output for parallel plans.
	SubTaskResults map[string]string
	// ReferenceSolutions are registry entries retrieved for reuse.
	ReferenceSolutions []Reference

	// Response is the final text returned to the user.
	Response string
}

// Clone returns a deep copy so checkpoints stay isolated from later patches.
func (s *State) Clone() *State {
	cp := *s
	cp.History = append([]llm.Message(nil), s.History...)
	cp.Directives = append([]string(nil), s.Directives...)
	cp.Memories = append([]string(nil), s.Memories...)
	cp.Plan = append(models.Plan(nil), s.Plan...)
	cp.ReferenceSolutions = append([]Reference(nil), s.ReferenceSolutions...)
	if s.SubTaskResults != nil {
		cp.SubTaskResults = make(map[string]string, len(s.SubTaskResults))
		for k, v := range s.SubTaskResults {
			cp.SubTaskResults[k] = v
		}
	}
	return &cp
}

// Patch is a stage's proposed change to the state. Nil pointer fields are
// untouched. Messages and directives accumulate across stages; every other
// field overwrites.
type Patch struct {
	Route        *string
	ContextBlock *string
	Plan         *models.Plan
	Code         *string
	Result       *string
	ErrorMessage *string
	RetryCount   *int
	Response     *string

	Memories           []string
	ReferenceSolutions []Reference

	// AppendHistory adds turns to the conversation.
	AppendHistory []llm.Message
	// AppendDirectives adds standing instructions.
	AppendDirectives []string
	// SubTaskResults merges by subtask ID.
	SubTaskResults map[string]string
}

// Apply merges the patch into the state.
func (p Patch) Apply(s *State) {
	if p.Route != nil {
		s.Route = *p.Route
	}
	if p.ContextBlock != nil {
		s.ContextBlock = *p.ContextBlock
	}
	if p.Plan != nil {
		s.Plan = *p.Plan
	}
	if p.Code != nil {
		s.Code = *p.Code
	}
	if p.Result != nil {
		s.Result = *p.Result
	}
	if p.ErrorMessage != nil {
		s.ErrorMessage = *p.ErrorMessage
	}
	if p.RetryCount != nil {
		s.RetryCount = *p.RetryCount
	}
	if p.Response != nil {
		s.Response = *p.Response
	}
	if p.Memories != nil {
		s.Memories = p.Memories
	}
	if p.ReferenceSolutions != nil {
		s.ReferenceSolutions = p.ReferenceSolutions
	}
	s.History = append(s.History, p.AppendHistory...)
	s.Directives = append(s.Directives, p.AppendDirectives...)
	if len(p.SubTaskResults) > 0 {
		if s.SubTaskResults == nil {
			s.SubTaskResults = make(map[string]string, len(p.SubTaskResults))
		}
		for k, v := range p.SubTaskResults {
			s.SubTaskResults[k] = v
		}
	}
}

// String pointer helpers keep stage code terse.

// Str returns a pointer to s for use in Patch fields.
func Str(s string) *string { return &s }

// Int returns a pointer to n for use in Patch fields.
func Int(n int) *int { return &n }
