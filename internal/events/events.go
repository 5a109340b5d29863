// Package events carries progress notifications from background jobs to
// whoever is watching them. Each job gets independent subscriber queues; a
// slow consumer loses events rather than stalling the publisher.
package events

import (
	"encoding/json"
	"time"
)

// Stage identifies where in the pipeline a job currently is.
type Stage string

const (
	StagePlanning   Stage = "PLANNING"
	StageGenerating Stage = "GENERATING"
	StageLinting    Stage = "LINTING"
	StageTesting    Stage = "TESTING"
	StageRefining   Stage = "REFINING"
	StageCompleted  Stage = "COMPLETED"
	StageFailed     Stage = "FAILED"
)

// Type classifies what an event reports within its stage.
type Type string

const (
	TypeStepStart    Type = "STEP_START"
	TypeStepComplete Type = "STEP_COMPLETE"
	TypeLog          Type = "LOG"
	TypeError        Type = "ERROR"
)

// Event is one progress notification from a job.
type Event struct {
	JobID     string         `json:"job_id"`
	Timestamp time.Time      `json:"timestamp"`
	Stage     Stage          `json:"stage"`
	Type      Type           `json:"type"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// New builds an event stamped with the current time.
func New(jobID string, stage Stage, typ Type, content string) Event {
	return Event{
		JobID:     jobID,
		Timestamp: time.Now().UTC(),
		Stage:     stage,
		Type:      typ,
		Content:   content,
	}
}

// Terminal reports whether this event ends its job's stream: a terminal
// stage paired with a step-completion or error type.
func (e Event) Terminal() bool {
	if e.Stage != StageCompleted && e.Stage != StageFailed {
		return false
	}
	return e.Type == TypeStepComplete || e.Type == TypeError
}

// Envelope renders the event in the wire framing consumed by stream
// clients: a single-key object whose value is the event's JSON as a string.
func (e Event) Envelope() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"data": string(body)})
}
