// Package models defines the shared domain types for valet.
package models

// SubTaskStatus represents the current state of a planned subtask.
type SubTaskStatus string

const (
	// SubTaskPending indicates the subtask has not started.
	SubTaskPending SubTaskStatus = "pending"
	// SubTaskRunning indicates a worker is executing the subtask.
	SubTaskRunning SubTaskStatus = "running"
	// SubTaskComplete indicates the subtask finished successfully.
	SubTaskComplete SubTaskStatus = "complete"
	// SubTaskFailed indicates the subtask failed.
	SubTaskFailed SubTaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s SubTaskStatus) Valid() bool {
	switch s {
	case SubTaskPending, SubTaskRunning, SubTaskComplete, SubTaskFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true once a subtask can no longer change state.
func (s SubTaskStatus) Terminal() bool {
	return s == SubTaskComplete || s == SubTaskFailed
}

// SubTask is one unit of an independently executable decomposition of a
// larger request. The planner creates subtasks, a single worker mutates its
// own subtask while running, and nothing mutates it after fan-in.
type SubTask struct {
	// ID is unique within a plan and stable through fan-in.
	ID string `json:"id"`
	// Description is the natural-language statement of the work.
	Description string `json:"description"`
	// CodeHint is an optional nudge from the planner about implementation.
	CodeHint string `json:"code_hint,omitempty"`
	// Status is the current state of the subtask.
	Status SubTaskStatus `json:"status"`
	// Result holds the execution output once the subtask reaches a
	// terminal status.
	Result string `json:"result,omitempty"`
	// Code is the program the worker generated for this subtask.
	Code string `json:"code,omitempty"`
}

// Plan is an ordered set of subtasks produced by the task planner. An empty
// plan means the request executes on the sequential path.
type Plan []SubTask

// IDs returns the subtask ids in plan order.
func (p Plan) IDs() []string {
	ids := make([]string, len(p))
	for i, t := range p {
		ids[i] = t.ID
	}
	return ids
}

// Parallel reports whether the plan calls for parallel execution. A plan
// with fewer than two subtasks always runs sequentially.
func (p Plan) Parallel() bool {
	return len(p) > 1
}
