package engine

import "sync"

// Checkpointer persists state between stages so a session can be resumed
// and inspected after a crash mid-run.
type Checkpointer interface {
	Save(sessionID string, s *State) error
	Load(sessionID string) (*State, bool)
}

// MemoryCheckpointer keeps checkpoints in process memory. Each Save stores
// a deep copy, so later patches never leak into a saved checkpoint.
type MemoryCheckpointer struct {
	mu     sync.RWMutex
	states map[string]*State
}

// NewMemoryCheckpointer creates an empty checkpointer.
func NewMemoryCheckpointer() *MemoryCheckpointer {
	return &MemoryCheckpointer{states: make(map[string]*State)}
}

// Save implements Checkpointer.
func (c *MemoryCheckpointer) Save(sessionID string, s *State) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[sessionID] = s.Clone()
	return nil
}

// Load implements Checkpointer. The returned state is a copy.
func (c *MemoryCheckpointer) Load(sessionID string) (*State, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.states[sessionID]
	if !ok {
		return nil, false
	}
	return s.Clone(), true
}
