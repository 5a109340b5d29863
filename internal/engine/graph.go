package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// End is the terminal stage name. Routing to End stops the run.
const End = "__end__"

// ErrMaxVisits is returned when a run exceeds its stage-visit budget,
// which indicates a routing cycle.
var ErrMaxVisits = errors.New("engine: stage visit budget exhausted")

// StageFunc is one step of request handling. It must not mutate the state;
// all changes go through the returned Patch.
type StageFunc func(ctx context.Context, s *State) (Patch, error)

// RouterFunc picks the next stage name from the current state.
type RouterFunc func(s *State) string

// Graph is a directed stage machine with static and conditional edges.
type Graph struct {
	stages  map[string]StageFunc
	edges   map[string]string
	routers map[string]RouterFunc
	start   string

	maxVisits  int
	checkpoint Checkpointer
}

// Option configures a Graph.
type Option func(*Graph)

// WithMaxVisits caps the total number of stage executions per run.
func WithMaxVisits(n int) Option {
	return func(g *Graph) { g.maxVisits = n }
}

// WithCheckpointer saves state after every stage, keyed by session ID.
func WithCheckpointer(c Checkpointer) Option {
	return func(g *Graph) { g.checkpoint = c }
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		stages:    make(map[string]StageFunc),
		edges:     make(map[string]string),
		routers:   make(map[string]RouterFunc),
		maxVisits: 25,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddStage registers a named stage. The first stage added becomes the start
// stage unless SetStart overrides it.
func (g *Graph) AddStage(name string, fn StageFunc) {
	if len(g.stages) == 0 {
		g.start = name
	}
	g.stages[name] = fn
}

// SetStart sets the entry stage.
func (g *Graph) SetStart(name string) {
	g.start = name
}

// AddEdge wires an unconditional transition from one stage to the next.
func (g *Graph) AddEdge(from, to string) {
	g.edges[from] = to
}

// AddConditionalEdge wires a router that picks the successor at runtime.
// A router takes precedence over a static edge on the same stage.
func (g *Graph) AddConditionalEdge(from string, router RouterFunc) {
	g.routers[from] = router
}

// Run drives the state through the graph until a stage routes to End or the
// visit budget is exhausted. A stage failure never aborts the run: the error
// is folded into the state's ErrorMessage and routing continues, so every
// run that stays within budget reaches a terminal stage. Run itself errors
// only on misconfiguration, context cancellation, or budget exhaustion.
func (g *Graph) Run(ctx context.Context, s *State) (*State, error) {
	if _, ok := g.stages[g.start]; !ok {
		return s, fmt.Errorf("engine: start stage %q not registered", g.start)
	}

	current := g.start
	for visits := 0; ; visits++ {
		if visits >= g.maxVisits {
			return s, fmt.Errorf("%w: %d visits, stuck at %q", ErrMaxVisits, visits, current)
		}
		if err := ctx.Err(); err != nil {
			return s, err
		}

		fn, ok := g.stages[current]
		if !ok {
			return s, fmt.Errorf("engine: stage %q not registered", current)
		}

		patch, err := g.runStage(ctx, current, fn, s)
		patch.Apply(s)
		if err != nil {
			s.ErrorMessage = fmt.Sprintf("stage %s: %v", current, err)
			log.Printf("[engine] %s", s.ErrorMessage)
		}

		if g.checkpoint != nil && s.SessionID != "" {
			if err := g.checkpoint.Save(s.SessionID, s); err != nil {
				log.Printf("[engine] checkpoint save failed for %s: %v", s.SessionID, err)
			}
		}

		next := g.next(current, s)
		if next == End {
			return s, nil
		}
		current = next
	}
}

// runStage invokes one stage, converting panics into errors so a bad stage
// cannot take down the process.
func (g *Graph) runStage(ctx context.Context, name string, fn StageFunc, s *State) (patch Patch, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, s)
}

func (g *Graph) next(current string, s *State) string {
	if router, ok := g.routers[current]; ok {
		return router(s)
	}
	if to, ok := g.edges[current]; ok {
		return to
	}
	return End
}
