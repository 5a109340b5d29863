// Package pipeline wires the request-handling stages onto the engine
// graph: routing, context assembly, planning, code generation, linting,
// sandboxed execution with bounded self-correction, parallel fan-out, and
// solution approval. Stage semantics live here; sequencing lives in the
// engine.
package pipeline

import (
	"context"

	"github.com/ShayCichocki/valet/internal/config"
	"github.com/ShayCichocki/valet/internal/engine"
	"github.com/ShayCichocki/valet/internal/llm"
	"github.com/ShayCichocki/valet/internal/memory"
	"github.com/ShayCichocki/valet/internal/registry"
	"github.com/ShayCichocki/valet/internal/sandbox"
	"github.com/ShayCichocki/valet/pkg/models"
)

// Stage names registered on the graph.
const (
	stageRoute      = "route"
	stageSpeed      = "speed"
	stageContext    = "context"
	stagePlan       = "plan"
	stageGenerate   = "generate"
	stageLint       = "lint"
	stageExecute    = "execute"
	stageApprove    = "approve"
	stageFanOut     = "fanout"
	stageSynthesize = "synthesize"
	stageRespond    = "respond"
)

// StatusFunc receives worker status transitions during parallel fan-out.
type StatusFunc func(taskID string, status models.SubTaskStatus)

// Pipeline owns the stage implementations and their collaborators.
type Pipeline struct {
	cfg      *config.Config
	llm      llm.Collaborator
	memory   memory.Store
	registry *registry.Registry
	executor *sandbox.Executor
	linter   *sandbox.Linter

	// OnWorkerStatus, when set, observes every worker transition in the
	// parallel path.
	OnWorkerStatus StatusFunc
	// OnResponseDelta, when set, receives answer tokens as the speed path
	// streams them.
	OnResponseDelta func(token string)
}

// New assembles a Pipeline. memory may be nil for a memoryless assistant.
func New(cfg *config.Config, collab llm.Collaborator, mem memory.Store, reg *registry.Registry, ex *sandbox.Executor, lint *sandbox.Linter) *Pipeline {
	if mem == nil {
		mem = memory.Nop{}
	}
	return &Pipeline{
		cfg:      cfg,
		llm:      collab,
		memory:   mem,
		registry: reg,
		executor: ex,
		linter:   lint,
	}
}

// Graph builds the stage graph for the synchronous request path.
func (p *Pipeline) Graph(checkpointer engine.Checkpointer) *engine.Graph {
	opts := []engine.Option{engine.WithMaxVisits(p.cfg.Engine.MaxStageVisits)}
	if checkpointer != nil {
		opts = append(opts, engine.WithCheckpointer(checkpointer))
	}
	g := engine.New(opts...)

	g.AddStage(stageRoute, p.route)
	g.AddStage(stageSpeed, p.speedPath)
	g.AddStage(stageContext, p.buildContext)
	g.AddStage(stagePlan, p.plan)
	g.AddStage(stageGenerate, p.generate)
	g.AddStage(stageLint, p.lint)
	g.AddStage(stageExecute, p.execute)
	g.AddStage(stageApprove, p.approve)
	g.AddStage(stageFanOut, p.fanOut)
	g.AddStage(stageSynthesize, p.synthesize)
	g.AddStage(stageRespond, p.respond)

	g.SetStart(stageRoute)
	g.AddConditionalEdge(stageRoute, func(s *engine.State) string {
		if s.Route == RouteSpeed {
			return stageSpeed
		}
		return stageContext
	})
	g.AddEdge(stageContext, stagePlan)
	g.AddConditionalEdge(stagePlan, func(s *engine.State) string {
		if s.Plan.Parallel() {
			return stageFanOut
		}
		return stageGenerate
	})
	g.AddConditionalEdge(stageGenerate, func(s *engine.State) string {
		if s.Code == "" {
			// Nothing executable came back; the raw text is the answer.
			return stageRespond
		}
		return stageLint
	})
	g.AddConditionalEdge(stageLint, func(s *engine.State) string {
		if s.ErrorMessage != "" {
			return p.retryOrGiveUp(s)
		}
		return stageExecute
	})
	g.AddConditionalEdge(stageExecute, func(s *engine.State) string {
		if s.ErrorMessage != "" {
			return p.retryOrGiveUp(s)
		}
		return stageApprove
	})
	g.AddEdge(stageApprove, stageRespond)
	g.AddEdge(stageFanOut, stageSynthesize)
	g.AddConditionalEdge(stageSynthesize, endOrRecover)
	g.AddEdge(stageRespond, engine.End)
	g.AddConditionalEdge(stageSpeed, endOrRecover)

	return g
}

// endOrRecover terminates on success and detours through the respond stage
// when a stage failure landed on the state, so the user never gets silence.
func endOrRecover(s *engine.State) string {
	if s.ErrorMessage != "" {
		return stageRespond
	}
	return engine.End
}

// retryOrGiveUp chooses between another correction attempt and surfacing
// the failure. The bound counts correction attempts, so total generation
// attempts never exceed max retries plus one.
func (p *Pipeline) retryOrGiveUp(s *engine.State) string {
	if s.RetryCount < p.cfg.Engine.MaxRetries {
		return stageGenerate
	}
	return stageRespond
}

// Run processes one request through the graph.
func (p *Pipeline) Run(ctx context.Context, sessionID, text string, history []llm.Message) (*engine.State, error) {
	g := p.Graph(nil)
	return g.Run(ctx, &engine.State{
		SessionID:  sessionID,
		Text:       text,
		History:    history,
		Directives: p.cfg.Context.Directives,
	})
}
