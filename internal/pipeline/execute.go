package pipeline

import (
	"context"

	"github.com/ShayCichocki/valet/internal/engine"
)

// lint gates generated code on the configured static checker. Findings
// feed the same correction edge as an execution failure and cost one
// attempt; an unavailable checker passes everything through.
func (p *Pipeline) lint(ctx context.Context, s *engine.State) (engine.Patch, error) {
	clean, findings := p.linter.Check(ctx, s.Code)
	if clean {
		return engine.Patch{}, nil
	}
	return engine.Patch{ErrorMessage: engine.Str("lint: " + findings)}, nil
}

// execute runs the candidate program in the sandbox. Success stores the
// captured stdout; failure stores the detail that drives the retry edge.
func (p *Pipeline) execute(ctx context.Context, s *engine.State) (engine.Patch, error) {
	res := p.executor.Execute(ctx, s.Code)
	if res.Failed() {
		return engine.Patch{ErrorMessage: engine.Str(res.FailureDetail())}, nil
	}
	return engine.Patch{
		Result:       engine.Str(res.Stdout),
		ErrorMessage: engine.Str(""),
	}, nil
}
