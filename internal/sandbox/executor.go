package sandbox

import (
	"context"
	"errors"
	"log"
	"os/exec"
	"strings"
	"time"

	"github.com/ShayCichocki/valet/internal/config"
)

// harness receives the program on stdin and execs it under a top-level
// exception trap, so every uncaught failure leaves a recognizable marker
// on stderr and a non-zero exit.
const harness = `import sys, traceback
_code = sys.stdin.read()
try:
    exec(compile(_code, "solution.py", "exec"), {"__name__": "__main__"})
except SystemExit:
    raise
except BaseException as e:
    traceback.print_exc(file=sys.stderr)
    print("RUNTIME ERROR: %s" % e, file=sys.stderr)
    sys.exit(1)
`

// Error signatures scanned for in sandbox output. Matching either marks an
// execution as failed regardless of exit code.
var errorSignatures = []string{
	"Traceback (most recent call last)",
	"RUNTIME ERROR:",
}

// Result is the outcome of one sandboxed execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	TimedOut bool
	Duration time.Duration
}

// Failed reports whether the execution should drive a correction retry.
func (r Result) Failed() bool {
	if r.TimedOut || r.ExitCode != 0 {
		return true
	}
	combined := r.Stdout + "\n" + r.Stderr
	for _, sig := range errorSignatures {
		if strings.Contains(combined, sig) {
			return true
		}
	}
	return false
}

// FailureDetail returns the text a correction prompt should see: stderr if
// present, combined output otherwise, plus a timeout note when applicable.
func (r Result) FailureDetail() string {
	detail := strings.TrimSpace(r.Stderr)
	if detail == "" {
		detail = strings.TrimSpace(r.Stdout)
	}
	if r.TimedOut {
		if detail != "" {
			detail += "\n"
		}
		detail += "execution timed out after the configured limit"
	}
	return detail
}

// Executor runs Python programs under the configured sandbox. When a
// container name is configured, programs run through docker exec inside it;
// otherwise the local python binary is used.
type Executor struct {
	runner    CommandRunner
	cfg       config.SandboxConfig
	installer *Installer
}

// NewExecutor creates an Executor. A nil runner uses the real ExecRunner.
func NewExecutor(cfg config.SandboxConfig, runner CommandRunner) *Executor {
	if runner == nil {
		runner = NewRunner()
	}
	return &Executor{
		runner:    runner,
		cfg:       cfg,
		installer: NewInstaller(cfg, runner),
	}
}

// Execute runs code with the configured timeout. Missing third-party
// imports are installed first. On timeout the partial output captured so
// far is returned with TimedOut set.
func (e *Executor) Execute(ctx context.Context, code string) Result {
	if err := e.installer.EnsureImports(ctx, code); err != nil {
		log.Printf("[sandbox] dependency install incomplete: %v", err)
	}

	runCtx := ctx
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	name, args := e.command("-c", harness)
	start := time.Now()
	stdout, stderr, err := e.runner.Run(runCtx, e.cfg.WorkDir, code, name, args...)

	res := Result{
		Stdout:   string(stdout),
		Stderr:   string(stderr),
		Duration: time.Since(start),
	}
	if err != nil {
		res.ExitCode = 1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			res.TimedOut = true
		}
	}
	return res
}

// command builds the interpreter invocation for the configured mode.
func (e *Executor) command(pythonArgs ...string) (string, []string) {
	if e.cfg.Container != "" {
		args := append([]string{"exec", "-i", e.cfg.Container, e.cfg.Python}, pythonArgs...)
		return "docker", args
	}
	return e.cfg.Python, pythonArgs
}
