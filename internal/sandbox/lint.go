package sandbox

import (
	"context"
	"errors"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ShayCichocki/valet/internal/config"
)

// Linter runs the configured static checker over candidate code before it
// reaches the sandbox. A missing or broken linter never blocks execution.
type Linter struct {
	runner CommandRunner
	cfg    config.SandboxConfig
}

// NewLinter creates a Linter. A nil runner uses the real ExecRunner.
func NewLinter(cfg config.SandboxConfig, runner CommandRunner) *Linter {
	if runner == nil {
		runner = NewRunner()
	}
	return &Linter{runner: runner, cfg: cfg}
}

// Check lints code and returns its findings. clean is true when the linter
// found nothing, or when no linter is configured or installed.
func (l *Linter) Check(ctx context.Context, code string) (clean bool, findings string) {
	fields := strings.Fields(l.cfg.LintCommand)
	if len(fields) == 0 {
		return true, ""
	}

	dir, err := os.MkdirTemp("", "valet-lint-*")
	if err != nil {
		log.Printf("[sandbox] lint tempdir: %v", err)
		return true, ""
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "solution.py")
	if err := os.WriteFile(path, []byte(code), 0644); err != nil {
		log.Printf("[sandbox] lint write: %v", err)
		return true, ""
	}

	args := append(fields[1:], path)
	stdout, stderr, err := l.runner.Run(ctx, "", "", fields[0], args...)
	if err == nil {
		return true, ""
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		// Linter binary missing or unrunnable; skip the check.
		log.Printf("[sandbox] linter unavailable, skipping: %v", err)
		return true, ""
	}

	findings = strings.TrimSpace(string(stdout))
	if findings == "" {
		findings = strings.TrimSpace(string(stderr))
	}
	return false, findings
}
