// Package sandbox executes generated Python programs in an isolated
// interpreter, either a local python binary or one inside a docker
// container, with stdout and stderr captured separately and a hard
// timeout enforced.
package sandbox

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
)

// CommandRunner defines the interface for running external commands with
// stdin fed from the caller. This abstraction allows mocking command
// execution in tests.
type CommandRunner interface {
	// Run executes a command, writing stdin to the process, and returns
	// stdout and stderr separately. The returned buffers hold whatever the
	// process wrote even when err is non-nil.
	Run(ctx context.Context, workDir, stdin string, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner implements CommandRunner using os/exec.
type ExecRunner struct{}

// NewRunner creates a new ExecRunner.
func NewRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run executes a command with separate output capture.
func (r *ExecRunner) Run(ctx context.Context, workDir, stdin string, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if workDir != "" {
		cmd.Dir = workDir
	}
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	err := cmd.Run()
	return out.Bytes(), errOut.Bytes(), err
}

// Verify ExecRunner implements CommandRunner at compile time.
var _ CommandRunner = (*ExecRunner)(nil)
