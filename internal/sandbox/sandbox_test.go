package sandbox

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/valet/internal/config"
)

// fakeRunner dispatches every command to a handler function.
type fakeRunner struct {
	handler func(ctx context.Context, stdin, name string, args []string) ([]byte, []byte, error)
	calls   [][]string
}

func (f *fakeRunner) Run(ctx context.Context, _, stdin, name string, args ...string) ([]byte, []byte, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.handler(ctx, stdin, name, args)
}

func sandboxConfig() config.SandboxConfig {
	return config.SandboxConfig{
		Python:  "python3",
		Timeout: time.Second,
	}
}

// exitError produces a real *exec.ExitError for fakes to return.
func exitError(t *testing.T) error {
	t.Helper()
	err := exec.Command("sh", "-c", "exit 3").Run()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Skipf("cannot fabricate exit error: %v", err)
	}
	return err
}

func TestExecute_Success(t *testing.T) {
	runner := &fakeRunner{handler: func(_ context.Context, stdin, name string, args []string) ([]byte, []byte, error) {
		return []byte("42\n"), nil, nil
	}}
	ex := NewExecutor(sandboxConfig(), runner)

	res := ex.Execute(context.Background(), `print(6 * 7)`)
	if res.Failed() {
		t.Fatalf("clean run reported failed: %+v", res)
	}
	if res.Stdout != "42\n" {
		t.Errorf("stdout = %q", res.Stdout)
	}
}

func TestExecute_CodeFedViaStdin(t *testing.T) {
	var gotStdin string
	runner := &fakeRunner{handler: func(_ context.Context, stdin, name string, args []string) ([]byte, []byte, error) {
		gotStdin = stdin
		return nil, nil, nil
	}}
	ex := NewExecutor(sandboxConfig(), runner)

	code := `print("hello")`
	ex.Execute(context.Background(), code)
	if gotStdin != code {
		t.Errorf("stdin = %q, want the program text", gotStdin)
	}
}

func TestExecute_NonzeroExitIsFailure(t *testing.T) {
	exitErr := exitError(t)
	runner := &fakeRunner{handler: func(_ context.Context, stdin, name string, args []string) ([]byte, []byte, error) {
		return nil, []byte("RUNTIME ERROR: division by zero\n"), exitErr
	}}
	ex := NewExecutor(sandboxConfig(), runner)

	res := ex.Execute(context.Background(), `1 / 0`)
	if !res.Failed() {
		t.Fatal("failing run reported clean")
	}
	if res.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", res.ExitCode)
	}
	if !strings.Contains(res.FailureDetail(), "division by zero") {
		t.Errorf("failure detail = %q", res.FailureDetail())
	}
}

func TestExecute_ErrorSignatureWithCleanExit(t *testing.T) {
	// Some programs swallow exceptions but still print tracebacks.
	runner := &fakeRunner{handler: func(_ context.Context, stdin, name string, args []string) ([]byte, []byte, error) {
		return []byte("Traceback (most recent call last):\n  ...\n"), nil, nil
	}}
	ex := NewExecutor(sandboxConfig(), runner)

	if res := ex.Execute(context.Background(), `main()`); !res.Failed() {
		t.Error("traceback in stdout not treated as failure")
	}
}

func TestExecute_TimeoutReturnsPartialOutput(t *testing.T) {
	cfg := sandboxConfig()
	cfg.Timeout = 20 * time.Millisecond
	runner := &fakeRunner{handler: func(ctx context.Context, stdin, name string, args []string) ([]byte, []byte, error) {
		<-ctx.Done()
		return []byte("partial line\n"), nil, ctx.Err()
	}}
	ex := NewExecutor(cfg, runner)

	res := ex.Execute(context.Background(), `while True: pass`)
	if !res.TimedOut {
		t.Fatal("TimedOut not set")
	}
	if !res.Failed() {
		t.Error("timeout not treated as failure")
	}
	if res.Stdout != "partial line\n" {
		t.Errorf("partial output lost: %q", res.Stdout)
	}
	if !strings.Contains(res.FailureDetail(), "timed out") {
		t.Errorf("failure detail = %q", res.FailureDetail())
	}
}

func TestExecute_DockerMode(t *testing.T) {
	cfg := sandboxConfig()
	cfg.Container = "valet-sandbox"
	runner := &fakeRunner{handler: func(_ context.Context, stdin, name string, args []string) ([]byte, []byte, error) {
		return nil, nil, nil
	}}
	ex := NewExecutor(cfg, runner)

	ex.Execute(context.Background(), `print("hi")`)
	if len(runner.calls) == 0 {
		t.Fatal("no command ran")
	}
	call := runner.calls[len(runner.calls)-1]
	if call[0] != "docker" || call[1] != "exec" || call[2] != "-i" || call[3] != "valet-sandbox" {
		t.Errorf("command = %v, want docker exec -i valet-sandbox ...", call)
	}
}

func TestScanImports(t *testing.T) {
	tests := []struct {
		name string
		code string
		want []string
	}{
		{
			name: "plain imports",
			code: "import requests\nimport yfinance\n",
			want: []string{"requests", "yfinance"},
		},
		{
			name: "from imports and aliases",
			code: "from bs4 import BeautifulSoup\nimport pandas as pd\n",
			want: []string{"bs4", "pandas"},
		},
		{
			name: "stdlib excluded",
			code: "import json\nimport os, sys\nimport requests\n",
			want: []string{"requests"},
		},
		{
			name: "dotted module uses top level",
			code: "from matplotlib.pyplot import plot\n",
			want: []string{"matplotlib"},
		},
		{
			name: "no imports",
			code: "print('hello')\n",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScanImports(tt.code)
			if len(got) != len(tt.want) {
				t.Fatalf("ScanImports = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("ScanImports[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestInstaller_InstallsMappedPackageOnce(t *testing.T) {
	probeFailed := exitError(t)
	var installs []string
	runner := &fakeRunner{handler: func(_ context.Context, stdin, name string, args []string) ([]byte, []byte, error) {
		joined := strings.Join(args, " ")
		if strings.Contains(joined, "pip install") {
			installs = append(installs, args[len(args)-1])
			return nil, nil, nil
		}
		// Import probe fails until installed.
		if len(installs) == 0 {
			return nil, nil, probeFailed
		}
		return nil, nil, nil
	}}
	inst := NewInstaller(sandboxConfig(), runner)

	code := "from bs4 import BeautifulSoup\n"
	if err := inst.EnsureImports(context.Background(), code); err != nil {
		t.Fatalf("EnsureImports: %v", err)
	}
	if len(installs) != 1 || installs[0] != "beautifulsoup4" {
		t.Fatalf("installs = %v, want [beautifulsoup4]", installs)
	}

	// Second call hits the cache; no further pip invocations.
	if err := inst.EnsureImports(context.Background(), code); err != nil {
		t.Fatalf("EnsureImports again: %v", err)
	}
	if len(installs) != 1 {
		t.Errorf("pip ran %d times, want 1", len(installs))
	}
}

func TestInstaller_AlreadyImportableSkipsInstall(t *testing.T) {
	runner := &fakeRunner{handler: func(_ context.Context, stdin, name string, args []string) ([]byte, []byte, error) {
		return nil, nil, nil
	}}
	inst := NewInstaller(sandboxConfig(), runner)

	if err := inst.EnsureImports(context.Background(), "import requests\n"); err != nil {
		t.Fatalf("EnsureImports: %v", err)
	}
	for _, call := range runner.calls {
		if strings.Contains(strings.Join(call, " "), "pip install") {
			t.Errorf("pip ran for an importable module: %v", call)
		}
	}
}

func TestInstaller_UnmappedImportNeverInstalled(t *testing.T) {
	runner := &fakeRunner{handler: func(_ context.Context, stdin, name string, args []string) ([]byte, []byte, error) {
		return nil, nil, nil
	}}
	inst := NewInstaller(sandboxConfig(), runner)

	if err := inst.EnsureImports(context.Background(), "import somefancylib\n"); err != nil {
		t.Fatalf("EnsureImports: %v", err)
	}
	for _, call := range runner.calls {
		if strings.Contains(strings.Join(call, " "), "pip install") {
			t.Errorf("pip ran for an unmapped module: %v", call)
		}
	}
}

func TestLinter_FindingsOnNonzeroExit(t *testing.T) {
	exitErr := exitError(t)
	runner := &fakeRunner{handler: func(_ context.Context, stdin, name string, args []string) ([]byte, []byte, error) {
		return []byte("solution.py:1:1: F821 undefined name 'foo'\n"), nil, exitErr
	}}
	cfg := sandboxConfig()
	cfg.LintCommand = "ruff check"
	lint := NewLinter(cfg, runner)

	clean, findings := lint.Check(context.Background(), "foo()\n")
	if clean {
		t.Fatal("findings reported as clean")
	}
	if !strings.Contains(findings, "F821") {
		t.Errorf("findings = %q", findings)
	}
	if runner.calls[0][0] != "ruff" || runner.calls[0][1] != "check" {
		t.Errorf("lint command = %v", runner.calls[0])
	}
}

func TestLinter_MissingBinarySkips(t *testing.T) {
	runner := &fakeRunner{handler: func(_ context.Context, stdin, name string, args []string) ([]byte, []byte, error) {
		return nil, nil, errors.New(`exec: "ruff": executable file not found in $PATH`)
	}}
	cfg := sandboxConfig()
	cfg.LintCommand = "ruff check"
	lint := NewLinter(cfg, runner)

	if clean, _ := lint.Check(context.Background(), "print(1)\n"); !clean {
		t.Error("missing linter should not block execution")
	}
}

func TestLinter_NoCommandConfigured(t *testing.T) {
	lint := NewLinter(config.SandboxConfig{}, &fakeRunner{handler: func(_ context.Context, stdin, name string, args []string) ([]byte, []byte, error) {
		t.Fatal("runner should not be called")
		return nil, nil, nil
	}})
	if clean, _ := lint.Check(context.Background(), "print(1)\n"); !clean {
		t.Error("no lint command should mean clean")
	}
}
