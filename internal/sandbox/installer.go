package sandbox

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/ShayCichocki/valet/internal/config"
)

// importLine matches "import x" and "from x import y" statements. The name
// list in the import branch is confined to one line; aliases and commas are
// handled during the scan.
var importLine = regexp.MustCompile(`(?m)^[ \t]*(?:import[ \t]+([\w., \t]+)|from[ \t]+([\w.]+)[ \t]+import[ \t])`)

// pypiPackages maps import names to the PyPI package that provides them.
// Only modules listed here are ever installed; anything else is left to
// fail with its own ImportError rather than guessed at.
var pypiPackages = map[string]string{
	"requests":          "requests",
	"httpx":             "httpx",
	"boto3":             "boto3",
	"redis":             "redis",
	"sqlalchemy":        "sqlalchemy",
	"pymongo":           "pymongo",
	"psutil":            "psutil",
	"playwright":        "playwright",
	"wikipedia":         "wikipedia",
	"yfinance":          "yfinance",
	"pandas":            "pandas",
	"numpy":             "numpy",
	"matplotlib":        "matplotlib",
	"google":            "google-api-python-client",
	"googleapiclient":   "google-api-python-client",
	"psycopg2":          "psycopg2-binary",
	"duckduckgo_search": "duckduckgo-search",
	"bs4":               "beautifulsoup4",
	"PIL":               "Pillow",
	"cv2":               "opencv-python",
	"sklearn":           "scikit-learn",
	"yaml":              "PyYAML",
	"dotenv":            "python-dotenv",
	"dateutil":          "python-dateutil",
	"docx":              "python-docx",
	"fitz":              "PyMuPDF",
	"Crypto":            "pycryptodome",
	"serial":            "pyserial",
	"websocket":         "websocket-client",
}

// stdlibModules is the subset of the standard library that generated
// programs actually reach for. Anything listed here is never installed.
var stdlibModules = map[string]bool{
	"abc": true, "argparse": true, "asyncio": true, "base64": true,
	"collections": true, "contextlib": true, "csv": true, "dataclasses": true,
	"datetime": true, "decimal": true, "difflib": true, "enum": true,
	"functools": true, "glob": true, "hashlib": true, "heapq": true,
	"html": true, "http": true, "io": true, "itertools": true, "json": true,
	"logging": true, "math": true, "os": true, "pathlib": true, "pickle": true,
	"queue": true, "random": true, "re": true, "shutil": true, "socket": true,
	"sqlite3": true, "statistics": true, "string": true, "subprocess": true,
	"sys": true, "tempfile": true, "textwrap": true, "threading": true,
	"time": true, "traceback": true, "typing": true, "unicodedata": true,
	"urllib": true, "uuid": true, "xml": true, "zipfile": true,
}

// ScanImports returns the top-level third-party modules a program imports,
// sorted and deduplicated. Standard-library modules are excluded.
func ScanImports(code string) []string {
	seen := map[string]bool{}
	for _, m := range importLine.FindAllStringSubmatch(code, -1) {
		names := m[1]
		if names == "" {
			names = m[2]
		}
		for _, name := range strings.Split(names, ",") {
			name = strings.TrimSpace(name)
			if i := strings.IndexAny(name, ". "); i > 0 {
				name = name[:i]
			}
			if name == "" || stdlibModules[name] {
				continue
			}
			seen[name] = true
		}
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Installer makes third-party imports available in the sandbox before
// execution. Each module is resolved at most once per process; concurrent
// workers share the cache.
type Installer struct {
	runner CommandRunner
	cfg    config.SandboxConfig

	mu    sync.Mutex
	ready map[string]bool
}

// NewInstaller creates an Installer sharing the executor's runner.
func NewInstaller(cfg config.SandboxConfig, runner CommandRunner) *Installer {
	return &Installer{runner: runner, cfg: cfg, ready: make(map[string]bool)}
}

// EnsureImports scans code and installs any missing third-party modules.
// Install failures are reported but do not block execution; the program's
// own ImportError produces a clearer retry signal.
func (i *Installer) EnsureImports(ctx context.Context, code string) error {
	var failed []string
	for _, module := range ScanImports(code) {
		if err := i.ensure(ctx, module); err != nil {
			log.Printf("[sandbox] install %s: %v", module, err)
			failed = append(failed, module)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("could not install: %s", strings.Join(failed, ", "))
	}
	return nil
}

func (i *Installer) ensure(ctx context.Context, module string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.ready[module] {
		return nil
	}

	pkg, ok := pypiPackages[module]
	if !ok {
		// Unmapped imports fail naturally inside the program instead of
		// triggering an install under a guessed package name.
		i.ready[module] = true
		return nil
	}

	if i.importable(ctx, module) {
		i.ready[module] = true
		return nil
	}

	installCtx := ctx
	if i.cfg.InstallTimeout > 0 {
		var cancel context.CancelFunc
		installCtx, cancel = context.WithTimeout(ctx, i.cfg.InstallTimeout)
		defer cancel()
	}

	name, args := i.command("-m", "pip", "install", "--quiet", pkg)
	if _, stderr, err := i.runner.Run(installCtx, i.cfg.WorkDir, "", name, args...); err != nil {
		return fmt.Errorf("pip install %s: %w: %s", pkg, err, strings.TrimSpace(string(stderr)))
	}
	log.Printf("[sandbox] installed %s for import %s", pkg, module)
	i.ready[module] = true
	return nil
}

// importable probes whether the sandbox interpreter can already import the
// module.
func (i *Installer) importable(ctx context.Context, module string) bool {
	name, args := i.command("-c", "import "+module)
	_, _, err := i.runner.Run(ctx, i.cfg.WorkDir, "", name, args...)
	return err == nil
}

func (i *Installer) command(pythonArgs ...string) (string, []string) {
	if i.cfg.Container != "" {
		args := append([]string{"exec", "-i", i.cfg.Container, i.cfg.Python}, pythonArgs...)
		return "docker", args
	}
	return i.cfg.Python, pythonArgs
}
