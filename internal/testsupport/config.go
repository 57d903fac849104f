package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"dockq/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a unique temp directory per test.
// The table path points at params.csv inside it; nothing is created on disk.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Store.Path = filepath.Join(base, "params.csv")
	cfgVal.Store.LockPollMillis = 5
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Worker.KillGraceSeconds = 1
	cfgVal.Worker.ReportRetries = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithBackend selects the store backend; sqlite tables live in params.db.
func WithBackend(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Store.Backend = name
		if name == config.BackendSQLite {
			b.cfg.Store.Path = filepath.Join(b.baseDir, "params.db")
		}
	}
}

// WithTimeLimit sets the per-job time limit in seconds.
func WithTimeLimit(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Worker.TimeLimit = seconds
	}
}

// WithCommandTemplate overrides the job command template.
func WithCommandTemplate(template string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Worker.CommandTemplate = template
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default docking converter
// is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{b.cfg.Prepare.Converter}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Store.Path)
}
