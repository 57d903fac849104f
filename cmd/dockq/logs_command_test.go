package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLogsCommandShowsWorkerLines(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Logging.Dir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	content := "2026-01-02T15:04:05Z INFO [w1] worker: item claimed\n" +
		"2026-01-02T15:04:05Z INFO [w2] worker: item claimed\n" +
		"2026-01-02T15:04:06Z INFO [w1] worker: item done\n"
	if err := os.WriteFile(filepath.Join(env.cfg.Logging.Dir, "dockq.log"), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--worker", "w1", "-n", "5"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Count(out, "\n") != 2 || strings.Contains(out, "[w2]") {
		t.Fatalf("unexpected logs output: %q", out)
	}
	requireContains(t, out, "item done")
}
