package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"dockq/internal/queue"
	"dockq/internal/testsupport"
)

func TestQueueStatusRendersCounts(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteTable(t, env.cfg.Store.Path, "cmd,status\na,pending\nb,in_progress\nc,done\nd,done\n")

	out, _, err := runCLI(t, []string{"queue", "status"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "In Progress")
	requireContains(t, out, "Total")
	requireContains(t, out, "dockq queue reset")
}

func TestQueueStatusJSON(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithCommandTemplate("echo {cmd}"))
	testsupport.WriteTable(t, env.cfg.Store.Path, "cmd,status\na,pending\nb,failed\n")

	out, _, err := runCLI(t, []string{"queue", "status", "--json", "--check"}, env.configPath)
	if err != nil {
		t.Fatalf("queue status --json: %v", err)
	}
	var view statusView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode status json: %v\n%s", err, out)
	}
	if view.Total != 2 || view.Counts["pending"] != 1 || view.Counts["failed"] != 1 || view.Drained {
		t.Fatalf("unexpected status view: %+v", view)
	}
	if len(view.Preflight) == 0 {
		t.Fatal("expected preflight results with --check")
	}
}

func TestQueueListFiltersByStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteTable(t, env.cfg.Store.Path, "cmd,status\nalpha,pending\nbeta,failed\ngamma,pending\n")

	out, _, err := runCLI(t, []string{"queue", "list", "--status", "pending", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	var views []itemView
	if err := json.Unmarshal([]byte(out), &views); err != nil {
		t.Fatalf("decode list json: %v\n%s", err, out)
	}
	if len(views) != 2 || views[0].Row != 1 || views[1].Row != 3 || views[1].Params["cmd"] != "gamma" {
		t.Fatalf("unexpected list: %+v", views)
	}

	out, _, err = runCLI(t, []string{"queue", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("queue list table: %v", err)
	}
	requireContains(t, out, "beta")
	requireContains(t, out, "Failed")
}

func TestQueueListRejectsUnknownStatus(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteTable(t, env.cfg.Store.Path, "cmd,status\na,pending\n")
	if _, _, err := runCLI(t, []string{"queue", "list", "--status", "stuck"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestQueueResetRequeuesInProgress(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteTable(t, env.cfg.Store.Path, "cmd,status\na,in_progress\nb,done\nc,in_progress\n")

	out, _, err := runCLI(t, []string{"queue", "reset"}, env.configPath)
	if err != nil {
		t.Fatalf("queue reset: %v", err)
	}
	requireContains(t, out, "Reset 2 row(s)")
	got := testsupport.Statuses(t, testsupport.MustOpenStore(t, env.cfg))
	want := []queue.Status{queue.StatusPending, queue.StatusDone, queue.StatusPending}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("statuses = %v, want %v", got, want)
		}
	}
}

func TestQueueSeedBuildsDockingTable(t *testing.T) {
	env := setupCLITestEnv(t)
	inputs := filepath.Join(env.baseDir, "ligands")
	for _, name := range []string{"batch_b", "batch_a"} {
		if err := os.MkdirAll(filepath.Join(inputs, name), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	args := []string{"queue", "seed",
		"--receptor", filepath.Join(env.baseDir, "receptor.pdbqt"),
		"--config-file", filepath.Join(env.baseDir, "vina.txt"),
		"--inputs", inputs,
		"--outputs", filepath.Join(env.baseDir, "results"),
	}

	out, _, err := runCLI(t, args, env.configPath)
	if err != nil {
		t.Fatalf("queue seed: %v", err)
	}
	requireContains(t, out, "Seeded 2 row(s)")
	content := testsupport.ReadTable(t, env.cfg.Store.Path)
	requireContains(t, content, "REC_FILE,CONFIG_FILE,INPUT_DIR,OUTPUT_DIR,status")
	requireContains(t, content, filepath.Join(inputs, "batch_a"))

	if _, _, err := runCLI(t, args, env.configPath); err == nil {
		t.Fatal("expected seed to refuse an existing table")
	}
	if _, _, err := runCLI(t, append(args, "--force"), env.configPath); err != nil {
		t.Fatalf("seed --force: %v", err)
	}
}
