package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dockq/internal/supervisor"
	"dockq/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func mustTemplate(t *testing.T, raw string) *supervisor.Template {
	t.Helper()
	tmpl, err := supervisor.ParseTemplate(raw)
	if err != nil {
		t.Fatalf("ParseTemplate: %v", err)
	}
	return tmpl
}

func TestRunAllPassesForReadyTable(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("vina-job"))
	cfg.Logging.Dir = ""
	testsupport.WriteTable(t, cfg.Store.Path, "ligand,status\na,pending\nb,done\n")

	results := RunAll(context.Background(), cfg, mustTemplate(t, "vina-job --ligand {ligand}"))
	if failed := Failed(results); len(failed) > 0 {
		t.Fatalf("expected all checks to pass, got %+v", failed)
	}
	table, ok := Find(results, NameTable)
	if !ok || !strings.Contains(table.Detail, "2 rows, 1 pending") {
		t.Fatalf("unexpected table result: %+v", table)
	}
}

func TestRunAllReportsMissingPieces(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Logging.Dir = ""
	testsupport.WriteTable(t, cfg.Store.Path, "ligand,status\na,pending\n")

	results := RunAll(context.Background(), cfg, mustTemplate(t, "dockq-missing-program {receptor} {ligand}"))
	program, _ := Find(results, NameJobProgram)
	if program.Passed {
		t.Fatalf("expected missing program to fail, got %+v", program)
	}
	fields, _ := Find(results, NameTemplateFields)
	if fields.Passed || !strings.Contains(fields.Detail, "{receptor}") {
		t.Fatalf("expected missing column to be reported, got %+v", fields)
	}
}

func TestRunAllSkipsFieldCheckWhenTableUnreadable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Logging.Dir = ""

	results := RunAll(context.Background(), cfg, mustTemplate(t, "{cmd}"))
	table, _ := Find(results, NameTable)
	if table.Passed {
		t.Fatalf("expected missing table to fail, got %+v", table)
	}
	if _, ok := Find(results, NameTemplateFields); ok {
		t.Fatal("expected template field check to be skipped")
	}
	program, _ := Find(results, NameJobProgram)
	if !program.Passed {
		t.Fatalf("expected field-driven program to be skipped as passing, got %+v", program)
	}
}

func TestCheckConverter(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if result := CheckConverter(cfg); !result.Passed {
		t.Fatalf("expected stubbed converter to resolve, got %+v", result)
	}
	cfg.Prepare.Converter = "dockq-missing-converter"
	if result := CheckConverter(cfg); result.Passed {
		t.Fatal("expected missing converter to fail")
	}
}
