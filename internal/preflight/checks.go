package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sys/unix"

	"dockq/internal/config"
	"dockq/internal/deps"
	"dockq/internal/queue"
	"dockq/internal/supervisor"
)

// TableResult extends Result with the parameter columns of a readable table.
type TableResult struct {
	Result
	Columns []string
	Health  queue.HealthSummary
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckTable opens the configured store and reads the table under its lock.
func CheckTable(ctx context.Context, cfg *config.Config) TableResult {
	result := TableResult{Result: Result{Name: NameTable}}
	store, err := queue.Open(cfg, nil)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	defer store.Close()

	table, err := store.Snapshot(ctx)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	health, err := store.Health(ctx)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	result.Passed = true
	result.Columns = table.ParamColumns()
	result.Health = health
	result.Detail = fmt.Sprintf("%s (%d rows, %d pending)", store.Path(), health.Total, health.Pending)
	return result
}

// CheckJobProgram resolves the template's literal program on PATH. Templates
// whose program comes from a field are skipped.
func CheckJobProgram(tmpl *supervisor.Template) Result {
	program, ok := tmpl.Program()
	if !ok {
		return Result{Name: NameJobProgram, Passed: true, Detail: "program comes from a table field; not checked"}
	}
	statuses := deps.CheckBinaries([]deps.Requirement{{
		Name:        NameJobProgram,
		Command:     program,
		Description: "Runs each claimed row",
	}})
	status := statuses[0]
	if !status.Available {
		return Result{Name: NameJobProgram, Detail: status.Detail}
	}
	return Result{Name: NameJobProgram, Passed: true, Detail: status.Path}
}

// CheckTemplateFields verifies that every placeholder names a table column.
func CheckTemplateFields(tmpl *supervisor.Template, columns []string) Result {
	known := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		known[c] = struct{}{}
	}
	var missing []string
	for _, name := range tmpl.Placeholders() {
		if _, ok := known[name]; !ok {
			missing = append(missing, "{"+name+"}")
		}
	}
	if len(missing) > 0 {
		return Result{
			Name:   NameTemplateFields,
			Detail: fmt.Sprintf("no column for %s; every row would fail", strings.Join(missing, ", ")),
		}
	}
	return Result{Name: NameTemplateFields, Passed: true, Detail: strings.Join(tmpl.Placeholders(), ", ")}
}

// CheckConverter resolves the ligand converter used by "dockq prepare".
func CheckConverter(cfg *config.Config) Result {
	statuses := deps.CheckBinaries([]deps.Requirement{{
		Name:        "Converter",
		Command:     cfg.Prepare.Converter,
		Description: "Converts ligands before docking",
	}})
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		return Result{Name: "Converter", Detail: missing[0].Detail}
	}
	return Result{Name: "Converter", Passed: true, Detail: statuses[0].Path}
}
