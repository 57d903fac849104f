package preflight

import (
	"context"
	"path/filepath"

	"dockq/internal/config"
	"dockq/internal/supervisor"
)

// Check names, used by callers that treat some failures as fatal.
const (
	NameTable          = "Work table"
	NameTableDirectory = "Table directory"
	NameLogDirectory   = "Log directory"
	NameJobProgram     = "Job program"
	NameTemplateFields = "Template fields"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check. tmpl may be nil when no command
// template is in play.
func RunAll(ctx context.Context, cfg *config.Config, tmpl *supervisor.Template) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	if cfg.Store.Backend != config.BackendMemory && cfg.Store.Path != "" {
		results = append(results, CheckDirectoryAccess(NameTableDirectory, filepath.Dir(cfg.Store.Path)))
	}
	if cfg.Logging.Dir != "" {
		results = append(results, CheckDirectoryAccess(NameLogDirectory, cfg.Logging.Dir))
	}

	table := CheckTable(ctx, cfg)
	results = append(results, table.Result)

	if tmpl != nil {
		results = append(results, CheckJobProgram(tmpl))
		if table.Passed {
			results = append(results, CheckTemplateFields(tmpl, table.Columns))
		}
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Find returns the result with the given name.
func Find(results []Result, name string) (Result, bool) {
	for _, r := range results {
		if r.Name == name {
			return r, true
		}
	}
	return Result{}, false
}
