package queue

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Docking job columns, as consumed by the default command template.
const (
	ColumnReceptor = "REC_FILE"
	ColumnConfig   = "CONFIG_FILE"
	ColumnInput    = "INPUT_DIR"
	ColumnOutput   = "OUTPUT_DIR"
)

// DockingColumns is the header of a seeded docking table.
var DockingColumns = []string{ColumnReceptor, ColumnConfig, ColumnInput, ColumnOutput, StatusColumn}

// SeedOptions describes a directory layout to turn into docking jobs.
type SeedOptions struct {
	Receptor   string
	Config     string
	InputsDir  string
	OutputsDir string
}

// BuildDockingTable creates one pending row per subdirectory of InputsDir,
// sorted by name, with the output directory named after the subdirectory.
func BuildDockingTable(opts SeedOptions) (*Table, error) {
	if strings.TrimSpace(opts.Receptor) == "" {
		return nil, errors.New("receptor file is required")
	}
	if strings.TrimSpace(opts.Config) == "" {
		return nil, errors.New("docking config file is required")
	}
	if strings.TrimSpace(opts.InputsDir) == "" || strings.TrimSpace(opts.OutputsDir) == "" {
		return nil, errors.New("inputs and outputs directories are required")
	}

	entries, err := os.ReadDir(opts.InputsDir)
	if err != nil {
		return nil, fmt.Errorf("read inputs directory: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	table, err := NewTable(DockingColumns)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		table.Append(map[string]string{
			ColumnReceptor: opts.Receptor,
			ColumnConfig:   opts.Config,
			ColumnInput:    filepath.Join(opts.InputsDir, name),
			ColumnOutput:   filepath.Join(opts.OutputsDir, name),
		})
	}
	return table, nil
}
