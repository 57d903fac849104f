// Package mol2 splits multi-molecule Tripos MOL2 files into one file per
// molecule.
package mol2

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"dockq/internal/fileutil"
	"dockq/internal/logging"
	"dockq/internal/progress"
)

// MoleculeMarker opens every molecule record.
const MoleculeMarker = "@<TRIPOS>MOLECULE"

// Options describes one split.
type Options struct {
	Input     string
	OutputDir string
	Prefix    string
	Suffix    string
	Progress  progress.Reporter
	Logger    *slog.Logger
}

// Result summarizes a split.
type Result struct {
	Molecules int
	Written   int
	// Skipped is true when the output directory already held every molecule.
	Skipped bool
}

// Blocks splits content into molecule records. Lines before the first marker
// belong to the first record. Each record ends with a newline.
func Blocks(content string) []string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}

	var (
		blocks []string
		start  int
		seen   bool
	)
	for idx, line := range lines {
		if line != MoleculeMarker {
			continue
		}
		if seen && idx > start {
			blocks = append(blocks, strings.Join(lines[start:idx], "\n")+"\n")
			start = idx
		}
		seen = true
	}
	if seen {
		blocks = append(blocks, strings.Join(lines[start:], "\n")+"\n")
	}
	return blocks
}

// Split writes <OutputDir>/<Prefix><n><Suffix> for every molecule, numbered
// from 0. When the directory already holds as many matching files as there
// are molecules nothing is written.
func Split(opts Options) (Result, error) {
	if strings.TrimSpace(opts.Input) == "" || strings.TrimSpace(opts.OutputDir) == "" {
		return Result{}, errors.New("input file and output directory are required")
	}
	suffix := opts.Suffix
	if suffix == "" {
		suffix = ".mol2"
	}
	logger := logging.NewComponentLogger(opts.Logger, "split")
	bar := opts.Progress
	if bar == nil {
		bar = progress.Nop()
	}

	content, err := os.ReadFile(opts.Input)
	if err != nil {
		return Result{}, fmt.Errorf("read %s: %w", opts.Input, err)
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output directory: %w", err)
	}

	blocks := Blocks(string(content))
	result := Result{Molecules: len(blocks)}

	existing, err := fileutil.CountMatching(opts.OutputDir, opts.Prefix, suffix)
	if err != nil {
		return result, fmt.Errorf("inspect output directory: %w", err)
	}
	if existing == len(blocks) {
		result.Skipped = true
		logger.Info("already split", logging.Int("molecules", existing), logging.String("dir", opts.OutputDir))
		return result, nil
	}

	logger.Info("splitting molecules", logging.Int("molecules", len(blocks)), logging.String("input", opts.Input))
	for n, block := range blocks {
		target := filepath.Join(opts.OutputDir, fmt.Sprintf("%s%d%s", opts.Prefix, n, suffix))
		if err := fileutil.WriteFileAtomic(target, []byte(block), 0o644); err != nil {
			return result, fmt.Errorf("write %s: %w", target, err)
		}
		result.Written++
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	return result, nil
}

// Count returns the number of molecule records in content.
func Count(content string) int {
	count := 0
	for _, line := range strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n") {
		if line == MoleculeMarker {
			count++
		}
	}
	return count
}

// CountFile counts the molecule records in the file at path.
func CountFile(path string) (int, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", path, err)
	}
	return Count(string(content)), nil
}
