// Package prepare converts split ligand files into the docking program's input
// format by fanning a converter binary out over a directory.
package prepare

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"dockq/internal/fileutil"
	"dockq/internal/logging"
	"dockq/internal/progress"
)

var commandContext = exec.CommandContext

// Options describes one conversion batch.
type Options struct {
	InputDir     string
	OutputDir    string
	InputSuffix  string
	OutputSuffix string
	Converter    string
	// Workers bounds concurrent conversions; 0 uses one per CPU.
	Workers  int
	Logger   *slog.Logger
	Progress progress.Reporter
}

// Failure records a conversion that exited unsuccessfully.
type Failure struct {
	Input    string
	ExitCode int
	Stderr   string
}

// Result summarizes a batch.
type Result struct {
	Candidates int
	Skipped    int
	Converted  int
	Failed     int
	Failures   []Failure
}

// Candidates lists input files and their target paths, sorted by input name.
// Inputs whose target already exists are reported separately.
func Candidates(opts Options) (pending [][2]string, skipped int, err error) {
	entries, err := os.ReadDir(opts.InputDir)
	if err != nil {
		return nil, 0, fmt.Errorf("read input directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), opts.InputSuffix) {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		target := filepath.Join(opts.OutputDir, strings.TrimSuffix(name, opts.InputSuffix)+opts.OutputSuffix)
		if fileutil.Exists(target) {
			skipped++
			continue
		}
		pending = append(pending, [2]string{filepath.Join(opts.InputDir, name), target})
	}
	return pending, skipped, nil
}

// Run converts every pending input. Individual converter failures are
// collected in the result; only setup errors and cancellation are returned.
func Run(ctx context.Context, opts Options) (Result, error) {
	if strings.TrimSpace(opts.Converter) == "" {
		return Result{}, errors.New("converter is required")
	}
	if opts.InputSuffix == "" || opts.OutputSuffix == "" {
		return Result{}, errors.New("input and output suffixes are required")
	}
	if opts.InputSuffix == opts.OutputSuffix && filepath.Clean(opts.InputDir) == filepath.Clean(opts.OutputDir) {
		return Result{}, errors.New("input and output suffixes must differ when directories match")
	}
	logger := logging.NewComponentLogger(opts.Logger, "prepare")
	bar := opts.Progress
	if bar == nil {
		bar = progress.Nop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output directory: %w", err)
	}
	pending, skipped, err := Candidates(opts)
	if err != nil {
		return Result{}, err
	}
	result := Result{Candidates: len(pending) + skipped, Skipped: skipped}
	logger.Info("preparing ligands",
		logging.Int("pending", len(pending)),
		logging.Int("skipped", skipped),
		logging.Int("workers", workers),
	)

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)
	for _, job := range pending {
		if groupCtx.Err() != nil {
			break
		}
		input, output := job[0], job[1]
		group.Go(func() error {
			failure, err := convert(groupCtx, opts.Converter, input, output)
			if err != nil {
				return err
			}
			mu.Lock()
			if failure != nil {
				result.Failed++
				result.Failures = append(result.Failures, *failure)
			} else {
				result.Converted++
			}
			mu.Unlock()
			if failure != nil {
				logger.Warn("conversion failed",
					logging.String("input", input),
					logging.Int("exit_code", failure.ExitCode),
					logging.String("stderr", failure.Stderr),
					logging.String("event_type", "prepare_failed"),
				)
			}
			_ = bar.Add(1)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return result, err
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}
	_ = bar.Finish()

	sort.Slice(result.Failures, func(i, j int) bool { return result.Failures[i].Input < result.Failures[j].Input })
	logger.Info("ligand preparation finished",
		logging.Int("converted", result.Converted),
		logging.Int("failed", result.Failed),
		logging.Int("skipped", result.Skipped),
	)
	return result, nil
}

func convert(ctx context.Context, converter, input, output string) (*Failure, error) {
	cmd := commandContext(ctx, converter, "-i", input, "-o", output)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return nil, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	failure := &Failure{Input: input, ExitCode: -1, Stderr: strings.TrimSpace(stderr.String())}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		failure.ExitCode = exitErr.ExitCode()
	} else if failure.Stderr == "" {
		failure.Stderr = err.Error()
	}
	return failure, nil
}
