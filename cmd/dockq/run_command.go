package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dockq/internal/config"
	"dockq/internal/logging"
	"dockq/internal/preflight"
	"dockq/internal/queue"
	"dockq/internal/supervisor"
	"dockq/internal/worker"
)

type runFlags struct {
	table     string
	timeLimit int
	template  string
	parallel  int
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Claim and execute rows until the table has no pending work",
		Long: "Run claims pending rows one at a time, executes the command template with\n" +
			"the row's fields, and records done, failed, or pending (time limit or\n" +
			"shutdown) in the table. Job failures never change the exit status.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runCfg, err := withTable(cfg, flags.table)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("time-limit") {
				runCfg.Worker.TimeLimit = flags.timeLimit
			}
			if cmd.Flags().Changed("template") {
				runCfg.Worker.CommandTemplate = flags.template
			}
			if cmd.Flags().Changed("parallel") {
				runCfg.Worker.Parallel = flags.parallel
			}
			if err := runCfg.Validate(); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			signalCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := runWorkers(signalCtx, runCfg, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "claimed=%d done=%d failed=%d requeued=%d drained=%s\n",
				summary.Claimed, summary.Done, summary.Failed, summary.Requeued, yesNo(summary.Drained))
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.table, "table", "", "Work table path (overrides store.path)")
	cmd.Flags().IntVar(&flags.timeLimit, "time-limit", 0, "Per-job time limit in seconds; 0 disables it")
	cmd.Flags().StringVar(&flags.template, "template", "", "Command template with {column} placeholders")
	cmd.Flags().IntVar(&flags.parallel, "parallel", 0, "Number of workers in this process")
	return cmd
}

// runWorkers checks the environment, then runs cfg.Worker.Parallel workers
// until the table drains or ctx is cancelled.
func runWorkers(ctx context.Context, cfg *config.Config, logger *slog.Logger) (worker.Summary, error) {
	logger = logging.NewComponentLogger(logger, "run")

	sup, err := supervisor.FromConfig(cfg, logger)
	if err != nil {
		return worker.Summary{}, err
	}

	results := preflight.RunAll(ctx, cfg, sup.Template())
	for _, result := range results {
		if result.Passed {
			logger.Debug("preflight passed", logging.String("check", result.Name), logging.String("detail", result.Detail))
			continue
		}
		if result.Name == preflight.NameTable {
			return worker.Summary{}, fmt.Errorf("%s: %s", result.Name, result.Detail)
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
		)
	}

	stores, err := openWorkerStores(cfg, logger)
	if err != nil {
		return worker.Summary{}, err
	}
	defer func() {
		for _, store := range uniqueStores(stores) {
			if closeErr := store.Close(); closeErr != nil {
				logger.Warn("close store failed", logging.Error(closeErr))
			}
		}
	}()

	workers := make([]*worker.Worker, len(stores))
	for i, store := range stores {
		workers[i] = worker.New(store, sup, worker.Options{
			ReportRetries: cfg.Worker.ReportRetries,
			Logger:        logger,
		})
	}

	logger.Info("starting workers",
		logging.Int("workers", len(workers)),
		logging.String("table", stores[0].Path()),
		logging.Duration("time_limit", sup.TimeLimit()),
	)
	summary, err := worker.RunPool(ctx, workers)
	attrs := []logging.Attr{
		logging.Int("claimed", summary.Claimed),
		logging.Int("done", summary.Done),
		logging.Int("failed", summary.Failed),
		logging.Int("requeued", summary.Requeued),
		logging.Bool("drained", summary.Drained),
	}
	if err != nil {
		if errors.Is(err, queue.ErrStoreCorruption) {
			logger.Error("work table unusable", logging.Args(append(attrs, logging.Error(err))...)...)
		}
		return summary, err
	}
	logger.Info("run finished", logging.Args(attrs...)...)
	return summary, nil
}

// openWorkerStores gives every worker its own handle on the table. The memory
// backend has no shared location, so its workers share one store.
func openWorkerStores(cfg *config.Config, logger *slog.Logger) ([]*queue.Store, error) {
	count := cfg.Worker.Parallel
	if count < 1 {
		count = 1
	}
	stores := make([]*queue.Store, 0, count)
	for i := 0; i < count; i++ {
		if cfg.Store.Backend == config.BackendMemory && i > 0 {
			stores = append(stores, stores[0])
			continue
		}
		store, err := queue.Open(cfg, logger)
		if err != nil {
			for _, opened := range uniqueStores(stores) {
				_ = opened.Close()
			}
			return nil, err
		}
		stores = append(stores, store)
	}
	return stores, nil
}

func uniqueStores(stores []*queue.Store) []*queue.Store {
	seen := make(map[*queue.Store]struct{}, len(stores))
	var out []*queue.Store
	for _, store := range stores {
		if _, ok := seen[store]; ok {
			continue
		}
		seen[store] = struct{}{}
		out = append(out, store)
	}
	return out
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
