package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"dockq/internal/config"
	"dockq/internal/preflight"
	"dockq/internal/queue"
	"dockq/internal/supervisor"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	var table string

	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the work table",
	}
	queueCmd.PersistentFlags().StringVar(&table, "table", "", "Work table path (overrides store.path)")

	queueCmd.AddCommand(newQueueStatusCommand(ctx, &table))
	queueCmd.AddCommand(newQueueListCommand(ctx, &table))
	queueCmd.AddCommand(newQueueResetCommand(ctx, &table))
	queueCmd.AddCommand(newQueueSeedCommand(ctx, &table))

	return queueCmd
}

type statusView struct {
	Table     string         `json:"table"`
	Total     int            `json:"total"`
	Counts    map[string]int `json:"counts"`
	Drained   bool           `json:"drained"`
	Preflight []checkView    `json:"preflight,omitempty"`
}

type checkView struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

func newQueueStatusCommand(ctx *commandContext, table *string) *cobra.Command {
	var jsonOut bool
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show row counts per status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, store, err := ctx.openStore(*table)
			if err != nil {
				return err
			}
			defer store.Close()

			health, err := store.Health(cmd.Context())
			if err != nil {
				return err
			}
			view := statusView{
				Table:   store.Path(),
				Total:   health.Total,
				Drained: health.Drained(),
				Counts: map[string]int{
					string(queue.StatusPending):    health.Pending,
					string(queue.StatusInProgress): health.InProgress,
					string(queue.StatusDone):       health.Done,
					string(queue.StatusFailed):     health.Failed,
				},
			}
			if check {
				view.Preflight = runChecks(cmd, cfg)
			}
			if jsonOut {
				return writeJSON(cmd, view)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Table: %s\n", view.Table)
			rows := make([][]string, 0, len(queue.AllStatuses())+1)
			for _, status := range queue.AllStatuses() {
				rows = append(rows, []string{statusLabel(status), strconv.Itoa(view.Counts[string(status)])})
			}
			rows = append(rows, []string{"Total", strconv.Itoa(view.Total)})
			fmt.Fprintln(out, renderTable([]string{"Status", "Rows"}, rows, []columnAlignment{alignLeft, alignRight}))
			if health.InProgress > 0 {
				fmt.Fprintf(out, "%d row(s) in progress; if no worker is running, `dockq queue reset` returns them to pending\n", health.InProgress)
			}
			if len(view.Preflight) > 0 {
				checkRows := make([][]string, 0, len(view.Preflight))
				for _, c := range view.Preflight {
					checkRows = append(checkRows, []string{c.Name, passFail(c.Passed), c.Detail})
				}
				fmt.Fprintln(out, renderTable([]string{"Check", "Result", "Detail"}, checkRows, nil))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&check, "check", false, "Also run preflight checks for the configured command")
	return cmd
}

func runChecks(cmd *cobra.Command, cfg *config.Config) []checkView {
	var results []preflight.Result
	tmpl, err := supervisor.ParseTemplate(cfg.Worker.CommandTemplate)
	if err != nil {
		results = preflight.RunAll(cmd.Context(), cfg, nil)
		results = append(results, preflight.Result{Name: preflight.NameJobProgram, Detail: err.Error()})
	} else {
		results = preflight.RunAll(cmd.Context(), cfg, tmpl)
	}
	views := make([]checkView, 0, len(results))
	for _, r := range results {
		views = append(views, checkView{Name: r.Name, Passed: r.Passed, Detail: r.Detail})
	}
	return views
}

type itemView struct {
	Row    int               `json:"row"`
	Status string            `json:"status"`
	Params map[string]string `json:"params"`
}

func newQueueListCommand(ctx *commandContext, table *string) *cobra.Command {
	var jsonOut bool
	var statusFlags []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rows, optionally filtered by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses, err := parseStatusFilters(statusFlags)
			if err != nil {
				return err
			}
			_, store, err := ctx.openStore(*table)
			if err != nil {
				return err
			}
			defer store.Close()

			snapshot, err := store.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			wanted := make(map[queue.Status]struct{}, len(statuses))
			for _, s := range statuses {
				wanted[s] = struct{}{}
			}
			columns := snapshot.ParamColumns()
			views := make([]itemView, 0, snapshot.Len())
			for i := 0; i < snapshot.Len(); i++ {
				item := snapshot.Item(i)
				if len(wanted) > 0 {
					if _, ok := wanted[item.Status]; !ok {
						continue
					}
				}
				views = append(views, itemView{Row: i + 1, Status: string(item.Status), Params: item.Params()})
			}

			if jsonOut {
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No rows")
				return nil
			}
			headers := append([]string{"Row"}, columns...)
			headers = append(headers, "Status")
			aligns := []columnAlignment{alignRight}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				row := []string{strconv.Itoa(v.Row)}
				for _, column := range columns {
					row = append(row, v.Params[column])
				}
				row = append(row, statusLabel(queue.Status(v.Status)))
				rows = append(rows, row)
			}
			fmt.Fprintln(out, renderTable(headers, rows, aligns))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().StringSliceVar(&statusFlags, "status", nil, "Only rows with this status (repeatable)")
	return cmd
}

func parseStatusFilters(values []string) ([]queue.Status, error) {
	statuses := make([]queue.Status, 0, len(values))
	for _, value := range values {
		status, ok := queue.ParseStatus(value)
		if !ok {
			names := make([]string, 0, len(queue.AllStatuses()))
			for _, s := range queue.AllStatuses() {
				names = append(names, string(s))
			}
			return nil, fmt.Errorf("unknown status %q (expected one of %s)", value, strings.Join(names, ", "))
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func newQueueResetCommand(ctx *commandContext, table *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Return in-progress rows to pending after a worker crash",
		Long: "Reset moves every in_progress row back to pending. Run it only when no\n" +
			"worker is active: rows held by a live worker would be executed twice.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := ctx.openStore(*table)
			if err != nil {
				return err
			}
			defer store.Close()

			count, err := store.ResetInProgress(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %d row(s) to pending\n", count)
			return nil
		},
	}
}

func newQueueSeedCommand(ctx *commandContext, table *string) *cobra.Command {
	var opts queue.SeedOptions
	var force bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a docking table with one row per input directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			resolved, err := resolveSeedPaths(opts)
			if err != nil {
				return err
			}
			built, err := queue.BuildDockingTable(resolved)
			if err != nil {
				return err
			}
			_, store, err := ctx.openStore(*table)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Create(cmd.Context(), built, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d row(s) into %s\n", built.Len(), store.Path())
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Receptor, "receptor", "", "Receptor file for every row")
	cmd.Flags().StringVar(&opts.Config, "config-file", "", "Docking configuration file for every row")
	cmd.Flags().StringVar(&opts.InputsDir, "inputs", "", "Directory whose subdirectories become rows")
	cmd.Flags().StringVar(&opts.OutputsDir, "outputs", "", "Directory receiving one output directory per row")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing table")
	return cmd
}

func resolveSeedPaths(opts queue.SeedOptions) (queue.SeedOptions, error) {
	fields := []*string{&opts.Receptor, &opts.Config, &opts.InputsDir, &opts.OutputsDir}
	for _, field := range fields {
		if strings.TrimSpace(*field) == "" {
			continue
		}
		expanded, err := config.ExpandPath(strings.TrimSpace(*field))
		if err != nil {
			return opts, err
		}
		*field = expanded
	}
	return opts, nil
}

func passFail(passed bool) string {
	if passed {
		return "ok"
	}
	return "FAILED"
}
