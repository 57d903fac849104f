package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"dockq/internal/config"
	"dockq/internal/prepare"
	"dockq/internal/progress"
)

func newPrepareCommand(ctx *commandContext) *cobra.Command {
	var (
		inputDir  string
		outputDir string
		workers   int
	)

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Convert split ligands with the configured converter",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			in, err := config.ExpandPath(inputDir)
			if err != nil {
				return err
			}
			out, err := config.ExpandPath(outputDir)
			if err != nil {
				return err
			}
			opts := prepare.Options{
				InputDir:     in,
				OutputDir:    out,
				InputSuffix:  cfg.Prepare.InputSuffix,
				OutputSuffix: cfg.Prepare.OutputSuffix,
				Converter:    cfg.Prepare.Converter,
				Workers:      cfg.Prepare.Workers,
				Logger:       logger,
			}
			if cmd.Flags().Changed("workers") {
				opts.Workers = workers
			}

			pending, _, err := prepare.Candidates(opts)
			if err != nil {
				return err
			}
			opts.Progress = progress.New(cmd.ErrOrStderr(), len(pending), "converting")

			signalCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			result, err := prepare.Run(signalCtx, opts)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Converted %d, skipped %d, failed %d of %d ligand(s)\n",
				result.Converted, result.Skipped, result.Failed, result.Candidates)
			for _, failure := range result.Failures {
				fmt.Fprintf(w, "  %s (exit %d): %s\n", failure.Input, failure.ExitCode, failure.Stderr)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputDir, "input", "i", "", "Directory of split ligand files")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for converted ligands")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent conversions (default prepare.workers, 0 = one per CPU)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
