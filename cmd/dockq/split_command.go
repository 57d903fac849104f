package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dockq/internal/config"
	"dockq/internal/mol2"
	"dockq/internal/progress"
)

func newSplitCommand(ctx *commandContext) *cobra.Command {
	var (
		outputDir string
		prefix    string
		suffix    string
	)

	cmd := &cobra.Command{
		Use:   "split <input.mol2>",
		Short: "Split a multi-molecule MOL2 file into one file per molecule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			input, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			out, err := config.ExpandPath(outputDir)
			if err != nil {
				return err
			}
			if strings.TrimSpace(suffix) == "" {
				suffix = cfg.Split.Suffix
			}

			molecules, err := mol2.CountFile(input)
			if err != nil {
				return err
			}
			bar := progress.New(cmd.ErrOrStderr(), molecules, "splitting")
			result, err := mol2.Split(mol2.Options{
				Input:     input,
				OutputDir: out,
				Prefix:    prefix,
				Suffix:    suffix,
				Progress:  bar,
				Logger:    logger,
			})
			if err != nil {
				return err
			}
			if result.Skipped {
				fmt.Fprintf(cmd.OutOrStdout(), "%s already holds %d molecule file(s); nothing to do\n", out, result.Molecules)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d molecule file(s) to %s\n", result.Written, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Directory for the per-molecule files")
	cmd.Flags().StringVar(&prefix, "prefix", "", "File name prefix; files are <prefix><n><suffix>")
	cmd.Flags().StringVar(&suffix, "suffix", "", "File name suffix (default from split.suffix)")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
