package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/malphas-lang/nullflow/internal/analysis"
	"github.com/malphas-lang/nullflow/internal/diag"
	"github.com/malphas-lang/nullflow/internal/fixture"
)

func newCheckCmd(root *rootOptions) *cobra.Command {
	var failOnWarning bool
	var noColor bool
	cmd := &cobra.Command{
		Use:   "check fixture.yaml...",
		Short: "Analyze every method of the given fixtures and print the warnings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := analysis.NewEngine(root.cfg, analysis.WithLogger(root.logger))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			f := diag.NewFormatter(out)
			if noColor {
				f.SetColor(false)
			}

			total := 0
			for _, path := range args {
				u, err := fixture.Load(path)
				if err != nil {
					return err
				}
				report, err := engine.AnalyzeUnit(cmd.Context(), u)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				ds := report.Diagnostics()
				if total > 0 && len(ds) > 0 {
					fmt.Fprintln(out)
				}
				f.FormatAll(ds)
				total += len(ds)
			}

			if total > 0 {
				fmt.Fprintf(out, "\n%d %s\n", total, plural(total, "warning", "warnings"))
			}
			if failOnWarning && total > 0 {
				return errFindings
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failOnWarning, "fail-on-warning", false, "exit with status 1 when any warning is reported")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colour output")
	return cmd
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

