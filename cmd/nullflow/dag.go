package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/malphas-lang/nullflow/internal/fixture"
	"github.com/malphas-lang/nullflow/internal/flow"
)

func newDagCmd(root *rootOptions) *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "dag fixture.yaml",
		Short: "Print the decision DAG of every pattern construct in a method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := fixture.Load(args[0])
			if err != nil {
				return err
			}
			m := u.Method(method)
			if m == nil {
				return fmt.Errorf("%s: no method named %q", args[0], method)
			}
			out := cmd.OutOrStdout()
			cs := flow.Dags(m, nil)
			if len(cs) == 0 {
				fmt.Fprintf(out, "%s has no pattern constructs\n", m.Name)
				return nil
			}
			for i, c := range cs {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "%s at %d:%d (%d nodes)\n", c.Kind, c.Pos.Line, c.Pos.Column, c.Dag.Len())
				fmt.Fprint(out, c.Dag.String())
			}
			root.logger.Debug("dags printed", "method", m.Name, "constructs", len(cs))
			return nil
		},
	}
	cmd.Flags().StringVar(&method, "method", "", "method to print")
	_ = cmd.MarkFlagRequired("method")
	return cmd
}
