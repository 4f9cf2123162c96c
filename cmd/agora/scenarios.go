package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newScenariosCmd(a *app) *cobra.Command {
	var personas bool
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "List the built-in scenarios (or personas)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if personas {
				fmt.Fprintln(w, "ID\tNAME\tDESCRIPTION")
				for _, p := range a.catalog.Personas {
					fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, p.Description)
				}
				return w.Flush()
			}
			fmt.Fprintln(w, "ID\tSTANCES\tBIAS\tNAME")
			for _, sc := range a.catalog.Scenarios {
				fmt.Fprintf(w, "%s\t%s / %s\t%.2f\t%s\n", sc.ID, sc.Stances[0], sc.Stances[1], sc.Bias(), sc.Name)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&personas, "personas", false, "list personas instead")
	return cmd
}
