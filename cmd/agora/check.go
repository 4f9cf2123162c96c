package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd(a *app) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the backend is reachable and serves the configured model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f.apply(cmd, a.settings)
			if err := a.settings.Validate(); err != nil {
				return err
			}
			e, err := a.newEngine(nil)
			if err != nil {
				return err
			}
			if err := e.Check(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s backend ready (model %s)\n", a.settings.Backend.Name, a.settings.Backend.Model)
			return nil
		},
	}
	f.register(cmd, false)
	return cmd
}
