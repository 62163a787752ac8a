package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newParsersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "parsers",
		Short: "List the parsers in the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			for _, name := range reg.Names() {
				cfg, _ := reg.Config(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tstart=%q end=%q headers=%d items=%d\n",
					name, cfg.RecordStartToken, cfg.RecordEndToken, len(cfg.Headers), len(cfg.Items))
			}
			return nil
		},
	}
}
