package main

import (
	"github.com/spf13/cobra"

	"github.com/Vansh-Raja/mremote-sync/internal/config"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeOutput(a.out, formatYAML, a.cfg, "")
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration to config.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Save(a.cfg); err != nil {
				return err
			}
			a.log.Info().Str("path", config.Path(a.cfg.DataDir)).Msg("configuration written")
			return nil
		},
	})
	return cmd
}
