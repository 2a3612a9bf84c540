package main

import (
	"time"

	"github.com/spf13/cobra"
)

func newTreeCmd(a *app) *cobra.Command {
	var (
		history int
		at      string
		format  string
	)
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show the application tree or its history",
		Long: `Show the application tree, an earlier version of it, or its history.

Examples:
  mremote-sync tree
  mremote-sync tree --history 10
  mremote-sync tree --at HEAD~1 --format yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			repo, err := a.openSnapshot()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("history") {
				entries, err := repo.History(history)
				if err != nil {
					return err
				}
				return writeOutput(a.out, format, entries, a.styles.RenderHistory(entries, time.Now()))
			}

			nodes, err := repo.Load()
			if at != "" {
				nodes, err = repo.At(at)
			}
			if err != nil {
				return err
			}
			return writeOutput(a.out, format, nodes, a.styles.RenderTree(nodes))
		},
	}
	cmd.Flags().IntVar(&history, "history", 0, "List the last N tree versions (0 for all)")
	cmd.Flags().StringVar(&at, "at", "", "Show the tree at a revision (commit hash or ref)")
	cmd.Flags().StringVar(&format, "format", formatText, "Output format: text, json or yaml")
	return cmd
}
