package main

import (
	"github.com/spf13/cobra"

	"github.com/Vansh-Raja/mremote-sync/internal/credentials"
)

func newUsersCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "users FILE",
		Short: "Show the most frequent usernames in an export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			res, err := a.importer().ParseFile(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			users := res.TopUsers
			if users == nil {
				users = []credentials.UserFrequency{}
			}
			return writeOutput(a.out, format, users, a.styles.RenderUsers(users))
		},
	}
	cmd.Flags().StringVar(&format, "format", formatText, "Output format: text, json or yaml")
	return cmd
}
