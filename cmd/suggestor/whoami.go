package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newWhoAmICmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the wiki account behind an OAuth token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWhoAmI(cmd, token)
		},
	}

	cmd.Flags().StringVarP(&token, "token", "t", "", "OAuth bearer token (default: $"+envToken+")")

	return cmd
}

func runWhoAmI(cmd *cobra.Command, token string) error {
	if token == "" {
		token = os.Getenv(envToken)
	}
	return withDeps(cmd.Context(), func(d *Deps) error {
		name := d.Reviews.WhoAmI(cmd.Context(), token)
		if name == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), name)
		return nil
	})
}
