package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ersonp/suggestor/internal/domain/services"
)

func newReviewCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "review <id> <approve|reject>",
		Short: "Approve or reject a queued edit",
		Long: `Approves (publishes) or rejects a pending edit as the owner of the OAuth token.

The token is read from --token or the SUGGESTOR_TOKEN environment variable.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEditID(args[0])
			if err != nil {
				return err
			}
			return runReview(cmd, id, args[1], token)
		},
	}

	cmd.Flags().StringVarP(&token, "token", "t", "", "OAuth bearer token (default: $"+envToken+")")

	return cmd
}

func runReview(cmd *cobra.Command, id int64, action, token string) error {
	if !slices.Contains(validActions, action) {
		return fmt.Errorf("invalid action %q, valid actions: %v", action, validActions)
	}
	if token == "" {
		token = os.Getenv(envToken)
	}

	return withDeps(cmd.Context(), func(d *Deps) error {
		ctx := cmd.Context()
		if name := d.Reviews.WhoAmI(ctx, token); name != "" {
			ctx = services.WithReviewer(ctx, name)
		}
		result, err := d.Reviews.Review(ctx, id, action, token)
		if err != nil {
			return fmt.Errorf("reviewing edit %d: %w", id, err)
		}
		if result.Published {
			fmt.Fprintf(cmd.OutOrStdout(), "Edit %d published\n", result.ID)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "Edit %d is now %s\n", result.ID, result.State)
		}
		return nil
	})
}
