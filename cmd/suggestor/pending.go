package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List edits awaiting review",
		Args:  cobra.NoArgs,
		RunE:  runPending,
	}
}

func runPending(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	return withDeps(cmd.Context(), func(d *Deps) error {
		edits, err := d.Reviews.GetPending(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing pending edits: %w", err)
		}

		if len(edits) == 0 {
			fmt.Fprintln(out, "No pending edits.")
			return nil
		}

		fmt.Fprintf(out, "Pending edits (%d):\n\n", len(edits))
		for _, e := range edits {
			title := e.PageName
			if title == "" {
				title = fmt.Sprintf("page %d", e.PageID)
			}
			fmt.Fprintf(out, "  #%d  %s  %s  (rev %d, %s)\n", e.ID, e.Wiki, title, e.BaseRevisionID, e.CreatedAt.Format("2006-01-02 15:04"))
			if e.Summary != "" {
				fmt.Fprintf(out, "       %s\n", e.Summary)
			}
		}
		return nil
	})
}
