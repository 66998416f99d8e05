package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newDiffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diff <id>",
		Short: "Show the upstream diff of a queued edit",
		Long:  "Asks the edit's wiki to compare the base revision with the proposed text and prints the HTML diff rows.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseEditID(args[0])
			if err != nil {
				return err
			}
			return runDiff(cmd, id)
		},
	}
}

func runDiff(cmd *cobra.Command, id int64) error {
	out := cmd.OutOrStdout()
	return withDeps(cmd.Context(), func(d *Deps) error {
		view, err := d.Reviews.GetDiffView(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("getting diff for edit %d: %w", id, err)
		}
		e := view.Edit
		fmt.Fprintf(out, "Edit #%d on %s (page %d, rev %d) [%s]\n", e.ID, e.Wiki, e.PageID, e.BaseRevisionID, e.State)
		if e.Summary != "" {
			fmt.Fprintf(out, "Summary: %s\n", e.Summary)
		}
		fmt.Fprintln(out)
		fmt.Fprintln(out, view.Diff)
		return nil
	})
}

func parseEditID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid edit id %q", s)
	}
	return id, nil
}
