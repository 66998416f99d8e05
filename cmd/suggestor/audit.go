package main

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ersonp/suggestor/internal/domain/entities"
)

func newAuditCmd() *cobra.Command {
	var (
		action string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "audit [id]",
		Short: "Show review history",
		Long: `Shows the audit trail of one edit, newest first.

Without an id, shows the most recent entries of the kind given by --action.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				id, err := parseEditID(args[0])
				if err != nil {
					return err
				}
				return runAudit(cmd, id)
			}
			return runAuditByAction(cmd, entities.AuditAction(action), limit)
		},
	}

	cmd.Flags().StringVarP(&action, "action", "a", string(entities.AuditPublished), "Audit action to list when no id is given")
	cmd.Flags().IntVarP(&limit, "limit", "l", DefaultAuditLimit, "Maximum number of entries")

	return cmd
}

func runAudit(cmd *cobra.Command, id int64) error {
	return withDeps(cmd.Context(), func(d *Deps) error {
		entries, err := d.Reviews.Audit(cmd.Context(), id)
		if err != nil {
			return err
		}
		printAudit(cmd.OutOrStdout(), entries)
		return nil
	})
}

func runAuditByAction(cmd *cobra.Command, action entities.AuditAction, limit int) error {
	if !slices.Contains(entities.AuditActions, action) {
		return fmt.Errorf("invalid action %q, valid actions: %v", action, entities.AuditActions)
	}
	if limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}
	return withDeps(cmd.Context(), func(d *Deps) error {
		entries, err := d.Reviews.AuditByAction(cmd.Context(), action, limit)
		if err != nil {
			return err
		}
		printAudit(cmd.OutOrStdout(), entries)
		return nil
	})
}

func printAudit(out io.Writer, entries []entities.AuditEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "No audit entries.")
		return
	}
	for _, e := range entries {
		reviewer := e.Reviewer
		if reviewer == "" {
			reviewer = "-"
		}
		fmt.Fprintf(out, "%s  #%d  %-14s  %s", e.CreatedAt.Format("2006-01-02 15:04:05"), e.EditID, e.Action, reviewer)
		if reason, ok := e.Details["error"]; ok {
			fmt.Fprintf(out, "  (%v)", reason)
		}
		fmt.Fprintln(out)
	}
}
