package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/suggestor/internal/domain/entities"
)

func newSubmitCmd() *cobra.Command {
	var (
		draft entities.Draft
		file  string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Queue an edit suggestion for review",
		Long: `Queues a proposed page text for review, as the bookmarklet endpoint does.

The page text is read from --file, or from stdin when --file is "-".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSubmit(cmd, draft, file)
		},
	}

	cmd.Flags().StringVarP(&draft.Wiki, "wiki", "w", "", "Wiki hostname, e.g. en.wikipedia.org")
	cmd.Flags().Int64Var(&draft.PageID, "page-id", 0, "Page ID")
	cmd.Flags().StringVar(&draft.PageName, "page-name", "", "Page title")
	cmd.Flags().Int64Var(&draft.BaseRevisionID, "base-rev", 0, "Revision the edit was made against")
	cmd.Flags().StringVarP(&draft.Summary, "summary", "s", "", "Edit summary")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "File holding the proposed page text (\"-\" for stdin)")

	_ = cmd.MarkFlagRequired("wiki")
	_ = cmd.MarkFlagRequired("page-id")

	return cmd
}

func runSubmit(cmd *cobra.Command, draft entities.Draft, file string) error {
	text, err := readText(cmd.InOrStdin(), file)
	if err != nil {
		return err
	}
	draft.Text = text

	return withDeps(cmd.Context(), func(d *Deps) error {
		id, err := d.Reviews.Submit(cmd.Context(), draft)
		if err != nil {
			return fmt.Errorf("submitting edit: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Queued edit %d for review\n", id)
		return nil
	})
}

// readText reads the whole of path, or stdin for "-".
func readText(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}
