package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/suggestor/internal/infrastructure/config"
	"github.com/ersonp/suggestor/internal/infrastructure/web"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new suggestor directory",
		Long:  "Creates a .suggestor directory with default configuration and sets up the edit store schema.",
		Args:  cobra.NoArgs,
		RunE:  runInit,
	}
}

func runInit(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()

	basePath, err := baseDir()
	if err != nil {
		return err
	}

	if config.Exists(basePath) {
		return fmt.Errorf("suggestor already initialized in %s", basePath)
	}

	if err := config.WriteDefault(basePath); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	fmt.Fprintf(out, "Created %s\n", config.ConfigFilePath(basePath))

	// withDeps creates the schema on open.
	if err := withDeps(cmd.Context(), func(d *Deps) error {
		if d.Config.Store.Driver == config.DriverSQLite {
			fmt.Fprintf(out, "Created edit store: %s\n", d.Config.Store.SQLite.Path)
		} else {
			fmt.Fprintln(out, "Created edit store schema in postgres")
		}
		return nil
	}); err != nil {
		return err
	}

	key, err := web.GenerateSessionKey()
	if err != nil {
		return err
	}
	secret, err := web.GenerateSessionKey()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "\nBefore running 'suggestor serve', set session secrets, e.g.:")
	fmt.Fprintf(out, "  export SUGGESTOR_SESSION_KEY=%s\n", key)
	fmt.Fprintf(out, "  export SUGGESTOR_CSRF_SECRET=%s\n", secret)
	fmt.Fprintln(out, "Suggestor initialized successfully!")

	return nil
}
