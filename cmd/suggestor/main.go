// Package main provides the entry point for the suggestor CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ersonp/suggestor/internal/infrastructure/config"
)

var (
	version   = config.Version
	globalDir string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "suggestor",
		Short:         "Review queue for anonymous wiki edit suggestions",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&globalDir, "dir", "C", "", "Directory containing .suggestor (default: current directory)")

	rootCmd.AddCommand(
		newInitCmd(),
		newServeCmd(),
		newSubmitCmd(),
		newPendingCmd(),
		newDiffCmd(),
		newReviewCmd(),
		newWhoAmICmd(),
		newAuditCmd(),
	)

	return rootCmd
}
