package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/suggestor/internal/infrastructure/web"
)

func newServeCmd() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the submission and review HTTP API",
		Long: `Serves the bookmarklet submission endpoint and the reviewer API.

Session cookies and CSRF tokens need session.key and session.csrf_secret
(or SUGGESTOR_SESSION_KEY and SUGGESTOR_CSRF_SECRET). When unset, random
secrets are generated and sessions do not survive a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, address)
		},
	}

	cmd.Flags().StringVarP(&address, "address", "a", "", "Listen address (overrides server.address)")

	return cmd
}

func runServe(cmd *cobra.Command, address string) error {
	return withDeps(cmd.Context(), func(d *Deps) error {
		sessionKey := d.Config.Session.Key
		if sessionKey == "" {
			d.Logger.Warn().Msg("session.key is not set; using a random key for this process")
			key, err := web.GenerateSessionKey()
			if err != nil {
				return err
			}
			sessionKey = key
		}
		sessions, err := web.NewSessionCodec(sessionKey)
		if err != nil {
			return fmt.Errorf("configuring sessions: %w", err)
		}

		csrfSecret := d.Config.Session.CSRFSecret
		if csrfSecret == "" {
			d.Logger.Warn().Msg("session.csrf_secret is not set; using a random secret for this process")
			secret, err := web.GenerateSessionKey()
			if err != nil {
				return err
			}
			csrfSecret = secret
		}
		csrf, err := web.NewCSRF(csrfSecret, d.Config.Session.CSRFTTL)
		if err != nil {
			return fmt.Errorf("configuring csrf: %w", err)
		}

		serverCfg := d.Config.Server
		if address != "" {
			serverCfg.Address = address
		}

		server := web.NewServer(serverCfg, d.Config.Session.CookieName, d.Reviews, sessions, csrf, d.Logger)
		return server.Run(cmd.Context())
	})
}
