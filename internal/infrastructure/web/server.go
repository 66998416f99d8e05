// Package web serves the review pipeline over HTTP with echo.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ersonp/suggestor/internal/application/handlers"
	"github.com/ersonp/suggestor/internal/infrastructure/config"
)

const shutdownTimeout = 10 * time.Second

// Server represents the HTTP server.
type Server struct {
	echo     *echo.Echo
	cfg      config.ServerConfig
	reviews  *handlers.ReviewHandler
	sessions *SessionCodec
	csrf     *CSRF
	cookie   string
	logger   zerolog.Logger
}

// NewServer creates a new Server with its routes registered.
func NewServer(
	cfg config.ServerConfig,
	cookieName string,
	reviews *handlers.ReviewHandler,
	sessions *SessionCodec,
	csrf *CSRF,
	logger zerolog.Logger,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		cfg:      cfg,
		reviews:  reviews,
		sessions: sessions,
		csrf:     csrf,
		cookie:   cookieName,
		logger:   logger.With().Str("component", "web").Logger(),
	}
	if s.cookie == "" {
		s.cookie = "suggestor_session"
	}

	// Middleware
	e.HTTPErrorHandler = s.handleError
	e.Use(requestLogger(s.logger))
	e.Use(middleware.Recover())

	s.setupRoutes()
	return s
}

// setupRoutes configures all endpoints.
func (s *Server) setupRoutes() {
	s.echo.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// The bookmarklet posts from wiki pages, so submission is open to any origin.
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	cors := middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodPost, http.MethodOptions},
	})
	s.echo.POST("/api", s.submit, cors)
	s.echo.OPTIONS("/api", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, cors)

	s.echo.GET("/pending", s.pending)
	s.echo.GET("/diff/:id", s.diff)
	s.echo.POST("/status/:id", s.review)
	s.echo.GET("/audit/:id", s.audit)

	s.echo.GET("/whoami", s.whoami)
	s.echo.POST("/session", s.createSession)
	s.echo.DELETE("/session", s.deleteSession)
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Address,
		Handler:      s.echo,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("address", s.cfg.Address).Msg("listening")
		errCh <- s.echo.StartServer(srv)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	return nil
}
