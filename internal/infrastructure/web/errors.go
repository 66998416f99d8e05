package web

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/ersonp/suggestor/internal/domain/ports"
)

type errorResponse struct {
	Error     string `json:"error"`
	LoginURL  string `json:"login_url,omitempty"`
	Reconcile bool   `json:"reconcile,omitempty"`
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code
	case errors.Is(err, ErrCSRF):
		return http.StatusForbidden
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ports.ErrUnauthenticated), errors.Is(err, ports.ErrCredentialExpired), errors.Is(err, ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, ports.ErrInvalidInput), errors.Is(err, ports.ErrInvalidAction):
		return http.StatusBadRequest
	case errors.Is(err, ports.ErrAlreadyReviewed), errors.Is(err, ports.ErrRevisionConflict):
		return http.StatusConflict
	case errors.Is(err, ports.ErrInconsistentState), errors.Is(err, ports.ErrPersistence):
		return http.StatusInternalServerError
	case errors.Is(err, ports.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// handleError is the echo HTTPErrorHandler. Unauthenticated browser requests
// are redirected to the login page; JSON clients get a 401 body instead.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := statusFor(err)
	resp := errorResponse{Error: messageFor(err, status)}

	if status == http.StatusUnauthorized {
		if !wantsJSON(c.Request()) {
			if rerr := c.Redirect(http.StatusSeeOther, s.cfg.LoginURL); rerr != nil {
				zerolog.Ctx(c.Request().Context()).Error().Err(rerr).Msg("writing redirect")
			}
			return
		}
		resp.LoginURL = s.cfg.LoginURL
	}
	if errors.Is(err, ports.ErrInconsistentState) {
		resp.Reconcile = true
	}

	if status >= http.StatusInternalServerError {
		zerolog.Ctx(c.Request().Context()).Error().Err(err).Int("status", status).Msg("request failed")
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(status)
	} else {
		werr = c.JSON(status, resp)
	}
	if werr != nil {
		zerolog.Ctx(c.Request().Context()).Error().Err(werr).Msg("writing error response")
	}
}

func messageFor(err error, status int) string {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if msg, ok := httpErr.Message.(string); ok {
			return msg
		}
		return http.StatusText(httpErr.Code)
	}
	// Storage details stay in the logs.
	if status == http.StatusInternalServerError && !errors.Is(err, ports.ErrInconsistentState) {
		return ports.ErrPersistence.Error()
	}
	return err.Error()
}

func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Requested-With"), "XMLHttpRequest")
}
