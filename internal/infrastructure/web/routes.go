package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ersonp/suggestor/internal/domain/entities"
	"github.com/ersonp/suggestor/internal/domain/ports"
	"github.com/ersonp/suggestor/internal/domain/services"
)

// submitRequest mirrors the form the bookmarklet posts.
type submitRequest struct {
	Wiki      string `form:"wiki" json:"wiki"`
	Text      string `form:"text" json:"text"`
	Summary   string `form:"summary" json:"summary"`
	BaseRevID int64  `form:"baserevid" json:"baserevid"`
	PageID    int64  `form:"pageid" json:"pageid"`
	PageName  string `form:"pagename" json:"pagename"`
}

type submitResponse struct {
	ID    *int64  `json:"id"`
	Error *string `json:"error"`
}

type editResponse struct {
	ID             int64          `json:"id"`
	Wiki           string         `json:"wiki"`
	Text           string         `json:"text"`
	Summary        string         `json:"summary"`
	BaseRevisionID int64          `json:"base_revision_id"`
	PageID         int64          `json:"page_id"`
	PageName       string         `json:"page_name"`
	State          entities.State `json:"state"`
	CreatedAt      time.Time      `json:"created_at"`
}

type diffResponse struct {
	Edit     editResponse `json:"edit"`
	Diff     string       `json:"diff"`
	CSRF     string       `json:"csrf,omitempty"`
	Reviewer string       `json:"reviewer,omitempty"`
}

func toEditResponse(e entities.Edit) editResponse {
	return editResponse{
		ID:             e.ID,
		Wiki:           e.Wiki,
		Text:           string(e.Text),
		Summary:        e.Summary,
		BaseRevisionID: e.BaseRevisionID,
		PageID:         e.PageID,
		PageName:       e.PageName,
		State:          e.State,
		CreatedAt:      e.CreatedAt,
	}
}

func (s *Server) submit(c echo.Context) error {
	var req submitRequest
	if err := c.Bind(&req); err != nil {
		return s.submitFailed(c, fmt.Errorf("%w: %v", ports.ErrInvalidInput, err))
	}

	id, err := s.reviews.Submit(c.Request().Context(), entities.Draft{
		Wiki:           req.Wiki,
		Text:           []byte(req.Text),
		Summary:        req.Summary,
		BaseRevisionID: req.BaseRevID,
		PageID:         req.PageID,
		PageName:       req.PageName,
	})
	if err != nil {
		return s.submitFailed(c, err)
	}
	return c.JSON(http.StatusOK, submitResponse{ID: &id})
}

// submitFailed keeps the {id, error} shape the bookmarklet expects.
func (s *Server) submitFailed(c echo.Context, err error) error {
	status := statusFor(err)
	msg := messageFor(err, status)
	return c.JSON(status, submitResponse{Error: &msg})
}

func (s *Server) pending(c echo.Context) error {
	edits, err := s.reviews.GetPending(c.Request().Context())
	if err != nil {
		return err
	}
	out := make([]editResponse, 0, len(edits))
	for _, e := range edits {
		out = append(out, toEditResponse(e))
	}
	return c.JSON(http.StatusOK, map[string]any{"edits": out})
}

func (s *Server) diff(c echo.Context) error {
	id, err := editID(c)
	if err != nil {
		return err
	}

	view, err := s.reviews.GetDiffView(c.Request().Context(), id)
	if err != nil {
		return err
	}

	resp := diffResponse{Edit: toEditResponse(view.Edit), Diff: view.Diff}
	if sess, ok := s.session(c); ok && view.Edit.State == entities.StatePending {
		token, err := s.csrf.Issue(id, sess.Token)
		if err != nil {
			return err
		}
		resp.CSRF = token
		resp.Reviewer = sess.Name
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) review(c echo.Context) error {
	id, err := editID(c)
	if err != nil {
		return err
	}

	sess, ok := s.session(c)
	if !ok {
		return ports.ErrUnauthenticated
	}
	if err := s.csrf.Verify(c.FormValue("csrf"), id, sess.Token); err != nil {
		return err
	}

	ctx := services.WithReviewer(c.Request().Context(), sess.Name)
	result, err := s.reviews.Review(ctx, id, c.FormValue("new_state"), sess.Token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) audit(c echo.Context) error {
	id, err := editID(c)
	if err != nil {
		return err
	}
	if _, ok := s.session(c); !ok {
		return ports.ErrUnauthenticated
	}

	entries, err := s.reviews.Audit(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) whoami(c echo.Context) error {
	var name string
	if sess, ok := s.session(c); ok {
		name = s.reviews.WhoAmI(c.Request().Context(), sess.Token)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"username":  name,
		"logged_in": name != "",
	})
}

// createSession stores the bearer token from the Authorization header in the
// session cookie once it resolves to a named account.
func (s *Server) createSession(c echo.Context) error {
	token, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return ports.ErrUnauthenticated
	}

	name := s.reviews.WhoAmI(c.Request().Context(), token)
	if name == "" {
		return ports.ErrUnauthenticated
	}

	value, err := s.sessions.Encode(Session{Token: token, Name: name})
	if err != nil {
		return err
	}
	c.SetCookie(s.newCookie(value, 0))
	return c.JSON(http.StatusOK, map[string]any{"username": name, "logged_in": true})
}

func (s *Server) deleteSession(c echo.Context) error {
	c.SetCookie(s.newCookie("", -1))
	return c.NoContent(http.StatusNoContent)
}

// session returns the decoded session cookie, if present and valid.
func (s *Server) session(c echo.Context) (Session, bool) {
	cookie, err := c.Cookie(s.cookie)
	if err != nil || cookie.Value == "" {
		return Session{}, false
	}
	sess, err := s.sessions.Decode(cookie.Value)
	if err != nil || strings.TrimSpace(sess.Token) == "" {
		return Session{}, false
	}
	return sess, true
}

func (s *Server) newCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.cookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

func editID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: edit id must be a positive integer", ports.ErrInvalidInput)
	}
	return id, nil
}
