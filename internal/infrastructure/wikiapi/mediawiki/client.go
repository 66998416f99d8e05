// Package mediawiki provides a WikiAPI implementation over the MediaWiki
// Action API.
package mediawiki

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/ersonp/suggestor/internal/domain/entities"
	"github.com/ersonp/suggestor/internal/domain/ports"
	"github.com/ersonp/suggestor/internal/infrastructure/config"
)

// anonymousCSRFToken is the token MediaWiki hands to logged-out sessions.
const anonymousCSRFToken = `+\`

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 32 << 20

// Client implements ports.WikiAPI.
type Client struct {
	cfg     config.WikiConfig
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

var _ ports.WikiAPI = (*Client)(nil)

// NewClient creates a new MediaWiki client. A nil httpClient uses a default
// client; the per-call timeout comes from cfg.Timeout either way.
func NewClient(cfg config.WikiConfig, httpClient *http.Client, logger zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.SummaryPrefix == "" {
		cfg.SummaryPrefix = config.DefaultSummaryPrefix
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		cfg:     cfg,
		http:    httpClient,
		limiter: limiter,
		logger:  logger.With().Str("component", "mediawiki").Logger(),
	}
}

// GetUsername resolves token against the central wiki.
func (c *Client) GetUsername(ctx context.Context, token string) (ports.Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.call(ctx, http.MethodGet, c.cfg.CentralWiki, token, url.Values{
		"action":        {"query"},
		"meta":          {"userinfo"},
		"formatversion": {"2"},
	})
	if err != nil {
		return ports.Identity{}, err
	}

	info := resp.Get("query.userinfo")
	if !info.Exists() {
		return ports.Identity{}, fmt.Errorf("%w: userinfo missing from response", ports.ErrUpstream)
	}
	// formatversion=2 reports anon as a boolean; older wikis send an empty string.
	if anon := info.Get("anon"); anon.Exists() && (anon.Type != gjson.False) {
		return ports.Identity{Anonymous: true}, nil
	}
	name := info.Get("name").String()
	if name == "" {
		return ports.Identity{}, fmt.Errorf("%w: userinfo has no name", ports.ErrUpstream)
	}
	return ports.Identity{Name: name}, nil
}

// GetDiff asks the edit's wiki to compare its text against the base revision
// and returns the HTML table rows from compare.body.
func (c *Client) GetDiff(ctx context.Context, edit entities.Edit) (string, error) {
	if !utf8.Valid(edit.Text) {
		return "", fmt.Errorf("%w: edit %d text is not valid UTF-8", ports.ErrInvalidInput, edit.ID)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.call(ctx, http.MethodPost, edit.Wiki, "", url.Values{
		"action":        {"compare"},
		"formatversion": {"2"},
		"fromrev":       {strconv.FormatInt(edit.BaseRevisionID, 10)},
		"toslots":       {"main"},
		"totext-main":   {string(edit.Text)},
	})
	if err != nil {
		return "", err
	}

	body := resp.Get("compare.body")
	if body.Type != gjson.String {
		return "", fmt.Errorf("%w: compare.body missing from response", ports.ErrUpstream)
	}
	return body.String(), nil
}

// MakeEdit publishes the edit as the token's owner. Once started it runs to
// completion or timeout even if ctx is cancelled.
func (c *Client) MakeEdit(ctx context.Context, edit entities.Edit, token string) error {
	if !utf8.Valid(edit.Text) {
		return fmt.Errorf("%w: edit %d text is not valid UTF-8", ports.ErrInvalidInput, edit.ID)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.Timeout)
	defer cancel()

	csrf, err := c.csrfToken(ctx, edit.Wiki, token)
	if err != nil {
		return err
	}

	resp, err := c.call(ctx, http.MethodPost, edit.Wiki, token, url.Values{
		"action":        {"edit"},
		"formatversion": {"2"},
		"assert":        {"user"},
		"pageid":        {strconv.FormatInt(edit.PageID, 10)},
		"text":          {string(edit.Text)},
		"summary":       {c.cfg.SummaryPrefix + edit.Summary},
		"baserevid":     {strconv.FormatInt(edit.BaseRevisionID, 10)},
		"token":         {csrf},
	})
	if err != nil {
		return err
	}

	if result := resp.Get("edit.result").String(); result != "Success" {
		if result == "" {
			result = "no result"
		}
		return fmt.Errorf("%w: edit of page %d on %s: %s", ports.ErrUpstream, edit.PageID, edit.Wiki, result)
	}

	c.logger.Info().
		Int64("edit_id", edit.ID).
		Str("wiki", edit.Wiki).
		Int64("page_id", edit.PageID).
		Int64("new_revision_id", resp.Get("edit.newrevid").Int()).
		Msg("edit published")
	return nil
}

func (c *Client) csrfToken(ctx context.Context, wiki, token string) (string, error) {
	resp, err := c.call(ctx, http.MethodGet, wiki, token, url.Values{
		"action":        {"query"},
		"meta":          {"tokens"},
		"type":          {"csrf"},
		"formatversion": {"2"},
	})
	if err != nil {
		return "", err
	}

	csrf := resp.Get("query.tokens.csrftoken").String()
	switch csrf {
	case "":
		return "", fmt.Errorf("%w: csrf token missing from response", ports.ErrUpstream)
	case anonymousCSRFToken:
		return "", ports.ErrCredentialExpired
	}
	return csrf, nil
}

// call sends one API request and returns the parsed body. API error objects
// are returned as errors.
func (c *Client) call(ctx context.Context, method, wiki, token string, params url.Values) (gjson.Result, error) {
	action := params.Get("action")
	params.Set("format", "json")
	if c.cfg.MaxLag > 0 {
		params.Set("maxlag", strconv.Itoa(c.cfg.MaxLag))
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return gjson.Result{}, fmt.Errorf("%w: %s on %s: waiting for rate limiter: %w", ports.ErrUpstream, action, wiki, err)
		}
	}

	endpoint := fmt.Sprintf(c.cfg.APIURLTemplate, wiki)
	var body io.Reader
	if method == http.MethodGet {
		endpoint += "?" + params.Encode()
	} else {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: building %s request: %w", ports.ErrUpstream, action, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	start := time.Now()
	resp, err := c.clientFor(ctx, token).Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %s on %s: %w", ports.ErrUpstream, action, wiki, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("%w: reading %s response: %w", ports.ErrUpstream, action, err)
	}

	c.logger.Debug().
		Str("action", action).
		Str("wiki", wiki).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gjson.Result{}, fmt.Errorf("%w: %s on %s: status %d", ports.ErrUpstream, action, wiki, resp.StatusCode)
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("%w: %s on %s: malformed JSON response", ports.ErrUpstream, action, wiki)
	}

	result := gjson.ParseBytes(data)
	if apiErr := result.Get("error"); apiErr.Exists() {
		return gjson.Result{}, classify(action, wiki, &ports.APIError{
			Code: apiErr.Get("code").String(),
			Info: apiErr.Get("info").String(),
		})
	}
	return result, nil
}

// clientFor returns an HTTP client that sends token as a bearer credential.
func (c *Client) clientFor(ctx context.Context, token string) *http.Client {
	if token == "" {
		return c.http
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
}

// classify wraps an API error object with the matching sentinels.
func classify(action, wiki string, apiErr *ports.APIError) error {
	switch {
	case apiErr.Code == "editconflict":
		return fmt.Errorf("%w: %w: %s on %s: %w", ports.ErrUpstream, ports.ErrRevisionConflict, action, wiki, apiErr)
	case apiErr.Code == "assertuserfailed", strings.HasPrefix(apiErr.Code, "mwoauth-invalid-authorization"):
		return fmt.Errorf("%w: %w: %s on %s: %w", ports.ErrUpstream, ports.ErrCredentialExpired, action, wiki, apiErr)
	default:
		return fmt.Errorf("%w: %s on %s: %w", ports.ErrUpstream, action, wiki, apiErr)
	}
}
