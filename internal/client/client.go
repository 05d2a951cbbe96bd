// Package client talks to the reports backend REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultSessionCookie is the cookie checked for an expired JWT before a call
const DefaultSessionCookie = "session"

// Config configures a Client
type Config struct {
	BaseURL       string
	AuthServerURL string
	PublicURL     string
	SessionCookie string
	Timeout       time.Duration
}

// Client is a JSON client for the backend API. A 401 from the backend is
// turned into an AuthRedirectError pointing at the auth server.
type Client struct {
	baseURL       string
	authServerURL string
	publicURL     string
	sessionCookie string
	httpClient    *http.Client
	now           func() time.Time
}

// New creates a client with a cookie jar
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("backend base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.SessionCookie == "" {
		cfg.SessionCookie = DefaultSessionCookie
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		authServerURL: strings.TrimRight(cfg.AuthServerURL, "/"),
		publicURL:     cfg.PublicURL,
		sessionCookie: cfg.SessionCookie,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Jar:     jar,
		},
		now: time.Now,
	}, nil
}

// LoginURL builds the auth server login URL for a return URL
func (c *Client) LoginURL(returnURL string) string {
	if returnURL == "" {
		returnURL = c.publicURL
	}
	return c.authServerURL + "/login?redirect=" + url.QueryEscape(returnURL)
}

// Do sends a request and decodes the response into out. in is encoded as
// JSON when non-nil. out may be nil, a *string for text bodies, or any
// JSON target. Empty and 204 responses leave out untouched.
func (c *Client) Do(ctx context.Context, method, path string, in, out interface{}) error {
	if err := c.checkSession(ctx); err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookiesFrom(ctx) {
		req.AddCookie(cookie)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Backend request")

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return &AuthRedirectError{LoginURL: c.LoginURL(returnURLFrom(ctx))}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &HTTPError{Method: method, Path: path, Status: resp.StatusCode, Body: string(data)}
	}

	return decodeBody(resp, data, out)
}

func (c *Client) checkSession(ctx context.Context) error {
	for _, cookie := range cookiesFrom(ctx) {
		if cookie.Name == c.sessionCookie && sessionExpired(cookie.Value, c.now()) {
			return &AuthRedirectError{LoginURL: c.LoginURL(returnURLFrom(ctx))}
		}
	}
	return nil
}

func decodeBody(resp *http.Response, data []byte, out interface{}) error {
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(data)) == 0 || out == nil {
		return nil
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}

	switch target := out.(type) {
	case *string:
		*target = string(data)
	case *interface{}:
		*target = string(data)
	default:
		// some backends omit the content type on JSON bodies
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("unexpected %q response: %s", mediaType, truncate(string(data), 200))
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
