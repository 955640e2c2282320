// Package foodgram is the typed client for the Foodgram REST backend.
//
// The backend is a fixed collaborator: this package consumes its contract as-is.
// Each backend capability is one method that takes a context and plain parameters,
// sends JSON, and decodes the JSON response into a model type.
//
// AUTHENTICATION:
// A Client is either anonymous or bound to a viewer's token via As(token).
// The token is attached by an oauth2.Transport wrapping the base transport, so
// individual methods never touch the Authorization header themselves.
//
// ERRORS:
// Any non-2xx response becomes an *APIError holding the parsed error body
// (field name → messages). Nothing is retried, cached or queued.
package foodgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// DefaultAuthScheme is the Authorization scheme the Foodgram token endpoint issues.
const DefaultAuthScheme = "Token"

// Config holds the client settings read from the environment.
type Config struct {
	BaseURL    string        // e.g. http://localhost:8000/api
	AuthScheme string        // Authorization scheme, "Token" by default
	Timeout    time.Duration // per-request timeout, 10s by default
}

// Client talks to the Foodgram backend. The zero value is not usable; call New.
//
// A Client is safe for concurrent use. As returns a shallow copy bound to a
// token, so one anonymous Client can serve every request of the server.
type Client struct {
	base      *url.URL
	transport http.RoundTripper // nil means http.DefaultTransport
	http      *http.Client
	scheme    string
	token     string
	logger    *slog.Logger
}

// New creates an anonymous Client for the backend at cfg.BaseURL.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("foodgram: parsing base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("foodgram: base URL %q must be absolute", cfg.BaseURL)
	}

	scheme := cfg.AuthScheme
	if scheme == "" {
		scheme = DefaultAuthScheme
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		base:   base,
		http:   &http.Client{Timeout: timeout},
		scheme: scheme,
		logger: logger,
	}, nil
}

// As returns a copy of the client that authenticates as the holder of token.
// An empty token returns an anonymous copy.
func (c *Client) As(token string) *Client {
	cp := *c
	cp.token = token
	if token == "" {
		cp.http = &http.Client{Timeout: c.http.Timeout, Transport: c.transport}
		return &cp
	}

	// oauth2.Token.Type() keeps non-standard schemes verbatim, so "Token" yields
	// "Authorization: Token <key>" as the backend expects.
	src := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   c.scheme,
	})
	cp.http = &http.Client{
		Timeout:   c.http.Timeout,
		Transport: &oauth2.Transport{Source: src, Base: c.transport},
	}
	return &cp
}

// Authenticated reports whether the client carries a viewer token.
func (c *Client) Authenticated() bool {
	return c.token != ""
}

// endpoint builds an absolute URL for a backend path such as "/recipes/".
func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.base
	u.Path = u.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// send performs one request and returns the raw response for 2xx statuses.
// The caller must close the body. Non-2xx responses are turned into *APIError.
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("foodgram: encoding %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, fmt.Errorf("foodgram: building %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			c.logger.Error("backend request failed",
				slog.String("method", method),
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("foodgram: %s %s: %w", method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		apiErr := parseAPIError(resp)

		level := slog.LevelWarn
		if resp.StatusCode >= 500 {
			level = slog.LevelError
		}
		c.logger.Log(ctx, level, "backend rejected request",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("error", apiErr.Error()),
		)
		return nil, apiErr
	}

	return resp, nil
}

// do performs a JSON round trip. out may be nil when the response body is ignored.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("foodgram: decoding %s %s response: %w", method, path, err)
	}
	return nil
}
