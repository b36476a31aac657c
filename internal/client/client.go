// Package client talks to the dataset backend over its REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/JonMunkholm/dsimport/internal/core"
)

// DefaultTimeout applies when Options.Timeout is zero.
const DefaultTimeout = 60 * time.Second

// maxErrorBody caps how much of an error response is kept in StatusError.
const maxErrorBody = 4 << 10

// Options configures a Client.
type Options struct {
	BaseURL   string
	APIKey    string
	ProjectID string
	Timeout   time.Duration

	// HTTPClient replaces the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client is a thin JSON client for the dataset backend.
type Client struct {
	hc        *http.Client
	baseURL   string
	apiKey    string
	projectID string
}

// New validates opts and returns a Client.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		return nil, errors.New("client: base URL is required")
	}
	if _, err := url.ParseRequestURI(base); err != nil {
		return nil, fmt.Errorf("client: invalid base URL: %w", err)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		hc:        hc,
		baseURL:   base,
		apiKey:    opts.APIKey,
		projectID: opts.ProjectID,
	}, nil
}

// ProjectID returns the default project used when a call does not name one.
func (c *Client) ProjectID() string {
	return c.projectID
}

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// Retryable reports whether the request may succeed when sent again.
func (e *StatusError) Retryable() bool {
	return e.Status >= 500 || e.Status == http.StatusRequestTimeout || e.Status == http.StatusTooManyRequests
}

// Unwrap marks client errors as permanent so the importer does not retry them.
func (e *StatusError) Unwrap() error {
	if e.Retryable() {
		return nil
	}
	return core.ErrPermanent
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusNotFound
}

func (c *Client) projectPath(projectID string, parts ...string) string {
	if projectID == "" {
		projectID = c.projectID
	}
	p := "/v1/projects/" + url.PathEscape(projectID)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// do sends a JSON request and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	reqID := middleware.GetReqID(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	req.Header.Set("X-Request-Id", reqID)

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts {"error": "..."} or {"message": "..."} from an
// error body, falling back to the raw text.
func errorMessage(r io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		return "empty response"
	}
	return msg
}
