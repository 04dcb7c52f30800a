package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ThreadsPath = "/threads"

	requestIDHeader = "X-Request-Id"
)

// ThreadPath is the message log path of a thread. The id is interpolated
// as-is.
func ThreadPath(id ID) string {
	return "/thread?thread=" + string(id)
}

// ErrRequestFailed is returned when a response carries neither an error
// nor a result.
var ErrRequestFailed = errors.New("request failed")

// ServerError is an error reported by the server in the response envelope.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// envelope is the uniform response shape of both endpoints.
type envelope struct {
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

type requestIDKey struct{}

// WithRequestID attaches the id sent as X-Request-Id by the client.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func requestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// Client talks to an archive server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for the server at baseURL. A zero timeout
// leaves requests bounded only by their context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the server address requests are sent to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetJSON fetches path and decodes the envelope's result into result.
//
// An envelope error is returned as *ServerError. The HTTP status is not
// consulted when the body is a valid envelope.
func (c *Client) GetJSON(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request for %s: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestIDHeader, requestID(ctx))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode %s (status %d): %w", path, resp.StatusCode, err)
	}
	if env.Error != "" {
		return &ServerError{Message: env.Error}
	}
	if isAbsent(env.Result) {
		return fmt.Errorf("%s: %w", path, ErrRequestFailed)
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("decode %s result: %w", path, err)
	}
	return nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

// ProbeResult describes an attachment as reported by its host.
type ProbeResult struct {
	ContentType string
	Size        int64
}

// Probe issues a HEAD request for an attachment. Relative URLs are resolved
// against the server address.
func (c *Client) Probe(ctx context.Context, rawURL string) (ProbeResult, error) {
	target := rawURL
	if strings.HasPrefix(target, "/") {
		target = c.baseURL + target
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("build probe for %s: %w", rawURL, err)
	}
	req.Header.Set(requestIDHeader, requestID(ctx))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("probe %s: %w", rawURL, err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ProbeResult{}, fmt.Errorf("probe %s: unexpected status %s", rawURL, resp.Status)
	}
	return ProbeResult{
		ContentType: resp.Header.Get("Content-Type"),
		Size:        resp.ContentLength,
	}, nil
}

// Probeable reports whether an attachment URL can be probed over HTTP.
func Probeable(rawURL string) bool {
	return strings.HasPrefix(rawURL, "http://") ||
		strings.HasPrefix(rawURL, "https://") ||
		strings.HasPrefix(rawURL, "/")
}
