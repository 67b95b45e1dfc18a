// Package api is a small REST client whose calls plug into swrcache as fetchers.
//
// Identity lives in a Session that the Client reads on every request, so
// fetcher closures built once keep working across sign-in and token refresh.
package api

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

	"github.com/cenkalti/backoff/v4"

	"github.com/unkn0wn-root/swrcache"
)

const (
	defaultTimeout  = 15 * time.Second
	maxErrorBody    = 512
	defaultMaxRetry = 2
)

var ErrUnauthenticated = errors.New("api: no session token")

// StatusError is a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api: %s %s: %d %s", e.Method, e.Path, e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("api: %s %s: %d %s: %s", e.Method, e.Path, e.Code, http.StatusText(e.Code), e.Body)
}

// Temporary reports whether retrying the request may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Options configure a Client. Zero values use defaults.
type Options struct {
	HTTPClient *http.Client
	// MaxRetries bounds retries of transport errors and 5xx/429 responses.
	// Negative disables retries; 0 => 2.
	MaxRetries int
	// InitialBackoff is the first retry delay; 0 => the backoff package default.
	InitialBackoff time.Duration
	Logger         swrcache.Logger
}

// Client calls the REST API on behalf of a Session.
type Client struct {
	base    *url.URL
	session *Session
	http    *http.Client
	retries int
	backoff time.Duration
	log     swrcache.Logger
}

func NewClient(baseURL string, s *Session, opts Options) (*Client, error) {
	if s == nil {
		return nil, errors.New("api: session is required")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api: base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		base:    u,
		session: s,
		http:    opts.HTTPClient,
		retries: opts.MaxRetries,
		backoff: opts.InitialBackoff,
		log:     opts.Logger,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultTimeout}
	}
	if c.retries == 0 {
		c.retries = defaultMaxRetry
	}
	if c.log == nil {
		c.log = swrcache.NopLogger{}
	}
	return c, nil
}

func (c *Client) Session() *Session { return c.session }

// Get fetches path and returns the response's "data" member. Bodies that are
// not an object with a "data" member are returned as is.
func (c *Client) Get(ctx context.Context, path string) (json.RawMessage, error) {
	body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return unwrap(body)
}

// Send issues a mutating request with a JSON body and returns the unwrapped response.
// It is not retried.
func (c *Client) Send(ctx context.Context, method, path string, in any) (json.RawMessage, error) {
	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("api: encode body: %w", err)
		}
		payload = b
	}
	body, err := c.once(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	return unwrap(body)
}

// Fetcher returns a swrcache fetcher for GET path.
func (c *Client) Fetcher(path string) swrcache.Fetcher[json.RawMessage] {
	return func(ctx context.Context) (json.RawMessage, error) {
		return c.Get(ctx, path)
	}
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if c.retries < 0 {
		return c.once(ctx, method, path, payload)
	}

	eb := backoff.NewExponentialBackOff()
	if c.backoff > 0 {
		eb.InitialInterval = c.backoff
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.retries)), ctx)

	var body []byte
	op := func() error {
		b, err := c.once(ctx, method, path, payload)
		if err != nil {
			if !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		body = b
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.log.Debug("retrying request", swrcache.Fields{"path": path, "wait": wait, "err": err})
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	token := c.session.Token()
	if token == "" {
		return nil, ErrUnauthenticated
	}

	var rd io.Reader
	if payload != nil {
		rd = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.resolve(path), rd)
	if err != nil {
		return nil, fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("api: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: errorText(body)}
	}
	return body, nil
}

func (c *Client) resolve(path string) string {
	p, q, _ := strings.Cut(path, "?")
	u := c.base.JoinPath(p)
	u.RawQuery = q
	return u.String()
}

func retryable(err error) bool {
	if errors.Is(err, ErrUnauthenticated) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

// unwrap strips exactly one transport envelope level.
func unwrap(body []byte) (json.RawMessage, error) {
	if !json.Valid(body) {
		return nil, errors.New("api: response is not valid JSON")
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &env); err == nil && env.Data != nil {
			return env.Data, nil
		}
	}
	return json.RawMessage(trimmed), nil
}

// errorText extracts a server message, falling back to the truncated body.
func errorText(body []byte) string {
	var msg struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &msg) == nil {
		if msg.Message != "" {
			return msg.Message
		}
		if msg.Error != "" {
			return msg.Error
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}
