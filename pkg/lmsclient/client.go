// Package lmsclient is a typed client for the classroom REST API.
package lmsclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultTimeout = 30 * time.Second
	// SessionCookie is the cookie the API reads the access token from when no
	// Authorization header is sent.
	SessionCookie = "access_token"
)

// Client talks to the API. It keeps cookies between calls and is safe for
// concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  zerolog.Logger

	mu    sync.RWMutex
	token string
}

// Option customises a Client.
type Option func(*settings)

type settings struct {
	httpClient *http.Client
	timeout    time.Duration
	token      string
	logger     zerolog.Logger
}

// WithHTTPClient sends requests through a copy of httpClient, so the caller's
// client is never changed. A cookie jar is added to the copy when it has none.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(s *settings) {
		if httpClient != nil {
			s.httpClient = httpClient
		}
	}
}

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(s *settings) {
		s.token = strings.TrimSpace(token)
	}
}

// WithTimeout bounds every request. It applies whatever the option order,
// including to a client given with WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(s *settings) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithLogger enables debug logging of requests.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger.With().Str("component", "lmsclient").Logger()
	}
}

// New builds a client for baseURL, for example http://localhost:8080/api/v1.
func New(baseURL string, opts ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(strings.TrimSpace(baseURL), "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	cfg := settings{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	httpClient := &http.Client{Timeout: defaultTimeout}
	if cfg.httpClient != nil {
		clone := *cfg.httpClient
		httpClient = &clone
	}
	if cfg.timeout > 0 {
		httpClient.Timeout = cfg.timeout
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}

	return &Client{
		baseURL: parsed,
		http:    httpClient,
		logger:  cfg.logger,
		token:   cfg.token,
	}, nil
}

// SetToken replaces the bearer token. An empty token falls back to cookies.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = strings.TrimSpace(token)
}

// SetSessionCookie stores token in the cookie jar so requests authenticate
// the way a browser session does.
func (c *Client) SetSessionCookie(token string) {
	c.http.Jar.SetCookies(c.baseURL, []*http.Cookie{{
		Name:  SessionCookie,
		Value: token,
		Path:  "/",
	}})
}

func (c *Client) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) endpoint(path string, query url.Values) string {
	target := *c.baseURL
	target.Path = strings.TrimRight(target.Path, "/") + path
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}
	return target.String()
}

// do sends one request and decodes the unwrapped payload into out. It returns
// the pagination metadata when the response carries any.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out interface{}) (json.RawMessage, error) {
	var body io.Reader
	contentType := ""
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
		contentType = "application/json"
	}
	return c.send(ctx, method, path, query, body, contentType, out)
}

func (c *Client) send(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, out interface{}) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.bearer(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(started)).
		Msg("api request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp.StatusCode, raw)
	}

	data, meta := unwrap(raw)
	if out != nil && len(data) > 0 && !bytes.Equal(data, []byte("null")) {
		if err := json.Unmarshal(data, out); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return meta, nil
}

// upload posts a single file as multipart form data with extra form fields.
func (c *Client) upload(ctx context.Context, method, path, field, name string, reader io.Reader, fields map[string]string, out interface{}) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return fmt.Errorf("failed to write form field: %w", err)
		}
	}
	if reader != nil {
		part, err := writer.CreateFormFile(field, name)
		if err != nil {
			return fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := io.Copy(part, reader); err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish form: %w", err)
	}

	_, err := c.send(ctx, method, path, nil, body, writer.FormDataContentType(), out)
	return err
}

type envelope struct {
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

// unwrap peels up to two levels of {"data": ...} so both flat and nested
// envelopes decode to the same payload. Bodies without a data key are
// returned unchanged.
func unwrap(raw json.RawMessage) (json.RawMessage, json.RawMessage) {
	var meta json.RawMessage
	for level := 0; level < 2; level++ {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return raw, meta
		}
		data, ok := wrapper["data"]
		if !ok {
			return raw, meta
		}
		if m, ok := wrapper["meta"]; ok && len(m) > 0 && !bytes.Equal(m, []byte("null")) {
			meta = m
		}
		raw = data
	}
	return raw, meta
}

func decodeError(status int, raw []byte) error {
	apiErr := &APIError{Status: status}

	var body envelope
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}
	apiErr.Message = body.Message

	if len(body.Errors) > 0 {
		var details []string
		if err := json.Unmarshal(body.Errors, &details); err == nil {
			apiErr.Details = details
		} else {
			var detail string
			if err := json.Unmarshal(body.Errors, &detail); err == nil && detail != "" {
				apiErr.Details = []string{detail}
			}
		}
	}
	return apiErr
}

func call[T any](ctx context.Context, c *Client, method, path string, query url.Values, payload interface{}) (T, error) {
	var out T
	_, err := c.do(ctx, method, path, query, payload, &out)
	return out, err
}

func list[T any](ctx context.Context, c *Client, path string, query url.Values) (Page[T], error) {
	var items []T
	meta, err := c.do(ctx, http.MethodGet, path, query, nil, &items)
	if err != nil {
		return Page[T]{}, err
	}

	page := Page[T]{Items: items}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &page.Pagination); err != nil {
			return Page[T]{}, fmt.Errorf("failed to decode pagination: %w", err)
		}
	}
	return page, nil
}

func idPath(prefix string, id uint, suffix ...string) string {
	return fmt.Sprintf("%s/%d", prefix, id) + strings.Join(suffix, "")
}
