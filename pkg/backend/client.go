package backend

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

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/frontdesk/pkg/booking"
)

const DefaultTimeout = 10 * time.Second

// Client talks to the reservations REST backend. It implements booking.Gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	tokens     TokenSource
	logger     apt.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout bounds each request, including when the transport comes from
// WithHTTPClient. The given client is copied, never modified.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) {
		c.tokens = ts
	}
}

func WithLogger(logger apt.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		tokens:     StaticToken(""),
		logger:     apt.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}
	return c
}

// ForSession returns a client sharing transport and base URL but carrying the
// given session's token.
func (c *Client) ForSession(ts TokenSource) *Client {
	clone := *c
	clone.tokens = ts
	return &clone
}

var _ booking.Gateway = (*Client)(nil)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// response is a raw backend answer before envelope decoding.
type response struct {
	status int
	body   []byte
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any) (*response, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("cannot encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		req.URL.RawQuery = query.Encode()
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Backend request", "method", method, "path", path, "status", resp.StatusCode)
	return &response{status: resp.StatusCode, body: b}, nil
}

// read performs a read request and decodes the envelope data into out.
// Every failure is a request failure so the resolver can degrade.
func (c *Client) read(ctx context.Context, op, path string, query url.Values, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return c.transportFailure(ctx, op, err)
	}
	if resp.status == http.StatusUnauthorized {
		return c.unauthorized(op)
	}
	if resp.status >= 300 {
		return &booking.RequestFailure{Op: op, StatusCode: resp.status, Err: errors.New(messageOf(resp.body, http.StatusText(resp.status)))}
	}

	env, err := decodeEnvelope(resp.body)
	if err != nil {
		return &booking.RequestFailure{Op: op, StatusCode: resp.status, Err: err}
	}
	if !env.Success {
		return &booking.RequestFailure{Op: op, StatusCode: resp.status, Err: errors.New(orDefault(env.Message, "unsuccessful response"))}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &booking.RequestFailure{Op: op, StatusCode: resp.status, Err: fmt.Errorf("cannot decode data: %w", err)}
	}
	return nil
}

// write performs a mutating request. Rejections of the payload surface as
// *booking.ServerValidationError, a taken slot as *booking.ConflictError.
func (c *Client) write(ctx context.Context, op, method, path string, payload, out any) error {
	resp, err := c.do(ctx, method, path, nil, payload)
	if err != nil {
		return c.transportFailure(ctx, op, err)
	}

	switch {
	case resp.status == http.StatusUnauthorized:
		return c.unauthorized(op)
	case resp.status == http.StatusConflict:
		return &booking.ConflictError{Message: messageOf(resp.body, "")}
	case resp.status == http.StatusBadRequest || resp.status == http.StatusUnprocessableEntity:
		return &booking.ServerValidationError{Message: messageOf(resp.body, "The request was rejected")}
	case resp.status >= 500:
		return &booking.RequestFailure{Op: op, StatusCode: resp.status, Err: errors.New(messageOf(resp.body, http.StatusText(resp.status)))}
	case resp.status >= 300:
		return &booking.ServerValidationError{Message: messageOf(resp.body, http.StatusText(resp.status))}
	}

	env, err := decodeEnvelope(resp.body)
	if err != nil {
		return &booking.ServerValidationError{Message: "Unexpected response from the reservations service"}
	}
	if !env.Success {
		return &booking.ServerValidationError{Message: orDefault(env.Message, "The request was rejected")}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &booking.ServerValidationError{Message: "Unexpected response from the reservations service"}
	}
	return nil
}

func (c *Client) transportFailure(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &booking.RequestFailure{Op: op, Err: err}
}

func (c *Client) unauthorized(op string) error {
	c.tokens.Invalidate()
	c.logger.Info("Backend rejected session token", "op", op)
	return &booking.RequestFailure{Op: op, StatusCode: http.StatusUnauthorized, Err: booking.ErrUnauthorized}
}

func decodeEnvelope(body []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return env, fmt.Errorf("cannot decode response: %w", err)
	}
	return env, nil
}

func messageOf(body []byte, def string) string {
	var env struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	return def
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
