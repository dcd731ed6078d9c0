package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ksred/studio-payroll/internal/session"
)

var (
	// ErrAuthExpired is returned for any 401; the session is invalidated first
	ErrAuthExpired = errors.New("session expired")
	// ErrMalformedResponse is returned when a body cannot be decoded
	ErrMalformedResponse = errors.New("malformed response")
)

// StatusError describes a non-2xx response or an envelope reporting failure
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("request failed with status %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// Observation is reported to the observer after every request
type Observation struct {
	Method   string
	Path     string
	Status   int
	Duration time.Duration
	Err      error
}

// Client is the shared REST client used by every client-side component
type Client struct {
	baseURL  string
	session  *session.Session
	http     *http.Client
	timeout  time.Duration
	observer func(Observation)
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout. It is applied to a copy of the
// underlying client, whatever the option order.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithObserver registers fn to receive one Observation per request
func WithObserver(fn func(Observation)) Option {
	return func(c *Client) { c.observer = fn }
}

// New creates a client for baseURL (for example http://localhost:8080/api)
func New(baseURL string, sess *session.Session, opts ...Option) *Client {
	if sess == nil {
		sess = session.New("")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: sess,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		h := *c.http
		h.Timeout = c.timeout
		c.http = &h
	}
	return c
}

// Session returns the session the client authenticates with
func (c *Client) Session() *session.Session {
	return c.session
}

// Get decodes the data of GET path into out
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// Post sends body as JSON and decodes the response data into out
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

// Patch sends body as JSON and decodes the response data into out
func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, body, out)
}

// Delete issues DELETE path; out may be nil
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) (err error) {
	start := time.Now()
	status := 0
	requestID := uuid.New().String()

	logger := log.With().
		Str("component", "apiclient").
		Str("method", method).
		Str("path", path).
		Str("request_id", requestID).
		Logger()

	defer func() {
		if c.observer != nil {
			c.observer(Observation{
				Method:   method,
				Path:     path,
				Status:   status,
				Duration: time.Since(start),
				Err:      err,
			})
		}
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost {
		req.Header.Set("Idempotency-Key", uuid.New().String())
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Debug().Err(err).Msg("request failed")
		return err
	}
	defer resp.Body.Close()
	status = resp.StatusCode

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	logger.Debug().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request completed")

	if resp.StatusCode == http.StatusUnauthorized {
		c.session.Invalidate()
		return fmt.Errorf("%w: %w", ErrAuthExpired, statusError(resp.StatusCode, respBody))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp.StatusCode, respBody)
	}

	if err := decodeData(respBody, out); err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			se.StatusCode = resp.StatusCode
		}
		return err
	}
	return nil
}

type envelopeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *envelopeError  `json:"error"`
}

// decodeData reduces a response body to its payload. The API answers
// either with a bare JSON value or with {success, data, error}; both are
// normalized here so callers only ever see the inner value.
func decodeData(body []byte, out any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		if out == nil {
			return nil
		}
		return fmt.Errorf("%w: empty body", ErrMalformedResponse)
	}

	payload := json.RawMessage(trimmed)
	if trimmed[0] == '{' {
		var keys map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &keys); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		_, hasData := keys["data"]
		_, hasSuccess := keys["success"]
		if hasData || hasSuccess {
			var env envelope
			if err := json.Unmarshal(trimmed, &env); err != nil {
				return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
			}
			if env.Success != nil && !*env.Success {
				se := &StatusError{}
				if env.Error != nil {
					se.Code = env.Error.Code
					se.Message = env.Error.Message
				}
				return se
			}
			payload = env.Data
		}
	}

	if out == nil {
		return nil
	}
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}

func statusError(status int, body []byte) *StatusError {
	se := &StatusError{StatusCode: status}
	var env envelope
	if json.Unmarshal(bytes.TrimSpace(body), &env) == nil && env.Error != nil {
		se.Code = env.Error.Code
		se.Message = env.Error.Message
	}
	return se
}
