package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	statement "billing-desk/internal/statement/domain"
)

const defaultTimeout = 10 * time.Second

// Client is a minimal REST client for the billing backend.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.client.Timeout = timeout
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient constructs a backend client.
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("backend: empty base url")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// envelope is the response wrapper every backend endpoint uses.
type envelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	var reqBody io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < 300 {
			return err
		}
	}

	if resp.StatusCode == http.StatusConflict {
		payload := env.Data
		if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
			payload = raw
		}
		conflict, err := statement.DecodeConflict(payload)
		if err != nil {
			c.logger.Warn().Err(err).Str("path", path).Msg("undecodable conflict payload")
			return &APIError{Status: resp.StatusCode, Message: env.Message, Errors: normalizeErrors(env.Errors)}
		}
		return &ConflictError{Conflict: conflict}
	}
	if resp.StatusCode >= 300 || (env.Success != nil && !*env.Success) {
		status := resp.StatusCode
		if status < 300 {
			status = http.StatusUnprocessableEntity
		}
		return &APIError{Status: status, Message: env.Message, Errors: normalizeErrors(env.Errors)}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if rawOut, ok := out.(*json.RawMessage); ok {
		*rawOut = append((*rawOut)[:0], env.Data...)
		return nil
	}
	return json.Unmarshal(env.Data, out)
}

// normalizeErrors flattens the shapes the backend uses for field errors:
// {"field":"msg"}, {"field":["msg", ...]} and ["msg", ...].
func normalizeErrors(raw json.RawMessage) map[string]string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var byField map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byField); err == nil {
		out := make(map[string]string, len(byField))
		for field, value := range byField {
			out[field] = joinMessages(value)
		}
		return out
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return map[string]string{"_": strings.Join(list, "; ")}
	}
	return nil
}

func joinMessages(raw json.RawMessage) string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return single
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		sort.Strings(many)
		return strings.Join(many, "; ")
	}
	return string(raw)
}
