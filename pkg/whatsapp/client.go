// Package whatsapp sends text messages through an HTTP WhatsApp gateway.
package whatsapp

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

	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
)

const responseBodyReadLimit int64 = 4096

// Dialect selects the gateway's request shape.
type Dialect string

const (
	// DialectEvolution posts {"number","text"} with an apikey header.
	DialectEvolution Dialect = "evolution"
	// DialectWzap posts {"phone","message"} with a Token header.
	DialectWzap Dialect = "wzap"
)

var ErrInvalidPhone = errors.New("whatsapp: invalid phone number")

type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	dialect    Dialect
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

func NewClient(dialect Dialect, endpoint, apiKey string, opts ...Option) (*Client, error) {
	switch dialect {
	case DialectEvolution, DialectWzap:
	default:
		return nil, fmt.Errorf("unknown whatsapp dialect %q", dialect)
	}
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("whatsapp endpoint is required")
	}
	client := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   strings.TrimSpace(endpoint),
		apiKey:     apiKey,
		dialect:    dialect,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Response carries the gateway reply. Body is decoded when it is JSON.
type Response struct {
	StatusCode int
	Body       map[string]any
	Raw        []byte
}

// Send delivers text to phone, which must already be digits-only.
func (c *Client) Send(ctx context.Context, phone, text string) (*Response, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "whatsapp client not configured")
	}
	if !validPhone(phone) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrInvalidPhone, fmt.Sprintf("phone %q", phone))
	}

	payload, err := json.Marshal(c.body(phone, text))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal whatsapp payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build whatsapp request")
	}
	req.Header.Set("Content-Type", "application/json")
	switch c.dialect {
	case DialectEvolution:
		req.Header.Set("apikey", c.apiKey)
	case DialectWzap:
		req.Header.Set("Token", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute whatsapp request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	out := &Response{StatusCode: resp.StatusCode, Raw: raw}
	var decoded map[string]any
	if json.Unmarshal(raw, &decoded) == nil {
		out.Body = decoded
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		typed := pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))), "whatsapp send failed")
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < http.StatusInternalServerError {
			typed = typed.WithRetryable(false)
		}
		return out, typed
	}
	return out, nil
}

func (c *Client) body(phone, text string) map[string]string {
	if c.dialect == DialectWzap {
		return map[string]string{"phone": phone, "message": text}
	}
	return map[string]string{"number": phone, "text": text}
}

func validPhone(phone string) bool {
	if len(phone) < 10 {
		return false
	}
	for _, r := range phone {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
