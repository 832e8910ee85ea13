package woocommerce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
)

const (
	apiPath                    = "/wp-json/wc/v3"
	modifiedAfterLayout        = "2006-01-02T15:04:05"
	responseBodyReadLimit int64 = 1024
)

var errCredentialsRequired = errors.New("woocommerce consumer key and secret are required")

// Client reads orders and products from the WooCommerce REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	key        string
	secret     string
	now        func() time.Time
	loc        *time.Location
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClock overrides the clock used for the modified_after window.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLocation sets the shop timezone. WooCommerce reads modified_after as
// shop-local wall time, so the window is formatted in loc.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// NewClient builds a client for the store rooted at baseURL.
func NewClient(baseURL, consumerKey, consumerSecret string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(consumerKey) == "" || strings.TrimSpace(consumerSecret) == "" {
		return nil, errCredentialsRequired
	}
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("woocommerce base url is required")
	}

	client := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    trimmed,
		key:        consumerKey,
		secret:     consumerSecret,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// ListParams narrows the order listing.
type ListParams struct {
	Status   string
	PerPage  int
	Lookback time.Duration
}

// ListOrders returns the most recently modified orders, newest first.
func (c *Client) ListOrders(ctx context.Context, params ListParams) ([]Order, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "woocommerce client not configured")
	}
	status := params.Status
	if status == "" {
		status = "processing"
	}
	perPage := params.PerPage
	if perPage <= 0 {
		perPage = 5
	}
	lookback := params.Lookback
	if lookback <= 0 {
		lookback = time.Hour
	}

	query := url.Values{}
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("order", "desc")
	query.Set("orderby", "modified")
	query.Set("status", status)
	query.Set("modified_after", c.modifiedAfter(lookback))

	var orders []Order
	if err := c.get(ctx, "/orders", query, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) modifiedAfter(lookback time.Duration) string {
	now := c.now()
	if c.loc != nil {
		now = now.In(c.loc)
	}
	return now.Add(-lookback).Format(modifiedAfterLayout)
}

// Product fetches a single product by id.
func (c *Client) Product(ctx context.Context, id int64) (*Product, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "woocommerce client not configured")
	}
	if id <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	var product Product
	if err := c.get(ctx, fmt.Sprintf("/products/%d", id), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// ProductWeight returns the _weight_grams meta of a product, if any.
func (c *Client) ProductWeight(ctx context.Context, id int64) (string, bool, error) {
	product, err := c.Product(ctx, id)
	if err != nil {
		return "", false, err
	}
	weight, ok := product.Meta().NonEmpty("_weight_grams")
	return weight, ok, nil
}

// Meta indexes the product metadata.
func (p Product) Meta() Meta {
	return NewMeta(p.MetaData)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + apiPath + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build woocommerce request")
	}
	req.SetBasicAuth(c.key, c.secret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute woocommerce request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return statusError(resp.StatusCode, msg, "woocommerce "+path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode woocommerce response").WithRetryable(false)
	}
	return nil
}

func statusError(status int, body []byte, op string) error {
	err := pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", status, strings.TrimSpace(string(body))), op+" failed")
	if status == http.StatusNotFound {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, op+" not found")
	}
	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		return err
	}
	return err.WithRetryable(false)
}
