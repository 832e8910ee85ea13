// Package fabapp reads orders from the delivery-app store panel.
package fabapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
	"github.com/aogosto/order-triage/pkg/woocommerce"
)

const (
	defaultBaseURL              = "https://shop.fabapp.com/panel"
	responseBodyReadLimit int64 = 1024
)

// CreatedAtLayout is the panel's timestamp format.
const CreatedAtLayout = "2006-01-02T15:04:05.000-0700"

type Client struct {
	httpClient *http.Client
	baseURL    string
	storeID    string
	token      string
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithAuthToken sets a bearer token sent on every request.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

func NewClient(storeID string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(storeID) == "" {
		return nil, errors.New("fabapp store id is required")
	}
	client := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		storeID:    strings.TrimSpace(storeID),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// OrderRef is a list entry. OrderNumber is only present on newer panels.
type OrderRef struct {
	ID          woocommerce.FlexString `json:"id"`
	OrderNumber woocommerce.FlexString `json:"orderNumber"`
}

type Order struct {
	ID            woocommerce.FlexString `json:"id"`
	OrderNumber   woocommerce.FlexString `json:"orderNumber" validate:"required"`
	UserName      string                 `json:"userName" validate:"required"`
	UserPhone     string                 `json:"userPhone" validate:"required"`
	Address       Address                `json:"address"`
	Delivery      Delivery               `json:"delivery"`
	PaymentMethod PaymentMethod          `json:"paymentMethod"`
	Status        Status                 `json:"status"`
	ShippingTax   woocommerce.FlexString `json:"shippingTax"`
	AmountFinal   woocommerce.FlexString `json:"amountFinal"`
	CreatedAt     string                 `json:"createdAt" validate:"required"`
	Observation   string                 `json:"observation"`
	Items         []Item                 `json:"items"`
}

type Address struct {
	Address      string                 `json:"address"`
	Number       woocommerce.FlexString `json:"number"`
	Complement   string                 `json:"complement"`
	Neighborhood string                 `json:"neighborhood"`
	City         string                 `json:"city"`
	ZipCode      string                 `json:"zipCode"`
	Lat          woocommerce.FlexString `json:"lat"`
	Lng          woocommerce.FlexString `json:"lng"`
}

type Delivery struct {
	Method string `json:"method"`
}

type PaymentMethod struct {
	Option struct {
		Title string `json:"title"`
	} `json:"option"`
}

type Status struct {
	Title string `json:"title"`
}

type Item struct {
	ProductName string                 `json:"productName"`
	Quantity    woocommerce.FlexString `json:"quantity"`
	Price       woocommerce.FlexString `json:"price"`
}

// CreatedTime parses CreatedAt.
func (o Order) CreatedTime() (time.Time, error) {
	return time.Parse(CreatedAtLayout, strings.TrimSpace(o.CreatedAt))
}

// ListOrders returns the panel's current order list.
func (c *Client) ListOrders(ctx context.Context) ([]OrderRef, error) {
	var payload struct {
		Data []OrderRef `json:"data"`
	}
	if err := c.get(ctx, c.ordersPath(), &payload); err != nil {
		return nil, err
	}
	return payload.Data, nil
}

// Order fetches the full order detail.
func (c *Client) Order(ctx context.Context, id string) (*Order, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	var order Order
	if err := c.get(ctx, c.ordersPath()+"/"+url.PathEscape(trimmed), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) ordersPath() string {
	return fmt.Sprintf("%s/stores/%s/orders", c.baseURL, url.PathEscape(c.storeID))
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "fabapp client not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build fabapp request")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute fabapp request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		typed := pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "fabapp request failed")
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < http.StatusInternalServerError {
			typed = typed.WithRetryable(false)
		}
		return typed
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode fabapp response").WithRetryable(false)
	}
	return nil
}
