package woocommerce

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

const sampleOrders = `[{
  "id": 123456,
  "status": "processing",
  "date_created": "2025-03-10T19:05:00",
  "total": "150.90",
  "shipping_total": "12.00",
  "payment_method": "stripe",
  "billing": {"first_name": "Maria Clara", "phone": "(31) 99850-1560", "company": "07", "number": 45},
  "meta_data": [
    {"id": 1, "key": "delivery_time", "value": "14:00 - 17:00"},
    {"id": 2, "key": "delivery_time", "value": "18:00 - 21:00"},
    {"id": 3, "key": "coupon_info", "value": ["x", "y", "percent", 10]}
  ],
  "line_items": [{"id": 9, "name": "Picanha", "product_id": 77, "quantity": 2, "subtotal": "120.00"}]
}]`

func TestListOrdersFormatsWindowInShopTime(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	fixed := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)
	var captured *http.Request
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(http.StatusOK, "[]"), nil
	})

	client, err := NewClient("https://shop.test", "ck", "cs",
		WithHTTPClient(&http.Client{Transport: rt}),
		WithClock(func() time.Time { return fixed }),
		WithLocation(loc),
	)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if _, err := client.ListOrders(context.Background(), ListParams{Lookback: time.Hour}); err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if got := captured.URL.Query().Get("modified_after"); got != "2025-03-10T16:00:00" {
		t.Fatalf("expected shop-local window, got %q", got)
	}
}

func TestListOrdersBuildsQuery(t *testing.T) {
	fixed := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)
	var captured *http.Request
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		captured = req
		return jsonResponse(http.StatusOK, sampleOrders), nil
	})

	client, err := NewClient("https://shop.test/delivery/", "ck", "cs",
		WithHTTPClient(&http.Client{Transport: rt}), WithClock(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	orders, err := client.ListOrders(context.Background(), ListParams{PerPage: 5})
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}

	if captured.URL.Path != "/delivery/wp-json/wc/v3/orders" {
		t.Fatalf("unexpected path %q", captured.URL.Path)
	}
	q := captured.URL.Query()
	want := map[string]string{
		"per_page":       "5",
		"order":          "desc",
		"orderby":        "modified",
		"status":         "processing",
		"modified_after": "2025-03-10T19:00:00",
	}
	for k, v := range want {
		if q.Get(k) != v {
			t.Fatalf("query %s expected %q got %q", k, v, q.Get(k))
		}
	}
	user, pass, ok := captured.BasicAuth()
	if !ok || user != "ck" || pass != "cs" {
		t.Fatalf("expected basic auth, got %q/%q", user, pass)
	}

	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	order := orders[0]
	if order.ID.String() != "123456" {
		t.Fatalf("expected numeric id normalized to string, got %q", order.ID)
	}
	if order.Billing.Company.String() != "07" || order.Billing.Number.String() != "45" {
		t.Fatalf("unexpected billing %+v", order.Billing)
	}
	meta := order.Meta()
	if v, _ := meta.String("delivery_time"); v != "18:00 - 21:00" {
		t.Fatalf("expected last-wins meta, got %q", v)
	}
	if _, ok := meta.String("coupon_info"); ok {
		t.Fatal("array meta should not render as scalar text")
	}
	if raw, ok := meta.Raw("coupon_info"); !ok || !strings.HasPrefix(string(raw), "[") {
		t.Fatalf("expected raw coupon info, got %s", raw)
	}
}

func TestProductWeight(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/wp-json/wc/v3/products/77" {
			t.Fatalf("unexpected path %q", req.URL.Path)
		}
		return jsonResponse(http.StatusOK, `{"id":77,"meta_data":[{"key":"_weight_grams","value":"500"}]}`), nil
	})
	client, err := NewClient("https://shop.test", "ck", "cs", WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	weight, ok, err := client.ProductWeight(context.Background(), 77)
	if err != nil || !ok || weight != "500" {
		t.Fatalf("expected weight 500, got %q %v %v", weight, ok, err)
	}
}

func TestStatusErrorsClassifyRetry(t *testing.T) {
	cases := []struct {
		status    int
		code      pkgerrors.Code
		retryable bool
	}{
		{http.StatusServiceUnavailable, pkgerrors.CodeDependency, true},
		{http.StatusTooManyRequests, pkgerrors.CodeDependency, true},
		{http.StatusUnauthorized, pkgerrors.CodeDependency, false},
		{http.StatusNotFound, pkgerrors.CodeNotFound, false},
	}
	for _, tc := range cases {
		rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
			return jsonResponse(tc.status, `{"code":"x"}`), nil
		})
		client, _ := NewClient("https://shop.test", "ck", "cs", WithHTTPClient(&http.Client{Transport: rt}))
		_, err := client.Product(context.Background(), 1)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != tc.code {
			t.Fatalf("status %d: expected code %s, got %v", tc.status, tc.code, err)
		}
		if typed.Retryable() != tc.retryable {
			t.Fatalf("status %d: expected retryable %v", tc.status, tc.retryable)
		}
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient("https://shop.test", "", "cs"); err == nil {
		t.Fatal("expected missing key to fail")
	}
}
