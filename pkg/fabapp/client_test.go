package fabapp

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

const sampleDetail = `{
  "id": 991,
  "orderNumber": 4512,
  "userName": "Joao Pedro",
  "userPhone": "5531988887777",
  "address": {"address": "Rua A", "number": "10", "neighborhood": "Centro", "city": "Belo Horizonte", "zipCode": "30000-000", "lat": -19.9, "lng": -43.9},
  "delivery": {"method": "in_home"},
  "paymentMethod": {"option": {"title": "Voucher"}},
  "status": {"title": "Novo"},
  "shippingTax": 700,
  "amountFinal": 15990,
  "createdAt": "2025-03-10T12:30:00.000-0300",
  "items": [{"productName": "Fraldinha", "quantity": 1}]
}`

func TestListAndFetchOrders(t *testing.T) {
	var paths []string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		paths = append(paths, req.URL.Path)
		if req.Header.Get("Authorization") != "Bearer tok" {
			t.Fatalf("missing auth header")
		}
		body := `{"data":[{"id":991},{"id":"992","orderNumber":"4513"}]}`
		if strings.HasSuffix(req.URL.Path, "/991") {
			body = sampleDetail
		}
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader(body)), Header: http.Header{}}, nil
	})

	client, err := NewClient("26682591", WithBaseURL("https://panel.test/panel/"), WithAuthToken("tok"),
		WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	refs, err := client.ListOrders(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(refs) != 2 || refs[0].ID.String() != "991" || refs[1].OrderNumber.String() != "4513" {
		t.Fatalf("unexpected refs %+v", refs)
	}

	order, err := client.Order(context.Background(), "991")
	if err != nil {
		t.Fatalf("order: %v", err)
	}
	if order.OrderNumber.String() != "4512" || order.AmountFinal.String() != "15990" {
		t.Fatalf("unexpected order %+v", order)
	}
	created, err := order.CreatedTime()
	if err != nil {
		t.Fatalf("created: %v", err)
	}
	if created.Hour() != 12 || created.Minute() != 30 {
		t.Fatalf("unexpected created time %v", created)
	}

	if paths[0] != "/panel/stores/26682591/orders" || paths[1] != "/panel/stores/26682591/orders/991" {
		t.Fatalf("unexpected paths %v", paths)
	}
}

func TestOrderErrors(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusBadGateway, Body: io.NopCloser(strings.NewReader("bad gateway")), Header: http.Header{}}, nil
	})
	client, _ := NewClient("1", WithHTTPClient(&http.Client{Transport: rt}))

	_, err := client.Order(context.Background(), "5")
	typed := pkgerrors.As(err)
	if typed == nil || !typed.Retryable() {
		t.Fatalf("expected retryable dependency error, got %v", err)
	}

	if _, err := client.Order(context.Background(), " "); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
