package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
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

func TestSendDialects(t *testing.T) {
	cases := []struct {
		dialect   Dialect
		header    string
		phoneKey  string
		textKey   string
		respBody  string
		wantField string
	}{
		{DialectEvolution, "apikey", "number", "text", `{"key":{"id":"abc"}}`, "key"},
		{DialectWzap, "Token", "phone", "message", `{"status":"queued"}`, "status"},
	}

	for _, tc := range cases {
		rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(tc.header) != "secret" {
				t.Fatalf("%s: missing %s header", tc.dialect, tc.header)
			}
			body, _ := io.ReadAll(req.Body)
			var payload map[string]string
			if err := json.Unmarshal(body, &payload); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if payload[tc.phoneKey] != "5531998501560" || payload[tc.textKey] != "oi" {
				t.Fatalf("%s: unexpected payload %v", tc.dialect, payload)
			}
			return &http.Response{StatusCode: http.StatusCreated, Body: io.NopCloser(strings.NewReader(tc.respBody)), Header: http.Header{}}, nil
		})

		client, err := NewClient(tc.dialect, "https://gw.test/send", "secret", WithHTTPClient(&http.Client{Transport: rt}))
		if err != nil {
			t.Fatalf("new client: %v", err)
		}
		resp, err := client.Send(context.Background(), "5531998501560", "oi")
		if err != nil {
			t.Fatalf("%s: send: %v", tc.dialect, err)
		}
		if _, ok := resp.Body[tc.wantField]; !ok {
			t.Fatalf("%s: expected decoded body, got %v", tc.dialect, resp.Body)
		}
	}
}

func TestSendRejectsInvalidPhone(t *testing.T) {
	client, _ := NewClient(DialectEvolution, "https://gw.test", "k", WithHTTPClient(&http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		t.Fatal("no request expected")
		return nil, nil
	})}))

	for _, phone := range []string{"", "12345", "55 31 9985"} {
		_, err := client.Send(context.Background(), phone, "x")
		if !errors.Is(err, ErrInvalidPhone) {
			t.Fatalf("phone %q: expected ErrInvalidPhone, got %v", phone, err)
		}
	}
}

func TestSendNonSuccessStatus(t *testing.T) {
	rt := roundTripFunc(func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusBadRequest, Body: io.NopCloser(strings.NewReader("not registered")), Header: http.Header{}}, nil
	})
	client, _ := NewClient(DialectWzap, "https://gw.test", "k", WithHTTPClient(&http.Client{Transport: rt}))
	resp, err := client.Send(context.Background(), "5531998501560", "x")
	if err == nil {
		t.Fatal("expected error")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected raw response to be returned, got %+v", resp)
	}
	if typed := pkgerrors.As(err); typed == nil || typed.Retryable() {
		t.Fatalf("4xx should not be retryable: %v", err)
	}
}

func TestNewClientUnknownDialect(t *testing.T) {
	if _, err := NewClient("sms", "https://gw.test", "k"); err == nil {
		t.Fatal("expected unknown dialect error")
	}
}
