package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestPolicyRetriesTransientUntilSuccess(t *testing.T) {
	p := NewPolicy(5, time.Millisecond)
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return timeoutErr{}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestPolicyStopsAfterMaxAttempts(t *testing.T) {
	p := NewPolicy(5, time.Millisecond)
	var retried []int
	p.OnRetry = func(_ context.Context, attempt int, _ error) {
		retried = append(retried, attempt)
	}
	calls := 0
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return fmt.Errorf("fetch: %w", timeoutErr{})
	})
	if calls != 5 {
		t.Fatalf("expected 5 attempts, got %d", calls)
	}
	var te timeoutErr
	if !errors.As(err, &te) {
		t.Fatalf("expected last transient error, got %v", err)
	}
	if len(retried) != 4 {
		t.Fatalf("expected 4 retry callbacks, got %v", retried)
	}
}

func TestPolicyDoesNotRetryLogicErrors(t *testing.T) {
	p := NewPolicy(5, time.Millisecond)
	calls := 0
	boom := errors.New("nil map write")
	err := p.Do(context.Background(), func(context.Context) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected original error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestPolicyHonoursContextCancel(t *testing.T) {
	p := NewPolicy(5, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := p.Do(ctx, func(context.Context) error {
		calls++
		cancel()
		return timeoutErr{}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one call, got %d", calls)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"net timeout", timeoutErr{}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"dependency", pkgerrors.New(pkgerrors.CodeDependency, "503"), true},
		{"dependency not retryable", pkgerrors.New(pkgerrors.CodeDependency, "400").WithRetryable(false), false},
		{"validation", pkgerrors.New(pkgerrors.CodeValidation, "bad date"), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Fatalf("%s: expected %v got %v", tc.name, tc.want, got)
		}
	}
}
