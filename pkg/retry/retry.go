package retry

import (
	"context"
	"errors"
	"io"
	"net"
	"syscall"
	"time"

	goretry "github.com/sethvargo/go-retry"

	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
)

const (
	defaultMaxAttempts = 5
	defaultDelay       = 25 * time.Second
)

// Policy is a bounded retry policy applied around external calls.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
	// Retryable decides whether an error is transient. Defaults to IsTransient.
	Retryable func(error) bool
	// OnRetry is called before sleeping between attempts.
	OnRetry func(ctx context.Context, attempt int, err error)
}

// NewPolicy returns a constant-delay policy.
func NewPolicy(maxAttempts int, delay time.Duration) Policy {
	return Policy{MaxAttempts: maxAttempts, Delay: delay}
}

// Do runs fn until it succeeds, returns a non-transient error, or the
// attempt budget is spent. The last error is returned unwrapped.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	delay := p.Delay
	if delay < 0 {
		delay = defaultDelay
	}
	if delay == 0 {
		delay = time.Nanosecond
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	backoff := goretry.WithMaxRetries(uint64(attempts-1), goretry.NewConstant(delay))

	attempt := 0
	return goretry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		if attempt < attempts && p.OnRetry != nil {
			p.OnRetry(ctx, attempt, err)
		}
		return goretry.RetryableError(err)
	})
}

// IsTransient reports network-level failures and errors explicitly marked retryable.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if typed := pkgerrors.As(err); typed != nil {
		return typed.Retryable()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
