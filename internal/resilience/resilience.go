// Package resilience retries transient extraction-provider failures with
// exponential backoff. Retries sit below the extractor's escalation state
// machine: an attempt that exhausts its retries still counts as a single
// failed attempt upstream.
package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"syscall"
	"time"
)

// Policy controls how a provider call is retried. The backoff doubles after
// each retry, capped at MaxDelay, with up to 25% random jitter either way.
type Policy struct {
	// Attempts is the total number of tries including the first. Values
	// below 1 behave as 1.
	Attempts int

	// BaseDelay is the wait before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the backoff.
	MaxDelay time.Duration

	// Retryable decides whether an error is worth another try. Nil means
	// Transient.
	Retryable func(err error) bool

	// OnRetry is invoked before each retry sleep with the attempt number
	// just failed, starting at 1.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy suits a low-volume provider client: three tries, half a
// second before the first retry.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: 500 * time.Millisecond,
		MaxDelay:  30 * time.Second,
	}
}

// Call runs fn under the policy and returns the first successful value.
// Cancelling ctx stops retrying immediately; permanent errors return after
// the first attempt.
func Call[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	retryable := p.Retryable
	if retryable == nil {
		retryable = Transient
	}
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !retryable(err) || attempt == attempts {
			break
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		timer := time.NewTimer(backoff(p, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

// backoff computes the sleep before the retry following the given attempt.
func backoff(p Policy, attempt int) time.Duration {
	d := p.BaseDelay
	if d <= 0 {
		d = 500 * time.Millisecond
	}
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	jitter := 1 + (rand.Float64()*0.5 - 0.25)
	return time.Duration(float64(d) * jitter)
}

// Transient reports whether err looks like a transport fault that a retry
// can fix: a network timeout or a dropped connection. Everything else,
// including malformed requests, is permanent.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED)
}

// TransientStatus reports whether an HTTP status from the provider is safe
// to retry: rate limiting, timeouts and upstream failures.
func TransientStatus(code int) bool {
	switch code {
	case 408, 429, 500, 502, 503, 504:
		return true
	}
	return false
}
