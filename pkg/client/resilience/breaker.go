package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/abgdnv/gocommerce/cart_service/pkg/config"
	"github.com/sony/gobreaker/v2"
)

// ErrServerFailure is the error reported to the breaker for responses that
// indicate the remote side is unhealthy.
var ErrServerFailure = errors.New("remote server failure")

// BreakerTransport is an http.RoundTripper that wraps calls in a circuit breaker.
// Transport errors, 5xx and 429 responses count as failures. Other statuses
// (like 404 or 401) are passed through and don't trip the breaker.
type BreakerTransport struct {
	next    http.RoundTripper
	breaker *gobreaker.CircuitBreaker[*http.Response]
}

// NewBreakerTransport creates a BreakerTransport around next.
// If next is nil, http.DefaultTransport is used.
func NewBreakerTransport(name string, cfg config.CircuitBreakerConfig, next http.RoundTripper) *BreakerTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > cfg.ConsecutiveFailures ||
				(counts.Requests > cfg.ConsecutiveFailures &&
					float64(counts.TotalFailures)/float64(counts.Requests)*100 > float64(cfg.ErrorRatePercent))
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// The caller giving up is not a remote failure.
			return errors.Is(err, context.Canceled)
		},
	}
	return &BreakerTransport{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*http.Response](st),
	}
}

func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var failed *http.Response
	resp, err := t.breaker.Execute(func() (*http.Response, error) {
		resp, err := t.next.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			failed = resp
			return nil, fmt.Errorf("%w: status %d", ErrServerFailure, resp.StatusCode)
		}
		return resp, nil
	})
	if failed != nil {
		// The failure was recorded, hand the original response back to the caller.
		return failed, nil
	}
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// State reports the current breaker state.
func (t *BreakerTransport) State() gobreaker.State {
	return t.breaker.State()
}

// TimeoutTransport applies a per-request timeout to the request context.
type TimeoutTransport struct {
	next    http.RoundTripper
	timeout time.Duration
}

func NewTimeoutTransport(timeout time.Duration, next http.RoundTripper) *TimeoutTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &TimeoutTransport{next: next, timeout: timeout}
}

func (t *TimeoutTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.timeout <= 0 {
		return t.next.RoundTrip(req)
	}
	ctx, cancel := context.WithTimeout(req.Context(), t.timeout)
	resp, err := t.next.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}
