package httpclient

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/meza/manifest-fetcher/internal/i18n"
)

// Request budgets. Metadata covers branch lookups, searches and key files; download covers
// manifests, which can be large.
const (
	DefaultMetadataTimeout = 15 * time.Second
	DefaultDownloadTimeout = 5 * time.Minute
)

// TimeoutError reports a request that ran out of its budget. URL and Budget are empty when the
// timeout happened outside a known request.
type TimeoutError struct {
	URL    string
	Budget time.Duration
	Err    error
}

func (timeout *TimeoutError) Error() string {
	if timeout.URL == "" {
		return i18n.T("error.network_timeout")
	}
	return i18n.Td("error.network_timeout_url", i18n.TData{
		"url":    timeout.URL,
		"budget": timeout.Budget.String(),
	})
}

func (timeout *TimeoutError) Unwrap() error {
	return timeout.Err
}

func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// WrapTimeoutError turns a deadline or network timeout into a *TimeoutError naming the request
// URL and the budget recorded on its context. request may be nil. Other errors pass through.
func WrapTimeoutError(request *http.Request, err error) error {
	if !IsTimeoutError(err) {
		return err
	}
	var timeoutErr *TimeoutError
	if errors.As(err, &timeoutErr) {
		return timeoutErr
	}
	wrapped := &TimeoutError{Err: err}
	if request != nil {
		wrapped.URL = request.URL.Redacted()
		wrapped.Budget = RequestBudget(request.Context(), 0)
	}
	return wrapped
}

type budgetKey struct{}

// WithRequestBudget records the budget each request made with ctx should get, without starting a
// clock. Callers that issue several requests (one per mirror) apply it per request.
func WithRequestBudget(ctx context.Context, budget time.Duration) context.Context {
	return context.WithValue(ctx, budgetKey{}, budget)
}

// RequestBudget returns the budget recorded on ctx, or fallback.
func RequestBudget(ctx context.Context, fallback time.Duration) time.Duration {
	if budget, ok := ctx.Value(budgetKey{}).(time.Duration); ok && budget > 0 {
		return budget
	}
	return fallback
}

// WithTimeout starts a budget now: the deadline bounds ctx and the budget is recorded for
// TimeoutError.
func WithTimeout(ctx context.Context, budget time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(WithRequestBudget(ctx, budget), budget)
}

func WithMetadataTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return WithTimeout(ctx, DefaultMetadataTimeout)
}

func WithDownloadTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return WithTimeout(ctx, DefaultDownloadTimeout)
}
