package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/meza/manifest-fetcher/internal/perf"
	"go.opentelemetry.io/otel/attribute"
)

// StatusError reports a response outside the 2xx range.
type StatusError struct {
	URL        string
	StatusCode int
}

func (err *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", err.StatusCode, err.URL)
}

// FetchBytes issues a GET and buffers the full body. Any non-2xx status is a *StatusError.
func FetchBytes(ctx context.Context, client Doer, url string) ([]byte, error) {
	ctx, span := perf.StartSpan(ctx, "net.http.fetch_bytes", perf.WithAttributes(attribute.String("url", url)))
	defer span.End()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	response, err := client.Do(request)
	if err != nil {
		span.SetAttributes(attribute.Bool("success", false))
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		span.SetAttributes(attribute.Bool("success", false), attribute.Int("status", response.StatusCode))
		_ = drainBody(response.Body)
		return nil, &StatusError{URL: url, StatusCode: response.StatusCode}
	}

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		span.SetAttributes(attribute.Bool("success", false))
		return nil, WrapTimeoutError(request, fmt.Errorf("failed to read body: %w", err))
	}

	span.SetAttributes(attribute.Bool("success", true), attribute.Int("bytes", len(payload)))
	return payload, nil
}
