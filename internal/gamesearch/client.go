// Package gamesearch talks to the game search helper that maps names to app ids.
package gamesearch

import (
	"net/http"
	"strings"

	"github.com/meza/manifest-fetcher/internal/environment"
	"github.com/meza/manifest-fetcher/internal/httpclient"
	"github.com/meza/manifest-fetcher/internal/perf"
	"go.opentelemetry.io/otel/attribute"
)

type Client struct {
	client  httpclient.Doer
	baseURL string
}

// NewClient falls back to environment.SearchURL when baseURL is empty.
func NewClient(doer httpclient.Doer, baseURL string) *Client {
	if baseURL == "" {
		baseURL = environment.SearchURL()
	}
	return &Client{client: doer, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (searchClient *Client) Do(request *http.Request) (*http.Response, error) {
	ctx, span := perf.StartSpan(request.Context(), "api.gamesearch.http.request", perf.WithAttributes(attribute.String("url", request.URL.String())))
	defer span.End()

	request.Header.Set("Accept", "application/json")

	return searchClient.client.Do(request.WithContext(ctx))
}

func (searchClient *Client) BaseURL() string {
	return searchClient.baseURL
}
