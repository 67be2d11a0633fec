// Package testutil holds shared test helpers.
package testutil

import (
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/meza/manifest-fetcher/internal/httpclient"
)

// OriginalHostHeader carries the host a request was addressed to before it was rewritten.
const OriginalHostHeader = "X-Original-Host"

// HostRewriteDoer points every request at one test server, so code that builds URLs for real
// mirrors or APIs can run against httptest. The host each request was meant for is kept in
// OriginalHostHeader and in Hosts.
type HostRewriteDoer struct {
	base *url.URL
	next httpclient.Doer

	mu    sync.Mutex
	hosts []string
}

func NewHostRewriteDoer(serverURL string, next httpclient.Doer) (*HostRewriteDoer, error) {
	if next == nil {
		return nil, fmt.Errorf("next doer is nil")
	}

	base, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("server url must include scheme and host")
	}

	return &HostRewriteDoer{base: base, next: next}, nil
}

func MustNewHostRewriteDoer(serverURL string, next httpclient.Doer) *HostRewriteDoer {
	doer, err := NewHostRewriteDoer(serverURL, next)
	if err != nil {
		panic(err)
	}
	return doer
}

func (doer *HostRewriteDoer) Do(req *http.Request) (*http.Response, error) {
	doer.mu.Lock()
	doer.hosts = append(doer.hosts, req.URL.Host)
	doer.mu.Unlock()

	cloned := req.Clone(req.Context())
	cloned.Header.Set(OriginalHostHeader, req.URL.Host)
	cloned.URL.Scheme = doer.base.Scheme
	cloned.URL.Host = doer.base.Host
	cloned.Host = doer.base.Host
	return doer.next.Do(cloned)
}

// Hosts lists the original hosts in request order.
func (doer *HostRewriteDoer) Hosts() []string {
	doer.mu.Lock()
	defer doer.mu.Unlock()
	return append([]string(nil), doer.hosts...)
}
