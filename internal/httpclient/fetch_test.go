package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestFetchBytes_ReturnsBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("payload"))
	}))
	t.Cleanup(server.Close)

	client := NewRLClient(rate.NewLimiter(rate.Inf, 0))
	client.RetryConfig = NoRetries()

	body, err := FetchBytes(context.Background(), client, server.URL)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), body)
}

func TestFetchBytes_NonSuccessIsStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	client := NewRLClient(rate.NewLimiter(rate.Inf, 0))
	client.RetryConfig = NoRetries()

	body, err := FetchBytes(context.Background(), client, server.URL)
	assert.Nil(t, body)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Contains(t, statusErr.Error(), "404")
}

func TestFetchBytes_TransportError(t *testing.T) {
	client := NewRLClient(rate.NewLimiter(rate.Inf, 0))
	client.RetryConfig = NoRetries()
	client.client = &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("connection refused")
		}),
	}

	_, err := FetchBytes(context.Background(), client, "https://example.com/file")
	assert.ErrorContains(t, err, "connection refused")
}

func TestNewInsecureRLClient_AcceptsSelfSignedCertificates(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("tls ok"))
	}))
	t.Cleanup(server.Close)

	insecure := NewInsecureRLClient(nil)
	insecure.RetryConfig = NoRetries()
	body, err := FetchBytes(context.Background(), insecure, server.URL)
	require.NoError(t, err)
	assert.Equal(t, "tls ok", string(body))

	strict := NewRLClient(nil)
	strict.RetryConfig = NoRetries()
	_, err = FetchBytes(context.Background(), strict, server.URL)
	assert.Error(t, err)
}

func TestRLHTTPClient_SetsUserAgent(t *testing.T) {
	var seen string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("User-Agent")
	}))
	t.Cleanup(server.Close)

	client := NewRLClient(nil)
	client.RetryConfig = NoRetries()
	_, err := FetchBytes(context.Background(), client, server.URL)
	require.NoError(t, err)
	assert.Equal(t, "github_com/meza/manifest-fetcher/REPL_VERSION", seen)
}

func TestNewStdClient_RoutesThroughDoer(t *testing.T) {
	called := false
	doer := doerFunc(func(req *http.Request) (*http.Response, error) {
		called = true
		return &http.Response{StatusCode: http.StatusTeapot, Body: http.NoBody, Request: req}, nil
	})

	response, err := NewStdClient(doer).Get("https://example.com")
	require.NoError(t, err)
	closeResponseBody(t, response)
	assert.True(t, called)
	assert.Equal(t, http.StatusTeapot, response.StatusCode)
}

func TestSleep(t *testing.T) {
	assert.NoError(t, Sleep(context.Background(), 0))
	assert.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
	assert.ErrorIs(t, Sleep(ctx, 0), context.Canceled)
}

type doerFunc func(*http.Request) (*http.Response, error)

func (doer doerFunc) Do(req *http.Request) (*http.Response, error) {
	return doer(req)
}
