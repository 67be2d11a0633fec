package httpclient

import "net/http"

// DoerTransport lets an *http.Client, such as the one an SDK insists on, send through a Doer.
type DoerTransport struct {
	Doer Doer
}

func (transport DoerTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	return transport.Doer.Do(request)
}

// NewStdClient wraps a Doer into an *http.Client.
func NewStdClient(doer Doer) *http.Client {
	return &http.Client{Transport: DoerTransport{Doer: doer}}
}
