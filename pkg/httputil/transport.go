package httputil

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/covidchart/pkg/observability"
)

// DefaultTimeout bounds a single request to a data source.
const DefaultTimeout = 10 * time.Second

// RequestIDHeader carries the id assigned to each outgoing request.
const RequestIDHeader = "X-Request-Id"

// Transport reports every request to [observability.HTTP] and tags it with
// a fresh request id unless the caller set one.
type Transport struct {
	// Base performs the request; nil means http.DefaultTransport.
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if req.Header.Get(RequestIDHeader) == "" {
		req = req.Clone(req.Context())
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}

	ctx := req.Context()
	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)

	start := time.Now()
	resp, err := base.RoundTrip(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return nil, err
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))
	return resp, nil
}

// NewClient returns an instrumented client with [DefaultTimeout].
func NewClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout, Transport: &Transport{}}
}
