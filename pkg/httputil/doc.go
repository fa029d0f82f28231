// Package httputil provides the HTTP plumbing shared by the data sources.
//
// # Retry
//
// [Retry] re-runs an operation with exponential backoff while it fails with a
// [RetryableError]. Sources wrap network errors and 5xx responses with
// [Retryable]; 4xx responses fail at once.
//
//	err := httputil.Retry(ctx, 3, time.Second, func() error {
//	    return fetch(ctx)
//	})
//
// # Transport
//
// [NewClient] returns an http.Client whose [Transport] reports each request
// to the registered observability hooks and sets an X-Request-Id header.
package httputil
