// Package rest reads series from the prediction service over HTTP.
//
// Endpoints, relative to [Options.BaseURL]:
//
//	GET /covid19/rest/predictions/list
//	GET /covid19/rest/data/{country}
//	GET /covid19/rest/predictions/by_country/{country}
//	GET /covid19/rest/predictions/by_prediction/{id}/{country}
//
// Response bodies are cached through a [cache.Cache]. Fetching the predictions
// of a country also fills the cache entries of each single prediction, so a
// later [Client.Prediction] for the same country does not hit the network.
//
// Transient failures (connection errors, 5xx) are retried with backoff. A 404
// is reported as SERIES_NOT_FOUND.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/covidchart/pkg/buildinfo"
	"github.com/matzehuels/covidchart/pkg/cache"
	"github.com/matzehuels/covidchart/pkg/errors"
	"github.com/matzehuels/covidchart/pkg/httputil"
	"github.com/matzehuels/covidchart/pkg/series"
	"github.com/matzehuels/covidchart/pkg/source"
)

// DefaultBaseURL is the address of a locally running prediction service.
const DefaultBaseURL = "http://localhost:5000"

// DefaultTTL is how long response bodies stay cached.
const DefaultTTL = cache.TTLSource

// DefaultMaxBodyBytes is the default response size cap.
const DefaultMaxBodyBytes = 32 << 20

const (
	pathList         = "/covid19/rest/predictions/list"
	pathData         = "/covid19/rest/data/%s"
	pathByCountry    = "/covid19/rest/predictions/by_country/%s"
	pathByPrediction = "/covid19/rest/predictions/by_prediction/%s/%s"

	namespace = "rest"
)

// Options configures a [Client].
type Options struct {
	BaseURL    string
	Cache      cache.Cache
	Keyer      cache.Keyer
	TTL        time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger

	// Headers are sent with every request.
	Headers map[string]string

	// Refresh bypasses cached bodies on read. Fetched bodies are still stored.
	Refresh bool

	// MaxBodyBytes caps a response body. Larger bodies fail the fetch.
	MaxBodyBytes int64

	// Attempts and RetryDelay tune [httputil.Retry].
	Attempts   int
	RetryDelay time.Duration
}

// SetDefaults fills unset fields.
func (o *Options) SetDefaults() {
	if o.BaseURL == "" {
		o.BaseURL = DefaultBaseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.Cache == nil {
		o.Cache = cache.NewNullCache()
	}
	if o.Keyer == nil {
		o.Keyer = cache.NewDefaultKeyer()
	}
	if o.TTL == 0 {
		o.TTL = DefaultTTL
	}
	if o.HTTPClient == nil {
		o.HTTPClient = httputil.NewClient()
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	if o.MaxBodyBytes == 0 {
		o.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if o.Attempts == 0 {
		o.Attempts = 3
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = time.Second
	}
}

// Validate checks the options after [Options.SetDefaults].
func (o *Options) Validate() error {
	if err := errors.ValidateURL(o.BaseURL); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "source base url")
	}
	if o.TTL < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "source ttl must not be negative")
	}
	if o.MaxBodyBytes < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "source body cap must not be negative")
	}
	return nil
}

// Client is a [source.Source] backed by the prediction service.
type Client struct {
	opts Options
}

var _ source.Source = (*Client)(nil)

// New returns a client. Unset options get their defaults.
func New(opts Options) (*Client, error) {
	opts.SetDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Client{opts: opts}, nil
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string { return c.opts.BaseURL }

// ListVintages fetches the prediction list and groups it into vintages.
func (c *Client) ListVintages(ctx context.Context) ([]series.Vintage, error) {
	return getAs(ctx, c, pathList, source.GroupVintages)
}

// Observed fetches the observed series of country.
func (c *Client) Observed(ctx context.Context, country string) (*series.Observed, error) {
	if err := errors.ValidateCountryCode(country); err != nil {
		return nil, err
	}
	return getAs(ctx, c, fmt.Sprintf(pathData, url.PathEscape(country)), func(w source.WireSeries) (*series.Observed, error) {
		rec, err := w.Record()
		if err != nil {
			return nil, err
		}
		obs, ok := rec.(*series.Observed)
		if !ok {
			return nil, errors.New(errors.ErrCodeFetchFailure, "%s: expected observed series, got %q", country, w.Type)
		}
		return obs, nil
	})
}

type wirePrediction struct {
	wire source.WireSeries
	pred *series.Prediction
}

// PredictionsForCountry fetches every prediction of country.
func (c *Client) PredictionsForCountry(ctx context.Context, country string) ([]*series.Prediction, error) {
	if err := errors.ValidateCountryCode(country); err != nil {
		return nil, err
	}
	wps, err := getAs(ctx, c, fmt.Sprintf(pathByCountry, url.PathEscape(country)), func(ws []source.WireSeries) ([]wirePrediction, error) {
		out := make([]wirePrediction, 0, len(ws))
		for _, w := range ws {
			p, err := predictionOf(w)
			if err != nil {
				return nil, err
			}
			out = append(out, wirePrediction{wire: w, pred: p})
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]*series.Prediction, 0, len(wps))
	for _, wp := range wps {
		out = append(out, wp.pred)
		c.prefill(ctx, fmt.Sprintf(pathByPrediction, url.PathEscape(wp.pred.PredictionID), url.PathEscape(country)), wp.wire)
	}
	return out, nil
}

// Prediction fetches one prediction.
func (c *Client) Prediction(ctx context.Context, predictionID, country string) (*series.Prediction, error) {
	if err := series.PredictionKey(country, predictionID).Validate(); err != nil {
		return nil, err
	}
	path := fmt.Sprintf(pathByPrediction, url.PathEscape(predictionID), url.PathEscape(country))
	return getAs(ctx, c, path, predictionOf)
}

func predictionOf(w source.WireSeries) (*series.Prediction, error) {
	rec, err := w.Record()
	if err != nil {
		return nil, err
	}
	p, ok := rec.(*series.Prediction)
	if !ok {
		return nil, errors.New(errors.ErrCodeFetchFailure, "%s: expected prediction, got %q", w.ShortName, w.Type)
	}
	return p, nil
}

// getAs decodes the JSON body at path into W and converts it, going through
// the cache. A body is stored only once it decodes and converts; a cached
// body that no longer does is evicted and fetched again.
func getAs[W, R any](ctx context.Context, c *Client, path string, convert func(W) (R, error)) (R, error) {
	decode := func(body []byte) (R, error) {
		var w W
		if err := json.Unmarshal(body, &w); err != nil {
			var zero R
			return zero, errors.Wrap(errors.ErrCodeFetchFailure, err, "decode %s", path)
		}
		return convert(w)
	}

	key := c.opts.Keyer.HTTPKey(namespace, c.opts.BaseURL+path)
	if !c.opts.Refresh {
		data, ok, err := c.opts.Cache.Get(ctx, key)
		switch {
		case err != nil:
			c.opts.Logger.Warn("cache read failed", "path", path, "err", err)
		case ok:
			r, err := decode(data)
			if err == nil {
				c.opts.Logger.Debug("cache hit", "path", path)
				return r, nil
			}
			c.opts.Logger.Warn("evicting unreadable cache entry", "path", path, "err", err)
			if err := c.opts.Cache.Delete(ctx, key); err != nil {
				c.opts.Logger.Warn("cache delete failed", "path", path, "err", err)
			}
		}
	}

	body, err := c.fetch(ctx, path)
	if err != nil {
		var zero R
		return zero, err
	}
	r, err := decode(body)
	if err != nil {
		return r, err
	}
	if err := c.opts.Cache.Set(ctx, key, body, c.opts.TTL); err != nil {
		c.opts.Logger.Warn("cache write failed", "path", path, "err", err)
	}
	return r, nil
}

// fetch GETs path with retries.
func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	var body []byte
	start := time.Now()
	err := httputil.Retry(ctx, c.opts.Attempts, c.opts.RetryDelay, func() error {
		var err error
		body, err = c.doRequest(ctx, path)
		if err != nil && httputil.IsRetryable(err) {
			c.opts.Logger.Debug("retrying", "path", path, "err", err)
		}
		return err
	})
	if err != nil {
		return nil, classify(path, err)
	}
	c.opts.Logger.Debug("fetched", "path", path, "bytes", len(body), "took", time.Since(start))
	return body, nil
}

// prefill stores w under the cache key of path unless it is already there.
func (c *Client) prefill(ctx context.Context, path string, w source.WireSeries) {
	key := c.opts.Keyer.HTTPKey(namespace, c.opts.BaseURL+path)
	if _, ok, _ := c.opts.Cache.Get(ctx, key); ok && !c.opts.Refresh {
		return
	}
	data, err := json.Marshal(w)
	if err != nil {
		c.opts.Logger.Warn("prefill encode failed", "path", path, "err", err)
		return
	}
	if err := c.opts.Cache.Set(ctx, key, data, c.opts.TTL); err != nil {
		c.opts.Logger.Warn("cache write failed", "path", path, "err", err)
	}
}

func (c *Client) doRequest(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	for k, v := range c.opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "GET %s", path))
	}
	defer resp.Body.Close()

	if err := checkStatus(path, resp.StatusCode); err != nil {
		return nil, err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, httputil.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "read %s", path))
	}
	if int64(len(body)) > c.opts.MaxBodyBytes {
		return nil, errors.New(errors.ErrCodeFetchFailure, "GET %s: body exceeds %d bytes", path, c.opts.MaxBodyBytes)
	}
	return body, nil
}

func checkStatus(path string, code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return source.NotFound("%s: not found", path)
	case code >= 500:
		return httputil.Retryable(errors.New(errors.ErrCodeNetwork, "GET %s: status %d", path, code))
	default:
		return errors.New(errors.ErrCodeFetchFailure, "GET %s: status %d", path, code)
	}
}

// classify maps a failed fetch onto the codes callers act on.
func classify(path string, err error) error {
	switch {
	case source.IsNotFound(err), errors.Is(err, errors.ErrCodeFetchFailure):
		return err
	case err == context.DeadlineExceeded:
		return errors.Wrap(errors.ErrCodeTimeout, err, "GET %s", path)
	default:
		return errors.Wrap(errors.ErrCodeFetchFailure, err, "GET %s", path)
	}
}
