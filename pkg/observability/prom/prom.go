// Package prom exports observability hooks as Prometheus metrics.
//
//	reg := prometheus.NewRegistry()
//	if err := prom.Register(reg); err != nil { ... }
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package prom

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/matzehuels/covidchart/pkg/observability"
)

const namespace = "covidchart"

// Hooks implements every observability hook interface on Prometheus
// collectors.
type Hooks struct {
	builds       *prometheus.HistogramVec
	builtSeries  prometheus.Counter
	skipped      prometheus.Counter
	missing      prometheus.Counter
	renders      *prometheus.HistogramVec
	fetches      *prometheus.HistogramVec
	inFlight     *prometheus.GaugeVec
	cacheOps     *prometheus.CounterVec
	cacheBytes   *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// New creates the collectors without registering them.
func New() *Hooks {
	return &Hooks{
		builds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Time to resolve, transform and assemble one chart.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"result"}),
		builtSeries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_plotted_total",
			Help:      "Series plotted across all builds.",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "series_skipped_total",
			Help:      "Series dropped by the transform across all builds.",
		}),
		missing: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "selection_missing_total",
			Help:      "Selected keys not yet in the repository at resolve time.",
		}),
		renders: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time to render chart artifacts.",
		}, []string{"result"}),
		fetches: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Data source fetch latency.",
		}, []string{"kind", "result"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fetches_in_flight",
			Help:      "Data source fetches currently running.",
		}, []string{"kind"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_operations_total",
			Help:      "Cache lookups and writes.",
		}, []string{"key_type", "op"}),
		cacheBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_written_bytes_total",
			Help:      "Bytes written to the cache.",
		}, []string{"key_type"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_client_requests_total",
			Help:      "Outgoing HTTP requests by status code.",
		}, []string{"host", "code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_client_duration_seconds",
			Help:      "Outgoing HTTP request latency.",
		}, []string{"host"}),
	}
}

// Collectors returns every collector of h.
func (h *Hooks) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		h.builds, h.builtSeries, h.skipped, h.missing, h.renders,
		h.fetches, h.inFlight, h.cacheOps, h.cacheBytes,
		h.httpRequests, h.httpLatency,
	}
}

// Register creates hooks, registers their collectors with reg and installs
// them as the global observability hooks.
func Register(reg prometheus.Registerer) (*Hooks, error) {
	h := New()
	for _, c := range h.Collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	observability.SetPipelineHooks(h)
	observability.SetFetchHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
	return h, nil
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (h *Hooks) OnResolve(_ context.Context, _, missing int) {
	h.missing.Add(float64(missing))
}

func (h *Hooks) OnBuildComplete(_ context.Context, series, skipped int, d time.Duration, err error) {
	h.builds.WithLabelValues(result(err)).Observe(d.Seconds())
	h.builtSeries.Add(float64(series))
	h.skipped.Add(float64(skipped))
}

func (h *Hooks) OnRenderStart(context.Context, []string) {}

func (h *Hooks) OnRenderComplete(_ context.Context, _ []string, d time.Duration, err error) {
	h.renders.WithLabelValues(result(err)).Observe(d.Seconds())
}

func (h *Hooks) OnFetchStart(_ context.Context, kind string) {
	h.inFlight.WithLabelValues(kind).Inc()
}

func (h *Hooks) OnFetchComplete(_ context.Context, kind string, d time.Duration, err error) {
	h.inFlight.WithLabelValues(kind).Dec()
	h.fetches.WithLabelValues(kind, result(err)).Observe(d.Seconds())
}

func (h *Hooks) OnCacheHit(_ context.Context, keyType string) {
	h.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (h *Hooks) OnCacheMiss(_ context.Context, keyType string) {
	h.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (h *Hooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.cacheOps.WithLabelValues(keyType, "set").Inc()
	h.cacheBytes.WithLabelValues(keyType).Add(float64(size))
}

func (h *Hooks) OnRequest(context.Context, string, string, string) {}

func (h *Hooks) OnResponse(_ context.Context, _, host, _ string, status int, d time.Duration) {
	h.httpRequests.WithLabelValues(host, strconv.Itoa(status)).Inc()
	h.httpLatency.WithLabelValues(host).Observe(d.Seconds())
}

func (h *Hooks) OnError(_ context.Context, _, host, _ string, _ error) {
	h.httpRequests.WithLabelValues(host, "error").Inc()
}

var (
	_ observability.PipelineHooks = (*Hooks)(nil)
	_ observability.FetchHooks    = (*Hooks)(nil)
	_ observability.CacheHooks    = (*Hooks)(nil)
	_ observability.HTTPHooks     = (*Hooks)(nil)
)
