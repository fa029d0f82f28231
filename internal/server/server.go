// Package server exposes a chart session over HTTP.
//
// Routes:
//
//	GET /api/session                 session state
//	GET /api/vintages                published prediction batches
//	GET /api/chart?select=...        chart JSON for the selection
//	GET /api/timeline?countries=...  scrubber marks
//	GET /chart.png, /chart.svg       rendered chart
//	GET /metrics                     Prometheus metrics
//	GET /healthz                     liveness
//
// Chart routes accept the query parameters select (comma-separated keys),
// axis, scaling, axes, threshold, width, height and vintage (a publish date
// in YYYY-MM-DD form). Parameters update the session before the chart is
// built, so a browser reloading /chart.svg sees the last selection.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/covidchart/pkg/errors"
	"github.com/matzehuels/covidchart/pkg/session"
)

// DefaultSettleTimeout bounds how long a request waits for fetches before
// answering with what is resolved.
const DefaultSettleTimeout = 20 * time.Second

// Options configures a [Server].
type Options struct {
	Session *session.Session
	// Gatherer backs /metrics. Nil uses the default registry.
	Gatherer      prometheus.Gatherer
	Logger        *log.Logger
	SettleTimeout time.Duration
}

// Server serves one session.
type Server struct {
	sess    *session.Session
	log     *log.Logger
	settle  time.Duration
	router  chi.Router
	metrics http.Handler
}

// New returns a server. It panics if opts.Session is nil.
func New(opts Options) *Server {
	if opts.Session == nil {
		panic("server: nil session")
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.SettleTimeout == 0 {
		opts.SettleTimeout = DefaultSettleTimeout
	}
	s := &Server{
		sess:    opts.Session,
		log:     opts.Logger,
		settle:  opts.SettleTimeout,
		metrics: promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Method(http.MethodGet, "/metrics", s.metrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", s.handleSession)
		r.Get("/vintages", s.handleVintages)
		r.Get("/chart", s.handleChart)
		r.Get("/timeline", s.handleTimeline)
	})
	r.Get("/chart.{format:png|svg}", s.handleImage)
	return r
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", "addr", addr, "session", s.sess.ID())

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Millisecond),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// settleFetches waits for in-flight fetches up to the settle timeout. Running
// out of time is not an error: the chart lists what is still missing.
func (s *Server) settleFetches(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.settle)
	defer cancel()
	err := s.sess.Settle(ctx)
	if err == context.DeadlineExceeded {
		s.log.Warn("answering before all fetches settled")
		return nil
	}
	return err
}

type errorBody struct {
	Error string      `json:"error"`
	Code  errors.Code `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, errorBody{Error: errors.UserMessage(err), Code: errors.GetCode(err)})
}

func statusOf(err error) int {
	if err == session.ErrClosed {
		return http.StatusServiceUnavailable
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidCountry, errors.ErrCodeInvalidSelection,
		errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidSeries:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeSeriesNotFound:
		return http.StatusNotFound
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case errors.ErrCodeNetwork, errors.ErrCodeFetchFailure:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
