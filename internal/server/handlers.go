package server

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/covidchart/pkg/chart"
	"github.com/matzehuels/covidchart/pkg/errors"
	"github.com/matzehuels/covidchart/pkg/pipeline"
	"github.com/matzehuels/covidchart/pkg/series"
	"github.com/matzehuels/covidchart/pkg/sink"
	"github.com/matzehuels/covidchart/pkg/timeline"
	"github.com/matzehuels/covidchart/pkg/transform"
)

// chartResponse is the body of /api/chart.
type chartResponse struct {
	Version uint64            `json:"version"`
	Hash    string            `json:"hash"`
	Chart   *chart.Chart      `json:"chart"`
	Missing []string          `json:"missing,omitempty"`
	Failed  map[string]string `json:"failed,omitempty"`
	Vintage int64             `json:"vintage,omitempty"`
}

// timelineResponse is the body of /api/timeline.
type timelineResponse struct {
	timeline.Marks
	Value int64 `json:"value"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	v, err := s.sess.View(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleVintages(w http.ResponseWriter, r *http.Request) {
	if err := s.loadVintages(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.sess.View(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	vs := v.Vintages
	if vs == nil {
		vs = []series.Vintage{}
	}
	writeJSON(w, http.StatusOK, vs)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if err := s.apply(r.Context(), r.URL.Query()); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.sess.Chart(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.sess.View(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if notModified(w, r, res.ChartHash) {
		return
	}
	body := chartResponse{
		Version: v.Version,
		Hash:    res.ChartHash,
		Chart:   res.Chart,
		Failed:  v.Failed,
		Vintage: v.Vintage,
	}
	for _, k := range res.Missing {
		body.Missing = append(body.Missing, k.String())
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	if err := s.apply(r.Context(), r.URL.Query()); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.sess.Render(r.Context(), format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if notModified(w, r, res.ChartHash+"-"+format) {
		return
	}
	w.Header().Set("Content-Type", sink.ContentType(format))
	if len(res.Missing) > 0 {
		w.Header().Set("X-Missing-Series", strconv.Itoa(len(res.Missing)))
	}
	_, _ = w.Write(res.Artifacts[format])
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if err := s.loadVintages(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.sess.View(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	countries := v.Selection.Countries()
	if c := q.Get("countries"); c != "" {
		countries = splitList(c)
		for _, code := range countries {
			if err := errors.ValidateCountryCode(code); err != nil {
				s.writeError(w, r, err)
				return
			}
		}
	}
	var width float64
	if raw := q.Get("width"); raw != "" {
		width, err = strconv.ParseFloat(raw, 64)
		if err != nil || width < 0 {
			s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "invalid width %q", raw))
			return
		}
	}

	marks := timeline.Options{Width: width}.Layout(v.Vintages, countries)
	writeJSON(w, http.StatusOK, timelineResponse{Marks: marks, Value: v.Vintage})
}

// loadVintages fetches the vintage list once and waits for it.
func (s *Server) loadVintages(ctx context.Context) error {
	v, err := s.sess.View(ctx)
	if err != nil {
		return err
	}
	if len(v.Vintages) > 0 {
		return nil
	}
	if err := s.sess.LoadVintages(ctx); err != nil {
		return err
	}
	return s.settleFetches(ctx)
}

// apply updates the session from chart query parameters and waits for the
// resulting fetches.
func (s *Server) apply(ctx context.Context, q url.Values) error {
	if raw, ok := q["select"]; ok {
		sel, err := series.ParseSelection(splitList(strings.Join(raw, ",")))
		if err != nil {
			return err
		}
		if err := s.sess.SetSelection(ctx, sel); err != nil {
			return err
		}
	}

	update, err := optionsFromQuery(q)
	if err != nil {
		return err
	}
	if update != nil {
		if err := s.sess.SetOptions(ctx, update); err != nil {
			return err
		}
	}

	if raw := q.Get("vintage"); raw != "" {
		d, err := series.ParseDate(raw)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid vintage %q", raw)
		}
		if err := s.loadVintages(ctx); err != nil {
			return err
		}
		if err := s.sess.SetVintage(ctx, series.Millis(d)); err != nil {
			return err
		}
	}
	return s.settleFetches(ctx)
}

// optionsFromQuery returns an option update for the chart parameters in q,
// or nil when q carries none.
func optionsFromQuery(q url.Values) (func(*pipeline.Options), error) {
	var fns []func(*pipeline.Options)
	if v := q.Get("axis"); v != "" {
		fns = append(fns, func(o *pipeline.Options) { o.Axis = transform.AxisMode(v) })
	}
	if v := q.Get("scaling"); v != "" {
		fns = append(fns, func(o *pipeline.Options) { o.Scaling = transform.Scaling(v) })
	}
	if v := q.Get("axes"); v != "" {
		fns = append(fns, func(o *pipeline.Options) { o.Axes = chart.AxesType(v) })
	}
	if v := q.Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid threshold %q", v)
		}
		fns = append(fns, func(o *pipeline.Options) { o.Threshold = t })
	}
	for name, set := range map[string]func(*pipeline.Options, int){
		"width":  func(o *pipeline.Options, n int) { o.Width = n },
		"height": func(o *pipeline.Options, n int) { o.Height = n },
	} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 10000 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid %s %q", name, v)
		}
		fns = append(fns, func(o *pipeline.Options) { set(o, n) })
	}
	if len(fns) == 0 {
		return nil, nil
	}
	return func(o *pipeline.Options) {
		for _, fn := range fns {
			fn(o)
		}
	}, nil
}

func notModified(w http.ResponseWriter, r *http.Request, hash string) bool {
	etag := `"` + hash + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
