// Package sourcetest provides fixture data and a fake prediction service for
// tests of packages that consume a source.
package sourcetest

import (
	"encoding/json"
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/covidchart/pkg/series"
	"github.com/matzehuels/covidchart/pkg/source"
)

// Fixture vintage ids.
const (
	Early = "bk_20200329"
	Late  = "bk_20200411"
)

// Start is the first date of every fixture series.
var Start = series.MustParseDate("2020-03-01")

// Dataset returns two countries with observed data, predictions of Italy in
// both vintages and of Spain in the early one. Publish dates use the HTTP
// date format the service emits.
func Dataset() source.Dataset {
	return source.Dataset{
		Predictions: []source.WireListing{
			{Prediction: Early, PredictionDate: "Sun, 29 Mar 2020 00:00:00 GMT", Country: "Italy"},
			{Prediction: Early, PredictionDate: "Sun, 29 Mar 2020 00:00:00 GMT", Country: "Spain"},
			{Prediction: Late, PredictionDate: "Sat, 11 Apr 2020 00:00:00 GMT", Country: "Italy"},
		},
		Series: []source.WireSeries{
			Observed("Italy", "Italy", 0, 40, 60_000_000),
			Observed("Spain", "Spain", 4, 36, 47_000_000),
			Prediction("Italy", Early, 0, 60, 28),
			Prediction("Italy", Late, 0, 70, 41),
			Prediction("Spain", Early, 4, 60, 28),
		},
	}
}

// Memory returns [Dataset] as a source.
func Memory() *source.Memory {
	m, err := source.NewMemory(Dataset())
	if err != nil {
		panic(err)
	}
	return m
}

// Day returns the fixture date offset days after [Start].
func Day(offset int) time.Time { return Start.AddDate(0, 0, offset) }

// Observed returns a growing series of n days starting offset days after
// [Start]. The first value is 50.
func Observed(code, name string, offset, n int, population float64) source.WireSeries {
	w := source.WireSeries{
		Type:       source.TypeObserved,
		ShortName:  code,
		LongName:   name,
		Population: population,
	}
	for i := range n {
		w.DateList = append(w.DateList, Day(offset+i).Format(series.DateLayout))
		w.Values = append(w.Values, 50*float64(i+1))
	}
	return w
}

// Prediction returns a bell shaped curve of n days starting offset days after
// [Start], published published days after [Start]. It peaks at 10000 in the
// middle.
func Prediction(code, id string, offset, n, published int) source.WireSeries {
	w := source.WireSeries{
		Type:           source.TypePrediction,
		ShortName:      code,
		LongName:       code,
		Description:    "Fitted curve" + series.DatePlaceholder,
		DateName:       id,
		LastDataDate:   Day(published - 1).Format(series.DateLayout),
		PredictionDate: Day(published).Format(series.DateLayout),
	}
	mid := n / 2
	for i := range n {
		d := float64(i - mid)
		v := math.Round(10000 * math.Exp(-d*d/200))
		w.DateList = append(w.DateList, Day(offset+i).Format(series.DateLayout))
		w.Values = append(w.Values, v)
	}
	w.MaxValueDate = Day(offset + mid).Format(series.DateLayout)
	w.MaxValue = 10000
	return w
}

// Server is a fake prediction service. It serves ds on the REST paths and
// counts requests.
type Server struct {
	ds       source.Dataset
	requests atomic.Int64
	router   chi.Router
}

// NewServer returns a fake service for ds.
func NewServer(ds source.Dataset) *Server {
	s := &Server{ds: ds}
	r := chi.NewRouter()
	r.Use(s.count)
	r.Get("/covid19/rest/predictions/list", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, s.ds.Predictions)
	})
	r.Get("/covid19/rest/data/{country}", func(w http.ResponseWriter, r *http.Request) {
		c := chi.URLParam(r, "country")
		for _, ws := range s.ds.Series {
			if !ws.IsPrediction() && ws.ShortName == c {
				writeJSON(w, ws)
				return
			}
		}
		http.NotFound(w, r)
	})
	r.Get("/covid19/rest/predictions/by_country/{country}", func(w http.ResponseWriter, r *http.Request) {
		c := chi.URLParam(r, "country")
		out := []source.WireSeries{}
		for _, ws := range s.ds.Series {
			if ws.IsPrediction() && ws.ShortName == c {
				out = append(out, ws)
			}
		}
		if len(out) == 0 {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, out)
	})
	r.Get("/covid19/rest/predictions/by_prediction/{id}/{country}", func(w http.ResponseWriter, r *http.Request) {
		id, c := chi.URLParam(r, "id"), chi.URLParam(r, "country")
		for _, ws := range s.ds.Series {
			if ws.IsPrediction() && ws.ShortName == c && ws.DateName == id {
				writeJSON(w, ws)
				return
			}
		}
		http.NotFound(w, r)
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// Requests returns the number of requests served so far.
func (s *Server) Requests() int { return int(s.requests.Load()) }

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
