package source

import (
	"context"
	"sort"
	"sync"

	"github.com/matzehuels/covidchart/pkg/series"
)

// Dataset is a complete dump of the prediction service: the prediction list
// and every series. It is the on-disk format of the file source and the
// output of "covidchart export".
type Dataset struct {
	Predictions []WireListing `json:"predictions" yaml:"predictions" bson:"predictions"`
	Series      []WireSeries  `json:"series" yaml:"series" bson:"series"`
}

// Memory is a [Source] over decoded records held in memory.
type Memory struct {
	vintages    []series.Vintage
	observed    map[string]*series.Observed
	predictions map[string][]*series.Prediction

	mu    sync.Mutex
	calls map[string]int
}

var _ Source = (*Memory)(nil)

// NewMemory decodes every series of ds.
func NewMemory(ds Dataset) (*Memory, error) {
	vs, err := GroupVintages(ds.Predictions)
	if err != nil {
		return nil, err
	}
	recs := make([]series.Record, 0, len(ds.Series))
	for _, w := range ds.Series {
		rec, err := w.Record()
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return NewMemoryFromRecords(vs, recs...), nil
}

// NewMemoryFromRecords builds a source from already decoded records.
// A later record replaces an earlier one with the same key.
func NewMemoryFromRecords(vs []series.Vintage, recs ...series.Record) *Memory {
	m := &Memory{
		vintages:    append([]series.Vintage(nil), vs...),
		observed:    make(map[string]*series.Observed),
		predictions: make(map[string][]*series.Prediction),
		calls:       make(map[string]int),
	}
	series.SortVintages(m.vintages)
	for _, rec := range recs {
		switch r := rec.(type) {
		case *series.Observed:
			m.observed[r.CountryCode] = r
		case *series.Prediction:
			ps := m.predictions[r.CountryCode]
			replaced := false
			for i, p := range ps {
				if p.PredictionID == r.PredictionID {
					ps[i], replaced = r, true
				}
			}
			if !replaced {
				ps = append(ps, r)
			}
			sort.Slice(ps, func(i, j int) bool { return ps[i].PredictionID < ps[j].PredictionID })
			m.predictions[r.CountryCode] = ps
		}
	}
	return m
}

// Countries returns every country with an observed series, sorted.
func (m *Memory) Countries() []string {
	out := make([]string, 0, len(m.observed))
	for c := range m.observed {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Calls returns how often the named method was called. Tests use it to
// check that requests are not repeated.
func (m *Memory) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *Memory) count(method string) {
	m.mu.Lock()
	m.calls[method]++
	m.mu.Unlock()
}

func (m *Memory) ListVintages(ctx context.Context) ([]series.Vintage, error) {
	m.count("ListVintages")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return append([]series.Vintage(nil), m.vintages...), nil
}

func (m *Memory) Observed(ctx context.Context, country string) (*series.Observed, error) {
	m.count("Observed")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	obs, ok := m.observed[country]
	if !ok {
		return nil, NotFound("no observed series for %s", country)
	}
	return obs, nil
}

func (m *Memory) PredictionsForCountry(ctx context.Context, country string) ([]*series.Prediction, error) {
	m.count("PredictionsForCountry")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ps, ok := m.predictions[country]
	if !ok {
		return nil, NotFound("no predictions for %s", country)
	}
	return append([]*series.Prediction(nil), ps...), nil
}

func (m *Memory) Prediction(ctx context.Context, predictionID, country string) (*series.Prediction, error) {
	m.count("Prediction")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, p := range m.predictions[country] {
		if p.PredictionID == predictionID {
			return p, nil
		}
	}
	return nil, NotFound("no prediction %s for %s", predictionID, country)
}

// Dump loads everything src serves into a [Dataset]. Countries are taken
// from the vintages plus extra.
func Dump(ctx context.Context, src Source, extra ...string) (Dataset, error) {
	vs, err := src.ListVintages(ctx)
	if err != nil {
		return Dataset{}, err
	}
	ds := Dataset{Predictions: ListingsFor(vs)}

	seen := make(map[string]bool)
	var countries []string
	for _, v := range vs {
		for _, c := range v.Countries {
			if !seen[c] {
				seen[c] = true
				countries = append(countries, c)
			}
		}
	}
	for _, c := range extra {
		if !seen[c] {
			seen[c] = true
			countries = append(countries, c)
		}
	}
	sort.Strings(countries)

	for _, c := range countries {
		obs, err := src.Observed(ctx, c)
		switch {
		case err == nil:
			ds.Series = append(ds.Series, FromRecord(obs))
		case !IsNotFound(err):
			return Dataset{}, err
		}
		ps, err := src.PredictionsForCountry(ctx, c)
		switch {
		case err == nil:
			for _, p := range ps {
				ds.Series = append(ds.Series, FromRecord(p))
			}
		case !IsNotFound(err):
			return Dataset{}, err
		}
	}
	return ds, nil
}
