package source

import (
	"net/http"
	"strings"
	"time"

	"github.com/matzehuels/covidchart/pkg/errors"
	"github.com/matzehuels/covidchart/pkg/series"
)

// Record types of [WireSeries].
const (
	TypeObserved   = "cumulative_active"
	TypePrediction = "prediction"
)

// WireSeries is a series as the prediction service serves it. Observed
// series leave the prediction fields empty.
type WireSeries struct {
	Type       string    `json:"type" yaml:"type" bson:"type"`
	DateList   []string  `json:"date_list" yaml:"date_list" bson:"date_list"`
	Values     []float64 `json:"values" yaml:"values" bson:"values"`
	ShortName  string    `json:"short_name" yaml:"short_name" bson:"short_name"`
	LongName   string    `json:"long_name" yaml:"long_name" bson:"long_name"`
	Population float64   `json:"population,omitempty" yaml:"population,omitempty" bson:"population,omitempty"`

	Description    string  `json:"description,omitempty" yaml:"description,omitempty" bson:"description,omitempty"`
	MaxValueDate   string  `json:"max_value_date,omitempty" yaml:"max_value_date,omitempty" bson:"max_value_date,omitempty"`
	MaxValue       float64 `json:"max_value,omitempty" yaml:"max_value,omitempty" bson:"max_value,omitempty"`
	DateName       string  `json:"date_name,omitempty" yaml:"date_name,omitempty" bson:"date_name,omitempty"`
	LastDataDate   string  `json:"last_data_date,omitempty" yaml:"last_data_date,omitempty" bson:"last_data_date,omitempty"`
	PredictionDate string  `json:"prediction_date,omitempty" yaml:"prediction_date,omitempty" bson:"prediction_date,omitempty"`
}

// WireListing is one entry of the prediction list: a vintage id, its publish
// date and one country it covers.
type WireListing struct {
	Prediction     string `json:"prediction" yaml:"prediction" bson:"prediction"`
	PredictionDate string `json:"prediction_date" yaml:"prediction_date" bson:"prediction_date"`
	Country        string `json:"country" yaml:"country" bson:"country"`
	Link           string `json:"link,omitempty" yaml:"link,omitempty" bson:"link,omitempty"`
}

// IsPrediction reports whether w is a prediction.
func (w WireSeries) IsPrediction() bool { return w.Type == TypePrediction }

// Record converts w into a validated [series.Record].
func (w WireSeries) Record() (series.Record, error) {
	dates, err := parseDates(w.DateList)
	if err != nil {
		return nil, wireErr(w, err)
	}
	if !w.IsPrediction() {
		obs := &series.Observed{
			CountryCode: w.ShortName,
			CountryName: w.LongName,
			Population:  w.Population,
			Dates:       dates,
			Values:      w.Values,
		}
		if err := obs.Validate(); err != nil {
			return nil, wireErr(w, err)
		}
		return obs, nil
	}

	p := &series.Prediction{
		CountryCode:         w.ShortName,
		CountryName:         w.LongName,
		PredictionID:        w.DateName,
		Population:          w.Population,
		Dates:               dates,
		Values:              w.Values,
		PeakValue:           w.MaxValue,
		DescriptionTemplate: w.Description,
	}
	for _, f := range []struct {
		dst *time.Time
		src string
	}{
		{&p.PublishedDate, w.PredictionDate},
		{&p.LastDataDate, w.LastDataDate},
		{&p.PeakDate, w.MaxValueDate},
	} {
		if f.src == "" {
			continue
		}
		if *f.dst, err = ParseDate(f.src); err != nil {
			return nil, wireErr(w, err)
		}
	}
	if p.PublishedDate.IsZero() {
		p.PublishedDate = p.LastDataDate
	}
	if p.PeakDate.IsZero() && len(p.Values) > 0 {
		i := argmax(p.Values)
		p.PeakDate, p.PeakValue = p.Dates[i], p.Values[i]
	}
	if err := p.Validate(); err != nil {
		return nil, wireErr(w, err)
	}
	return p, nil
}

// FromRecord converts rec back to its wire form.
func FromRecord(rec series.Record) WireSeries {
	switch r := rec.(type) {
	case *series.Observed:
		return WireSeries{
			Type:       TypeObserved,
			DateList:   formatDates(r.Dates),
			Values:     r.Values,
			ShortName:  r.CountryCode,
			LongName:   r.CountryName,
			Population: r.Population,
		}
	case *series.Prediction:
		return WireSeries{
			Type:           TypePrediction,
			DateList:       formatDates(r.Dates),
			Values:         r.Values,
			ShortName:      r.CountryCode,
			LongName:       r.CountryName,
			Population:     r.Population,
			Description:    r.DescriptionTemplate,
			MaxValueDate:   formatDate(r.PeakDate),
			MaxValue:       r.PeakValue,
			DateName:       r.PredictionID,
			LastDataDate:   formatDate(r.LastDataDate),
			PredictionDate: formatDate(r.PublishedDate),
		}
	}
	return WireSeries{}
}

// GroupVintages folds listing entries into one vintage per prediction id.
func GroupVintages(entries []WireListing) ([]series.Vintage, error) {
	byID := make(map[string]*series.Vintage)
	var order []string
	for _, e := range entries {
		v, ok := byID[e.Prediction]
		if !ok {
			d, err := ParseDate(e.PredictionDate)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeFetchFailure, err, "vintage %s", e.Prediction)
			}
			v = &series.Vintage{ID: e.Prediction, PublishedDate: d}
			byID[e.Prediction] = v
			order = append(order, e.Prediction)
		}
		if e.Country != "" && !v.HasCountry(e.Country) {
			v.Countries = append(v.Countries, e.Country)
		}
	}
	out := make([]series.Vintage, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	series.SortVintages(out)
	return out, nil
}

// ListingsFor expands vintages back into listing entries.
func ListingsFor(vs []series.Vintage) []WireListing {
	var out []WireListing
	for _, v := range vs {
		for _, c := range v.Countries {
			out = append(out, WireListing{Prediction: v.ID, PredictionDate: formatDate(v.PublishedDate), Country: c})
		}
	}
	return out
}

// wireDateLayouts are tried in order. The service emits HTTP dates
// ("Sat, 11 Apr 2020 00:00:00 GMT") for date fields.
var wireDateLayouts = []string{series.DateLayout, http.TimeFormat, time.RFC1123, time.RFC3339}

// ParseDate parses a wire date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range wireDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, errors.New(errors.ErrCodeInvalidSeries, "invalid date %q", s)
}

func parseDates(in []string) ([]time.Time, error) {
	out := make([]time.Time, len(in))
	for i, s := range in {
		d, err := ParseDate(s)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(series.DateLayout)
}

func formatDates(in []time.Time) []string {
	out := make([]string, len(in))
	for i, t := range in {
		out[i] = formatDate(t)
	}
	return out
}

func argmax(vs []float64) int {
	best := 0
	for i, v := range vs {
		if v > vs[best] {
			best = i
		}
	}
	return best
}

func wireErr(w WireSeries, err error) error {
	name := w.ShortName
	if w.IsPrediction() {
		name += "/" + w.DateName
	}
	return errors.Wrap(errors.ErrCodeFetchFailure, err, "decode %s", name)
}
