package series

import (
	"time"

	"github.com/biter777/countries"

	"github.com/matzehuels/covidchart/pkg/errors"
)

// Kind discriminates the two record variants.
type Kind string

const (
	KindObserved   Kind = "observed"
	KindPrediction Kind = "prediction"
)

// DatePlaceholder is substituted with the localized publish date in a
// prediction's description template.
const DatePlaceholder = "%PREDICTION_DATE%"

// Record is a raw series held by a [Repository]. The only implementations are
// [*Observed] and [*Prediction].
type Record interface {
	Key() Key
	Kind() Kind
	Country() string
	Name() string
	Points() ([]time.Time, []float64)
	Validate() error

	sealed()
}

// Observed is the historical active-case series of one country.
type Observed struct {
	CountryCode string      `json:"country_code"`
	CountryName string      `json:"country_name"`
	Population  float64     `json:"population"`
	Dates       []time.Time `json:"dates"`
	Values      []float64   `json:"values"`
}

func (o *Observed) sealed() {}

// Key returns the observed key of the country.
func (o *Observed) Key() Key { return ObservedKey(o.CountryCode) }

// Kind returns [KindObserved].
func (o *Observed) Kind() Kind { return KindObserved }

// Country returns the country code.
func (o *Observed) Country() string { return o.CountryCode }

// Name returns the display name, falling back to the code.
func (o *Observed) Name() string { return displayName(o.CountryName, o.CountryCode) }

// Points returns the dates and values.
func (o *Observed) Points() ([]time.Time, []float64) { return o.Dates, o.Values }

// Peak returns the largest value, or 0 for an empty series.
func (o *Observed) Peak() float64 {
	peak := 0.0
	for _, v := range o.Values {
		peak = max(peak, v)
	}
	return peak
}

// Validate checks the date/value invariants.
func (o *Observed) Validate() error {
	if err := errors.ValidateCountryCode(o.CountryCode); err != nil {
		return err
	}
	return validatePoints(o.Key(), o.Dates, o.Values)
}

// Prediction is a fitted curve for one country, published on PublishedDate.
type Prediction struct {
	CountryCode         string      `json:"country_code"`
	CountryName         string      `json:"country_name"`
	PredictionID        string      `json:"prediction_id"`
	Population          float64     `json:"population"`
	PublishedDate       time.Time   `json:"published_date"`
	LastDataDate        time.Time   `json:"last_data_date"`
	Dates               []time.Time `json:"dates"`
	Values              []float64   `json:"values"`
	PeakDate            time.Time   `json:"peak_date"`
	PeakValue           float64     `json:"peak_value"`
	DescriptionTemplate string      `json:"description"`
}

func (p *Prediction) sealed() {}

// Key returns the prediction key.
func (p *Prediction) Key() Key { return PredictionKey(p.CountryCode, p.PredictionID) }

// Kind returns [KindPrediction].
func (p *Prediction) Kind() Kind { return KindPrediction }

// Country returns the country code.
func (p *Prediction) Country() string { return p.CountryCode }

// Name returns the display name, falling back to the code.
func (p *Prediction) Name() string { return displayName(p.CountryName, p.CountryCode) }

// Points returns the dates and values.
func (p *Prediction) Points() ([]time.Time, []float64) { return p.Dates, p.Values }

// Validate checks the date/value invariants and that the peak lies on the curve's range.
func (p *Prediction) Validate() error {
	if err := p.Key().Validate(); err != nil {
		return err
	}
	if err := validatePoints(p.Key(), p.Dates, p.Values); err != nil {
		return err
	}
	if len(p.Dates) > 0 && (p.PeakDate.Before(p.Dates[0]) || p.PeakDate.After(p.Dates[len(p.Dates)-1])) {
		return errors.New(errors.ErrCodeInvalidSeries, "%s: peak date %s outside %s..%s",
			p.Key(), p.PeakDate.Format(DateLayout), p.Dates[0].Format(DateLayout), p.Dates[len(p.Dates)-1].Format(DateLayout))
	}
	if p.PeakValue < 0 {
		return errors.New(errors.ErrCodeInvalidSeries, "%s: negative peak value %v", p.Key(), p.PeakValue)
	}
	return nil
}

func validatePoints(k Key, dates []time.Time, values []float64) error {
	if len(dates) != len(values) {
		return errors.New(errors.ErrCodeInvalidSeries, "%s: %d dates but %d values", k, len(dates), len(values))
	}
	for i := range dates {
		if i > 0 && !dates[i].After(dates[i-1]) {
			return errors.New(errors.ErrCodeInvalidSeries, "%s: dates not strictly increasing at %d", k, i)
		}
		if values[i] < 0 {
			return errors.New(errors.ErrCodeInvalidSeries, "%s: negative value at %d", k, i)
		}
	}
	return nil
}

// CountryName returns the English name of a country code or short name,
// or code itself when the code is not a known country.
func CountryName(code string) string {
	name := countries.ByName(code).String()
	if name == "" || name == countries.Unknown.String() {
		return code
	}
	return name
}

func displayName(name, code string) string {
	if name != "" {
		return name
	}
	return CountryName(code)
}

var (
	_ Record = (*Observed)(nil)
	_ Record = (*Prediction)(nil)
)
