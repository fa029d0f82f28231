// Package source defines where raw series come from.
//
// A [Source] answers the four read-only queries of the prediction service:
// the list of prediction vintages, the observed series of a country, all
// predictions of a country, and one prediction by id. Implementations:
//
//   - rest: the HTTP service (/covid19/rest/...), with caching and retries
//   - file: a YAML or JSON dataset on disk
//   - mongo: a MongoDB collection of series documents
//
// Every implementation speaks the same wire records ([WireSeries],
// [WireListing]) and converts them with [WireSeries.Record].
//
// Errors carry codes from pkg/errors: SERIES_NOT_FOUND when the source has no
// such series, FETCH_FAILURE for everything else.
package source

import (
	"context"
	"time"

	"github.com/matzehuels/covidchart/pkg/errors"
	"github.com/matzehuels/covidchart/pkg/observability"
	"github.com/matzehuels/covidchart/pkg/series"
)

// Source provides raw series. Implementations must be safe for concurrent use.
type Source interface {
	ListVintages(ctx context.Context) ([]series.Vintage, error)
	Observed(ctx context.Context, country string) (*series.Observed, error)
	PredictionsForCountry(ctx context.Context, country string) ([]*series.Prediction, error)
	Prediction(ctx context.Context, predictionID, country string) (*series.Prediction, error)
}

// Fetch loads the record for k, reporting the fetch to
// [observability.Fetch]. Returned records are validated.
func Fetch(ctx context.Context, src Source, k series.Key) (series.Record, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	kind := string(k.Kind())
	hooks := observability.Fetch()
	hooks.OnFetchStart(ctx, kind)
	start := time.Now()

	var (
		rec series.Record
		err error
	)
	if k.IsObserved() {
		var obs *series.Observed
		if obs, err = src.Observed(ctx, k.Country); err == nil {
			rec = obs
		}
	} else {
		var p *series.Prediction
		if p, err = src.Prediction(ctx, k.PredictionID, k.Country); err == nil {
			rec = p
		}
	}
	if err == nil {
		err = rec.Validate()
	}
	hooks.OnFetchComplete(ctx, kind, time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// NotFound returns the error sources report for a missing series.
func NotFound(what string, args ...any) error {
	return errors.New(errors.ErrCodeSeriesNotFound, what, args...)
}

// IsNotFound reports whether err means the source has no such series.
func IsNotFound(err error) bool {
	return errors.Is(err, errors.ErrCodeSeriesNotFound)
}
