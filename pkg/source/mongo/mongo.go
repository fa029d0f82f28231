// Package mongo serves series from a MongoDB database.
//
// Series documents live in one collection with the same fields as the REST
// payloads (type, short_name, date_name, date_list, values, ...). The
// prediction list lives in a second collection of listing entries. [Import]
// loads a [source.Dataset] into both.
package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/covidchart/pkg/errors"
	"github.com/matzehuels/covidchart/pkg/series"
	"github.com/matzehuels/covidchart/pkg/source"
)

// Defaults for [Config].
const (
	DefaultDatabase    = "covid19"
	DefaultSeries      = "series"
	DefaultPredictions = "predictions"

	connectTimeout = 10 * time.Second
)

// Config locates the collections.
type Config struct {
	URI         string `toml:"uri"`
	Database    string `toml:"database"`
	Series      string `toml:"series_collection"`
	Predictions string `toml:"predictions_collection"`
}

// SetDefaults fills empty names.
func (c *Config) SetDefaults() {
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.Series == "" {
		c.Series = DefaultSeries
	}
	if c.Predictions == "" {
		c.Predictions = DefaultPredictions
	}
}

// Source is a [source.Source] backed by MongoDB.
type Source struct {
	client      *mongo.Client
	series      *mongo.Collection
	predictions *mongo.Collection
}

var _ source.Source = (*Source)(nil)

// Connect dials cfg.URI and checks the connection.
func Connect(ctx context.Context, cfg Config) (*Source, error) {
	cfg.SetDefaults()
	if cfg.URI == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "mongo uri is required")
	}
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "connect to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "ping mongo")
	}
	return NewFromClient(client, cfg), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *mongo.Client, cfg Config) *Source {
	cfg.SetDefaults()
	db := client.Database(cfg.Database)
	return &Source{
		client:      client,
		series:      db.Collection(cfg.Series),
		predictions: db.Collection(cfg.Predictions),
	}
}

// Close disconnects the client.
func (s *Source) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Source) ListVintages(ctx context.Context) ([]series.Vintage, error) {
	cur, err := s.predictions.Find(ctx, bson.D{})
	if err != nil {
		return nil, fetchErr(err, "list predictions")
	}
	var entries []source.WireListing
	if err := cur.All(ctx, &entries); err != nil {
		return nil, fetchErr(err, "decode predictions")
	}
	return source.GroupVintages(entries)
}

func (s *Source) Observed(ctx context.Context, country string) (*series.Observed, error) {
	if err := errors.ValidateCountryCode(country); err != nil {
		return nil, err
	}
	var w source.WireSeries
	err := s.series.FindOne(ctx, bson.D{
		{Key: "type", Value: source.TypeObserved},
		{Key: "short_name", Value: country},
	}).Decode(&w)
	if err == mongo.ErrNoDocuments {
		return nil, source.NotFound("no observed series for %s", country)
	}
	if err != nil {
		return nil, fetchErr(err, "observed %s", country)
	}
	rec, err := w.Record()
	if err != nil {
		return nil, err
	}
	return rec.(*series.Observed), nil
}

func (s *Source) PredictionsForCountry(ctx context.Context, country string) ([]*series.Prediction, error) {
	if err := errors.ValidateCountryCode(country); err != nil {
		return nil, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "date_name", Value: 1}})
	cur, err := s.series.Find(ctx, bson.D{
		{Key: "type", Value: source.TypePrediction},
		{Key: "short_name", Value: country},
	}, opts)
	if err != nil {
		return nil, fetchErr(err, "predictions %s", country)
	}
	var ws []source.WireSeries
	if err := cur.All(ctx, &ws); err != nil {
		return nil, fetchErr(err, "decode predictions %s", country)
	}
	if len(ws) == 0 {
		return nil, source.NotFound("no predictions for %s", country)
	}
	out := make([]*series.Prediction, 0, len(ws))
	for _, w := range ws {
		rec, err := w.Record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec.(*series.Prediction))
	}
	return out, nil
}

func (s *Source) Prediction(ctx context.Context, predictionID, country string) (*series.Prediction, error) {
	if err := series.PredictionKey(country, predictionID).Validate(); err != nil {
		return nil, err
	}
	var w source.WireSeries
	err := s.series.FindOne(ctx, bson.D{
		{Key: "type", Value: source.TypePrediction},
		{Key: "short_name", Value: country},
		{Key: "date_name", Value: predictionID},
	}).Decode(&w)
	if err == mongo.ErrNoDocuments {
		return nil, source.NotFound("no prediction %s for %s", predictionID, country)
	}
	if err != nil {
		return nil, fetchErr(err, "prediction %s/%s", country, predictionID)
	}
	rec, err := w.Record()
	if err != nil {
		return nil, err
	}
	return rec.(*series.Prediction), nil
}

// EnsureIndexes creates the lookup indexes used by the queries above.
func (s *Source) EnsureIndexes(ctx context.Context) error {
	_, err := s.series.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "type", Value: 1},
			{Key: "short_name", Value: 1},
			{Key: "date_name", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fetchErr(err, "create series index")
	}
	return nil
}

// Import upserts every series and listing entry of ds and returns the number
// of series written.
func Import(ctx context.Context, s *Source, ds source.Dataset) (int, error) {
	if err := s.EnsureIndexes(ctx); err != nil {
		return 0, err
	}
	upsert := options.Replace().SetUpsert(true)
	for _, w := range ds.Series {
		filter := bson.D{
			{Key: "type", Value: w.Type},
			{Key: "short_name", Value: w.ShortName},
			{Key: "date_name", Value: w.DateName},
		}
		if _, err := s.series.ReplaceOne(ctx, filter, w, upsert); err != nil {
			return 0, fetchErr(err, "import %s", w.ShortName)
		}
	}
	for _, l := range ds.Predictions {
		filter := bson.D{
			{Key: "prediction", Value: l.Prediction},
			{Key: "country", Value: l.Country},
		}
		if _, err := s.predictions.ReplaceOne(ctx, filter, l, upsert); err != nil {
			return 0, fetchErr(err, "import listing %s", l.Prediction)
		}
	}
	return len(ds.Series), nil
}

func fetchErr(err error, format string, args ...any) error {
	if mongo.IsTimeout(err) {
		return errors.Wrap(errors.ErrCodeTimeout, err, format, args...)
	}
	if mongo.IsNetworkError(err) {
		return errors.Wrap(errors.ErrCodeNetwork, err, format, args...)
	}
	return errors.Wrap(errors.ErrCodeFetchFailure, err, format, args...)
}
