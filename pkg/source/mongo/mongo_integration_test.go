//go:build integration

package mongo

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/matzehuels/covidchart/pkg/source"
	"github.com/matzehuels/covidchart/pkg/source/sourcetest"
)

func connect(t *testing.T) *Source {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	ctx := context.Background()
	s, err := Connect(ctx, Config{URI: uri, Database: "covidchart_test_" + uuid.NewString()[:8]})
	if err != nil {
		t.Skipf("mongo not available: %v", err)
	}
	t.Cleanup(func() {
		_ = s.series.Database().Drop(ctx)
		_ = s.Close(ctx)
	})
	return s
}

func TestImportAndQuery(t *testing.T) {
	s := connect(t)
	ctx := context.Background()

	n, err := Import(ctx, s, sourcetest.Dataset())
	if err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	if n != 5 {
		t.Errorf("imported %d, want 5", n)
	}
	// Importing twice replaces instead of duplicating.
	if _, err := Import(ctx, s, sourcetest.Dataset()); err != nil {
		t.Fatalf("second Import() error: %v", err)
	}

	vs, err := s.ListVintages(ctx)
	if err != nil || len(vs) != 2 {
		t.Fatalf("ListVintages() = %d, %v", len(vs), err)
	}
	obs, err := s.Observed(ctx, "Italy")
	if err != nil || len(obs.Values) != 40 {
		t.Fatalf("Observed() = %v, %v", obs, err)
	}
	ps, err := s.PredictionsForCountry(ctx, "Italy")
	if err != nil || len(ps) != 2 || ps[0].PredictionID != sourcetest.Early {
		t.Fatalf("PredictionsForCountry() = %d, %v", len(ps), err)
	}
	if _, err := s.Prediction(ctx, sourcetest.Late, "Spain"); !source.IsNotFound(err) {
		t.Errorf("Prediction(late, Spain) error = %v, want not found", err)
	}
}
