package series

import (
	"testing"
	"time"

	"github.com/matzehuels/covidchart/pkg/errors"
)

func dates(start string, n int) []time.Time {
	d0 := MustParseDate(start)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = d0.Add(time.Duration(i) * Day)
	}
	return out
}

func TestParseKey(t *testing.T) {
	tests := []struct {
		in      string
		want    Key
		wantErr bool
	}{
		{"Italy", ObservedKey("Italy"), false},
		{"Italy/null", ObservedKey("Italy"), false},
		{"Italy/bk_20200411", PredictionKey("Italy", "bk_20200411"), false},
		{" USA ", ObservedKey("USA"), false},
		{"", Key{}, true},
		{"Italy/../x", Key{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKey(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKey(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, errors.ErrCodeInvalidSelection) {
					t.Errorf("ParseKey(%q) code = %v", tt.in, errors.GetCode(err))
				}
				return
			}
			if got != tt.want {
				t.Errorf("ParseKey(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestKeyString(t *testing.T) {
	if got := ObservedKey("X").String(); got != "X/null" {
		t.Errorf("String() = %q, want X/null", got)
	}
	if got := PredictionKey("X", "p1").String(); got != "X/p1" {
		t.Errorf("String() = %q, want X/p1", got)
	}
}

func TestSortKeys(t *testing.T) {
	keys := []Key{
		PredictionKey("Spain", "b"),
		PredictionKey("Italy", "b"),
		ObservedKey("Spain"),
		PredictionKey("Italy", "a"),
		ObservedKey("Italy"),
	}
	SortKeys(keys)

	want := []Key{
		ObservedKey("Italy"),
		PredictionKey("Italy", "a"),
		PredictionKey("Italy", "b"),
		ObservedKey("Spain"),
		PredictionKey("Spain", "b"),
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %v, want %v", i, keys[i], want[i])
		}
	}
}

func TestSelection(t *testing.T) {
	obs := ObservedKey("Italy")
	pred := PredictionKey("Italy", "bk_1")

	s := NewSelection(obs, pred, obs)
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (duplicates dropped)", s.Len())
	}
	if !s.Has(obs) || !s.Has(pred) {
		t.Error("selection should hold both the observed and the prediction key")
	}

	toggled := s.Toggle(obs)
	if toggled.Has(obs) {
		t.Error("Toggle() should remove a selected key")
	}
	if !s.Has(obs) {
		t.Error("Toggle() must not modify the receiver")
	}
	if !toggled.Toggle(obs).Has(obs) {
		t.Error("Toggle() should add an absent key")
	}

	if got := s.WithoutPredictions(); got.Len() != 1 || !got.Has(obs) {
		t.Errorf("WithoutPredictions() = %v", got)
	}

	s = s.Add(ObservedKey("Austria"))
	countries := s.Countries()
	if len(countries) != 2 || countries[0] != "Austria" || countries[1] != "Italy" {
		t.Errorf("Countries() = %v, want [Austria Italy]", countries)
	}
}

func TestParseSelection(t *testing.T) {
	s, err := ParseSelection([]string{"Italy", "Italy/bk_1", "", "Spain/null"})
	if err != nil {
		t.Fatalf("ParseSelection() error: %v", err)
	}
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}
	if _, err := ParseSelection([]string{"bad/../key"}); err == nil {
		t.Error("ParseSelection() should reject invalid keys")
	}
}

func TestObservedValidate(t *testing.T) {
	good := &Observed{CountryCode: "Italy", Dates: dates("2020-03-01", 3), Values: []float64{1, 2, 3}}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	tests := []struct {
		name string
		obs  *Observed
	}{
		{"length mismatch", &Observed{CountryCode: "Italy", Dates: dates("2020-03-01", 3), Values: []float64{1, 2}}},
		{"negative value", &Observed{CountryCode: "Italy", Dates: dates("2020-03-01", 2), Values: []float64{1, -2}}},
		{"not increasing", &Observed{CountryCode: "Italy", Dates: []time.Time{MustParseDate("2020-03-02"), MustParseDate("2020-03-01")}, Values: []float64{1, 2}}},
		{"bad country", &Observed{CountryCode: "", Dates: nil, Values: nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.obs.Validate(); err == nil {
				t.Error("Validate() should fail")
			}
		})
	}
}

func TestPredictionValidatePeak(t *testing.T) {
	p := &Prediction{
		CountryCode:  "Italy",
		PredictionID: "bk_1",
		Dates:        dates("2020-03-01", 5),
		Values:       []float64{1, 2, 3, 2, 1},
		PeakDate:     MustParseDate("2020-03-03"),
		PeakValue:    3,
	}
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	p.PeakDate = MustParseDate("2020-04-01")
	err := p.Validate()
	if !errors.Is(err, errors.ErrCodeInvalidSeries) {
		t.Errorf("Validate() = %v, want INVALID_SERIES for peak outside range", err)
	}
}

func TestObservedPeak(t *testing.T) {
	o := &Observed{Values: []float64{3, 9, 4}}
	if got := o.Peak(); got != 9 {
		t.Errorf("Peak() = %v, want 9", got)
	}
	if got := (&Observed{}).Peak(); got != 0 {
		t.Errorf("Peak() of empty series = %v, want 0", got)
	}
}

func TestIndexOfDate(t *testing.T) {
	ds := dates("2020-03-01", 10)
	if got := IndexOfDate(ds, MustParseDate("2020-03-04")); got != 3 {
		t.Errorf("IndexOfDate() = %d, want 3", got)
	}
	if got := IndexOfDate(ds, MustParseDate("2020-02-01")); got != -1 {
		t.Errorf("IndexOfDate() = %d, want -1", got)
	}
	if got := DaysBetween(ds[0], ds[9]); got != 9 {
		t.Errorf("DaysBetween() = %d, want 9", got)
	}
}

func TestRepositoryImmutable(t *testing.T) {
	first := &Observed{CountryCode: "Italy", Population: 1}
	second := &Observed{CountryCode: "Italy", Population: 2}

	empty := NewRepository()
	r1 := empty.With(first)
	r2 := r1.With(second)

	if empty.Len() != 0 {
		t.Error("With() must not modify the receiver")
	}
	got, ok := r2.Observed("Italy")
	if !ok {
		t.Fatal("Observed() should find Italy")
	}
	if got.Population != 1 {
		t.Error("re-inserting an existing key must keep the first record")
	}
}

func TestRepositoryLookups(t *testing.T) {
	repo := NewRepository().With(
		&Observed{CountryCode: "Italy"},
		&Prediction{CountryCode: "Italy", PredictionID: "b"},
		&Prediction{CountryCode: "Italy", PredictionID: "a"},
		&Prediction{CountryCode: "Spain", PredictionID: "a"},
	)

	if _, ok := repo.Prediction("Italy", "a"); !ok {
		t.Error("Prediction(Italy, a) not found")
	}
	if _, ok := repo.Observed("Spain"); ok {
		t.Error("Observed(Spain) should be missing")
	}
	preds := repo.PredictionsFor("Italy")
	if len(preds) != 2 || preds[0].PredictionID != "a" {
		t.Errorf("PredictionsFor(Italy) = %v", preds)
	}
	if keys := repo.Keys(); len(keys) != 4 || keys[0] != ObservedKey("Italy") {
		t.Errorf("Keys() = %v", keys)
	}
}

func TestRepositoryVintagesSorted(t *testing.T) {
	repo := NewRepository().WithVintages([]Vintage{
		{ID: "late", PublishedDate: MustParseDate("2020-04-12")},
		{ID: "early", PublishedDate: MustParseDate("2020-03-30")},
	})
	vs := repo.Vintages()
	if vs[0].ID != "early" || vs[1].ID != "late" {
		t.Errorf("Vintages() = %v, want early then late", vs)
	}
	vs[0].ID = "changed"
	if repo.Vintages()[0].ID != "early" {
		t.Error("Vintages() should return a copy")
	}
}

func TestCountryName(t *testing.T) {
	tests := []struct {
		code string
		want string
	}{
		{"Italy", "Italy"},
		{"DEU", "Germany"},
		{"Atlantis", "Atlantis"},
	}
	for _, tt := range tests {
		if got := CountryName(tt.code); got != tt.want {
			t.Errorf("CountryName(%q) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
