package styles

import (
	"math/rand"
	"testing"

	"github.com/matzehuels/covidchart/pkg/series"
)

func TestHashKnownValues(t *testing.T) {
	// "a" = 97 -> 97 + 2^31
	if got, want := Hash("a"), uint64(97+1<<31); got != want {
		t.Errorf("Hash(a) = %d, want %d", got, want)
	}
	// "ab" = 97*31 + 98 = 3105
	if got, want := Hash("ab"), uint64(3105+1<<31); got != want {
		t.Errorf("Hash(ab) = %d, want %d", got, want)
	}
	if got, want := Hash(""), uint64(1<<31); got != want {
		t.Errorf("Hash(\"\") = %d, want %d", got, want)
	}
}

func TestHashWrapsNonNegative(t *testing.T) {
	long := "Bosnia and Herzegovina/prediction with a very long suffix to force overflow"
	h := Hash(long)
	if h >= 1<<32 {
		t.Errorf("Hash() = %d, should fit in 32 bits after normalization", h)
	}
	if Hash(long) != h {
		t.Error("Hash() should be deterministic")
	}
}

func TestColorIndependentOfOrder(t *testing.T) {
	countries := []string{"Italy", "Spain", "USA", "Germany", "France", "Iran", "Slovakia"}
	a := NewAssigner(nil)

	want := make(map[string]string)
	for _, c := range countries {
		want[c] = a.Color(c, series.KindObserved)
	}

	rng := rand.New(rand.NewSource(1))
	for round := 0; round < 10; round++ {
		rng.Shuffle(len(countries), func(i, j int) { countries[i], countries[j] = countries[j], countries[i] })
		fresh := NewAssigner(nil)
		for _, c := range countries[:rng.Intn(len(countries))+1] {
			if got := fresh.Color(c, series.KindObserved); got != want[c] {
				t.Fatalf("Color(%s) = %s after reorder, want %s", c, got, want[c])
			}
		}
	}
}

func TestColorInPalette(t *testing.T) {
	palette := []string{"#000000", "#ffffff"}
	a := NewAssigner(palette)
	for _, c := range []string{"Italy", "Spain", "USA"} {
		for _, k := range []series.Kind{series.KindObserved, series.KindPrediction} {
			got := a.Color(c, k)
			if got != palette[0] && got != palette[1] {
				t.Errorf("Color(%s, %s) = %s not in palette", c, k, got)
			}
		}
	}
}

func TestFor(t *testing.T) {
	a := NewAssigner(nil)
	obs := a.For("Italy", series.KindObserved)
	pred := a.For("Italy", series.KindPrediction)

	if obs.Dash != DashSolid {
		t.Errorf("observed dash = %s, want solid", obs.Dash)
	}
	if pred.Dash != DashLineThenDot {
		t.Errorf("prediction dash = %s, want line-then-dot", pred.Dash)
	}
	if obs.Color != a.Color("Italy", series.KindObserved) {
		t.Error("For() color should match Color()")
	}
}

func TestBandColorCycles(t *testing.T) {
	if BandColor(0) != BandColor(len(BandPalette)) {
		t.Error("BandColor() should cycle through the palette")
	}
}
