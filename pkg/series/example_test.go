package series_test

import (
	"fmt"

	"github.com/matzehuels/covidchart/pkg/series"
)

func ExampleSelection_Toggle() {
	sel := series.NewSelection(series.ObservedKey("Italy"))
	sel = sel.Toggle(series.PredictionKey("Italy", "bk_20200411"))
	sel = sel.Toggle(series.ObservedKey("Italy"))
	fmt.Println(sel)
	// Output:
	// [Italy/bk_20200411]
}

func ExampleRepository_With() {
	repo := series.NewRepository()
	next := repo.With(&series.Observed{CountryCode: "Italy", CountryName: "Italy"})
	fmt.Println(repo.Len(), next.Len())
	// Output:
	// 0 1
}
