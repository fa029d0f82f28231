// Package series defines the raw records the chart pipeline works on.
//
// A [Record] is either an [*Observed] series (historical active-case counts of
// one country) or a [*Prediction] (a fitted curve published on a given date).
// The two variants form a closed set: consumers type-switch on the concrete
// type and handle both.
//
// Records are collected in a [Repository], an immutable snapshot value. Adding
// records returns a new snapshot and never replaces a record that is already
// present, so a record handed to the pipeline can be read without locking.
//
// A [Selection] names the records the user wants to see as [Key] values:
// a country with an empty prediction id selects the observed series, a
// country with a prediction id selects that prediction.
//
//	repo := series.NewRepository().With(italy, italyBK0411)
//	sel := series.NewSelection(
//	    series.ObservedKey("Italy"),
//	    series.PredictionKey("Italy", "bk_20200411"),
//	)
//	rec, ok := repo.Lookup(sel.Keys()[0])
package series
