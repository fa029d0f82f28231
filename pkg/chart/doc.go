// Package chart assembles transformed series into a declarative chart.
//
// A [Chart] is everything a renderer needs to paint one frame: titles, axis
// types and formatters, background bands and the styled series with their
// markers. It is a plain value that serializes to JSON, so any renderer (the
// PNG/SVG sinks, a web client, a test) can consume it without calling back
// into the pipeline.
//
// Series come out in legend order: by country, observed before predictions,
// then by prediction id. Colors come from [styles.Assigner] and depend only
// on the series identity, never on that order.
//
//	res := transform.Apply(records, topts)
//	c := chart.NewBuilder(chart.Options{Axes: chart.AxesLog}).Build(res, topts)
package chart
