// Package pkg provides the core libraries for covidchart, a viewer for
// observed COVID-19 case counts and the model predictions published for them.
//
// # Overview
//
// A chart compares the cumulative cases of selected countries with the
// predictions a model published on given dates. Each publish date is a
// vintage; moving a timeline scrubber across vintages swaps the predictions on
// the chart, so one can see how the forecasts evolved. The pkg directory is
// organized into four areas:
//
//  1. Data - [series], [source] and its backends, [resolve]
//  2. Charting - [transform], [chart], [styles], [sink], [pipeline]
//  3. Interaction - [timeline], [session]
//  4. Infrastructure - [cache], [config], [errors], [httputil], [observability]
//
// # Architecture
//
// The data flow of one chart:
//
//	Prediction service / dataset file / MongoDB
//	         ↓
//	    [source] package (fetch one series per key)
//	         ↓
//	    [series] package (immutable repository of fetched records)
//	         ↓
//	    [transform] package (align on the x axis, scale values)
//	         ↓
//	    [chart] package (series, axes, legend, colors)
//	         ↓
//	    [sink] package (SVG/PNG/JSON)
//
// [session] ties these together: it owns the selection, asks [resolve] which
// keys still need fetching and rebuilds the chart whenever a fetch lands.
//
// # Quick Start
//
//	src, _ := rest.New(rest.Options{})
//	s := session.New(session.Options{Source: src})
//	defer s.Close()
//
//	_ = s.Select(ctx, series.ObservedKey("Italy"), series.PredictionKey("Italy", "bk_20200411"))
//	_ = s.Settle(ctx)
//
//	res, _ := s.Render(ctx, "svg")
//	os.WriteFile("italy.svg", res.Artifacts["svg"], 0o644)
//
// # Main Packages
//
// ## Data
//
// [series] - Keys, selections, records, vintages and the repository that
// holds what has been fetched. Every mutator returns a new value.
//
// [source] - The Source interface with REST, file and MongoDB backends, plus
// the wire format shared by all of them.
//
// [resolve] - Tracks which selected keys are neither fetched nor in flight and
// dispatches exactly one fetch per key.
//
// ## Charting
//
// [transform] - Calendar and relative x axes, absolute, per-capita and
// same-peak scaling.
//
// [chart] - Builds the renderer-neutral chart from transformed series.
//
// [sink] - Draws a chart as SVG or PNG with go-chart, or encodes it as JSON.
//
// [pipeline] - Options, the pure Build step and a Runner that caches rendered
// artifacts by chart hash.
//
// ## Interaction
//
// [timeline] - Lays out vintage marks and moves the scrubber across them.
//
// [session] - Single-writer actor behind the CLI and HTTP server.
//
// ## Infrastructure
//
// [cache] - File, Redis and null caches behind one interface, with Prometheus
// instrumentation.
//
// [config] - TOML configuration and the factories that open the configured
// source and cache.
//
// # Testing
//
//	go test ./pkg/...                    # All tests
//	go test -run Example ./pkg/...       # Examples only
//	go test -tags integration ./pkg/...  # Include Redis and MongoDB tests
package pkg
