// Package resolve maps a selection to the records held by a repository.
//
// A [Resolver] reports every selected key as either resolved or missing and
// asks its [Dispatcher] to fetch missing keys. At most one fetch per key is in
// flight: a key stays in the in-flight set until [Resolver.Complete] is
// called, whether the fetch succeeded or not.
//
// A Resolver is not safe for concurrent use. It belongs to the single
// goroutine that owns the repository snapshot (see package session).
package resolve

import (
	"sort"

	"github.com/matzehuels/covidchart/pkg/series"
)

// Dispatcher starts a fetch for a key. Dispatch must not block: it hands the
// key to a background worker and returns.
type Dispatcher interface {
	Dispatch(key series.Key)
}

// DispatchFunc adapts a function to [Dispatcher].
type DispatchFunc func(key series.Key)

// Dispatch calls f(key).
func (f DispatchFunc) Dispatch(key series.Key) { f(key) }

// Resolution is the outcome for one selected key.
type Resolution struct {
	Key     series.Key
	Record  series.Record // nil when Missing
	Missing bool
}

// Resolver tracks in-flight fetches across resolutions.
type Resolver struct {
	dispatcher Dispatcher
	inFlight   map[series.Key]struct{}
}

// New returns a resolver that dispatches missing keys to d. A nil d never
// fetches.
func New(d Dispatcher) *Resolver {
	return &Resolver{dispatcher: d, inFlight: make(map[series.Key]struct{})}
}

// Resolve looks up every key of sel in repo. Missing keys not already in
// flight are dispatched once. The result is sorted by country, then by
// prediction id with the observed key first.
func (r *Resolver) Resolve(sel series.Selection, repo series.Repository) []Resolution {
	keys := sel.Keys()
	out := make([]Resolution, 0, len(keys))
	for _, k := range keys {
		if rec, ok := repo.Lookup(k); ok {
			out = append(out, Resolution{Key: k, Record: rec})
			continue
		}
		out = append(out, Resolution{Key: k, Missing: true})
		r.request(k)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key.Less(out[j].Key) })
	return out
}

func (r *Resolver) request(k series.Key) {
	if _, ok := r.inFlight[k]; ok {
		return
	}
	r.inFlight[k] = struct{}{}
	if r.dispatcher != nil {
		r.dispatcher.Dispatch(k)
	}
}

// Complete removes k from the in-flight set. Call it when a fetch finishes,
// successfully or not; a still-missing key is dispatched again by the next
// Resolve.
func (r *Resolver) Complete(k series.Key) {
	delete(r.inFlight, k)
}

// InFlight reports whether a fetch for k is pending.
func (r *Resolver) InFlight(k series.Key) bool {
	_, ok := r.inFlight[k]
	return ok
}

// Pending returns the number of fetches in flight.
func (r *Resolver) Pending() int { return len(r.inFlight) }

// Records returns the resolved records of rs in order, dropping missing ones.
func Records(rs []Resolution) []series.Record {
	out := make([]series.Record, 0, len(rs))
	for _, res := range rs {
		if !res.Missing {
			out = append(out, res.Record)
		}
	}
	return out
}

// MissingKeys returns the keys of rs that were not resolved.
func MissingKeys(rs []Resolution) []series.Key {
	var out []series.Key
	for _, res := range rs {
		if res.Missing {
			out = append(out, res.Key)
		}
	}
	return out
}
