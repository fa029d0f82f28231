package series

import (
	"maps"
	"sort"
)

// Repository is an immutable snapshot of every record fetched so far plus the
// list of prediction vintages. The zero value is an empty repository.
//
// Mutators return a new snapshot; the receiver is never modified, so a
// snapshot can be shared between the session loop and a render in progress.
type Repository struct {
	records  map[Key]Record
	vintages []Vintage
}

// NewRepository returns an empty repository.
func NewRepository() Repository {
	return Repository{}
}

// Len returns the number of records.
func (r Repository) Len() int { return len(r.records) }

// Lookup returns the record stored under k.
func (r Repository) Lookup(k Key) (Record, bool) {
	rec, ok := r.records[k]
	return rec, ok
}

// Observed returns the observed series of country.
func (r Repository) Observed(country string) (*Observed, bool) {
	rec, ok := r.records[ObservedKey(country)]
	if !ok {
		return nil, false
	}
	obs, ok := rec.(*Observed)
	return obs, ok
}

// Prediction returns one prediction of country.
func (r Repository) Prediction(country, predictionID string) (*Prediction, bool) {
	rec, ok := r.records[PredictionKey(country, predictionID)]
	if !ok {
		return nil, false
	}
	p, ok := rec.(*Prediction)
	return p, ok
}

// PredictionsFor returns every stored prediction of country, ordered by id.
func (r Repository) PredictionsFor(country string) []*Prediction {
	var out []*Prediction
	for k, rec := range r.records {
		if k.Country != country {
			continue
		}
		if p, ok := rec.(*Prediction); ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PredictionID < out[j].PredictionID })
	return out
}

// Keys returns the stored keys in [Key.Less] order.
func (r Repository) Keys() []Key {
	keys := make([]Key, 0, len(r.records))
	for k := range r.records {
		keys = append(keys, k)
	}
	SortKeys(keys)
	return keys
}

// Vintages returns a copy of the vintage list, ordered by publish date.
func (r Repository) Vintages() []Vintage {
	return append([]Vintage(nil), r.vintages...)
}

// With returns a snapshot that also holds recs. A record whose key is already
// present is ignored: once inserted, records are never replaced.
func (r Repository) With(recs ...Record) Repository {
	next := Repository{
		records:  make(map[Key]Record, len(r.records)+len(recs)),
		vintages: r.vintages,
	}
	maps.Copy(next.records, r.records)
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		if _, exists := next.records[rec.Key()]; exists {
			continue
		}
		next.records[rec.Key()] = rec
	}
	return next
}

// WithVintages returns a snapshot whose vintage list is vs.
func (r Repository) WithVintages(vs []Vintage) Repository {
	sorted := append([]Vintage(nil), vs...)
	SortVintages(sorted)
	return Repository{records: r.records, vintages: sorted}
}
