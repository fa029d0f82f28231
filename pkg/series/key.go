package series

import (
	"fmt"
	"sort"
	"strings"

	"github.com/matzehuels/covidchart/pkg/errors"
)

// nullPrediction is how an observed key prints its missing prediction id.
const nullPrediction = "null"

// Key identifies one selectable record: a country, optionally narrowed to one
// prediction. An empty PredictionID selects the observed series.
type Key struct {
	Country      string `json:"country"`
	PredictionID string `json:"prediction_id,omitempty"`
}

// ObservedKey returns the key of the observed series of country.
func ObservedKey(country string) Key { return Key{Country: country} }

// PredictionKey returns the key of one prediction for country.
func PredictionKey(country, predictionID string) Key {
	return Key{Country: country, PredictionID: predictionID}
}

// IsObserved reports whether the key selects an observed series.
func (k Key) IsObserved() bool { return k.PredictionID == "" }

// Kind returns the record kind the key selects.
func (k Key) Kind() Kind {
	if k.IsObserved() {
		return KindObserved
	}
	return KindPrediction
}

// String formats the key as "<country>/<prediction>" with "null" for observed keys.
func (k Key) String() string {
	if k.IsObserved() {
		return k.Country + "/" + nullPrediction
	}
	return k.Country + "/" + k.PredictionID
}

// Validate checks both parts of the key.
func (k Key) Validate() error {
	if err := errors.ValidateCountryCode(k.Country); err != nil {
		return err
	}
	if !k.IsObserved() {
		return errors.ValidatePredictionID(k.PredictionID)
	}
	return nil
}

// Less orders keys by country, then observed before predictions, then by
// prediction id.
func (k Key) Less(o Key) bool {
	if k.Country != o.Country {
		return k.Country < o.Country
	}
	if k.IsObserved() != o.IsObserved() {
		return k.IsObserved()
	}
	return k.PredictionID < o.PredictionID
}

// ParseKey parses "Italy", "Italy/null" or "Italy/bk_20200411".
func ParseKey(s string) (Key, error) {
	country, pred, _ := strings.Cut(strings.TrimSpace(s), "/")
	k := Key{Country: country}
	if pred != "" && pred != nullPrediction {
		k.PredictionID = pred
	}
	if err := k.Validate(); err != nil {
		return Key{}, errors.Wrap(errors.ErrCodeInvalidSelection, err, "parse selection %q", s)
	}
	return k, nil
}

// SortKeys sorts keys in place using [Key.Less].
func SortKeys(keys []Key) {
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
}

// Selection is an ordered set of keys. Uniqueness is on the whole key, so a
// country can be selected as observed data and under several predictions at
// once. Selections are values: every mutator returns a new Selection.
type Selection struct {
	keys []Key
}

// NewSelection builds a selection from keys, dropping duplicates.
func NewSelection(keys ...Key) Selection {
	var s Selection
	for _, k := range keys {
		s = s.Add(k)
	}
	return s
}

// ParseSelection parses a list of keys in [ParseKey] syntax.
func ParseSelection(items []string) (Selection, error) {
	keys := make([]Key, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item) == "" {
			continue
		}
		k, err := ParseKey(item)
		if err != nil {
			return Selection{}, err
		}
		keys = append(keys, k)
	}
	return NewSelection(keys...), nil
}

// Len returns the number of selected keys.
func (s Selection) Len() int { return len(s.keys) }

// Keys returns a copy of the selected keys in insertion order.
func (s Selection) Keys() []Key {
	return append([]Key(nil), s.keys...)
}

// Has reports whether k is selected.
func (s Selection) Has(k Key) bool {
	for _, x := range s.keys {
		if x == k {
			return true
		}
	}
	return false
}

// Add returns a selection that includes k.
func (s Selection) Add(k Key) Selection {
	if s.Has(k) {
		return s
	}
	keys := make([]Key, len(s.keys), len(s.keys)+1)
	copy(keys, s.keys)
	return Selection{keys: append(keys, k)}
}

// Remove returns a selection without k.
func (s Selection) Remove(k Key) Selection {
	keys := make([]Key, 0, len(s.keys))
	for _, x := range s.keys {
		if x != k {
			keys = append(keys, x)
		}
	}
	return Selection{keys: keys}
}

// Toggle adds k when absent and removes it when present.
func (s Selection) Toggle(k Key) Selection {
	if s.Has(k) {
		return s.Remove(k)
	}
	return s.Add(k)
}

// WithoutPredictions returns only the observed keys.
func (s Selection) WithoutPredictions() Selection {
	keys := make([]Key, 0, len(s.keys))
	for _, k := range s.keys {
		if k.IsObserved() {
			keys = append(keys, k)
		}
	}
	return Selection{keys: keys}
}

// Countries returns the distinct selected countries, sorted.
func (s Selection) Countries() []string {
	seen := make(map[string]bool, len(s.keys))
	var out []string
	for _, k := range s.keys {
		if !seen[k.Country] {
			seen[k.Country] = true
			out = append(out, k.Country)
		}
	}
	sort.Strings(out)
	return out
}

// String joins the keys with commas.
func (s Selection) String() string {
	parts := make([]string, len(s.keys))
	for i, k := range s.keys {
		parts[i] = k.String()
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
}
