package series

import (
	"slices"
	"sort"
	"time"
)

// Vintage is one batch of predictions published on the same date.
type Vintage struct {
	ID            string    `json:"id"`
	PublishedDate time.Time `json:"published_date"`
	Label         string    `json:"label,omitempty"`
	Countries     []string  `json:"countries"`
}

// HasCountry reports whether the vintage carries a prediction for country.
func (v Vintage) HasCountry(country string) bool {
	return slices.Contains(v.Countries, country)
}

// SortVintages orders vintages by publish date, then id.
func SortVintages(vs []Vintage) {
	sort.Slice(vs, func(i, j int) bool {
		if !vs[i].PublishedDate.Equal(vs[j].PublishedDate) {
			return vs[i].PublishedDate.Before(vs[j].PublishedDate)
		}
		return vs[i].ID < vs[j].ID
	})
}
