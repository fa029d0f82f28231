// Package styles assigns colors and dash patterns to chart series.
//
// Colors are a pure function of (country, kind): toggling or reordering
// other series never recolors an existing one. A country gets one color for
// its observed curve and usually a different one for its predictions.
package styles

import (
	"unicode/utf16"

	"github.com/matzehuels/covidchart/pkg/series"
)

// Dash describes how a series line is stroked.
type Dash string

const (
	// DashSolid draws the whole line solid.
	DashSolid Dash = "solid"
	// DashLineThenDot draws solid up to the split point and dotted after it.
	DashLineThenDot Dash = "line-then-dot"
)

// DefaultPalette is the ten-color series palette.
var DefaultPalette = []string{
	"#7cb5ec", "#434348", "#90ed7d", "#f7a35c", "#8085e9",
	"#f15c80", "#e4d354", "#2b908f", "#f45b5b", "#91e8e1",
}

// BandPalette colors the "data existed up to here" background bands, from the
// outermost (latest) band inwards.
var BandPalette = []string{
	"rgba(68, 170, 213, 0.1)",
	"rgba(68, 170, 213, 0.2)",
	"rgba(68, 170, 213, 0.3)",
}

// Style is the visual assignment of one series.
type Style struct {
	Color string `json:"color"`
	Dash  Dash   `json:"dash"`
}

// Assigner maps series identities to styles using a fixed palette.
type Assigner struct {
	palette []string
}

// NewAssigner returns an assigner over palette; an empty palette selects
// [DefaultPalette].
func NewAssigner(palette []string) *Assigner {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	return &Assigner{palette: append([]string(nil), palette...)}
}

// For returns the style of the series of kind for country.
func (a *Assigner) For(country string, kind series.Kind) Style {
	return Style{Color: a.Color(country, kind), Dash: DashFor(kind)}
}

// Color returns palette[hash("<country>/<kind>") mod len(palette)].
func (a *Assigner) Color(country string, kind series.Kind) string {
	h := Hash(country + "/" + string(kind))
	return a.palette[h%uint64(len(a.palette))]
}

// DashFor returns the dash pattern of kind.
func DashFor(kind series.Kind) Dash {
	if kind == series.KindPrediction {
		return DashLineThenDot
	}
	return DashSolid
}

// BandColor returns the band color of the i-th band in descending boundary order.
func BandColor(i int) string {
	return BandPalette[i%len(BandPalette)]
}

// Hash is the 32-bit polynomial rolling hash h = h*31 + c over the UTF-16
// code units of s, seeded with 0 and wrapping like an int32. The signed
// result is shifted by 2^31 so it is never negative.
func Hash(s string) uint64 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(c)
	}
	return uint64(int64(h) + 1<<31)
}
