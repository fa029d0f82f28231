package chart

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/matzehuels/covidchart/pkg/errors"
	"github.com/matzehuels/covidchart/pkg/series"
	"github.com/matzehuels/covidchart/pkg/styles"
	"github.com/matzehuels/covidchart/pkg/transform"
)

// AxesType selects linear or logarithmic scales for both axes.
type AxesType string

const (
	AxesLinear AxesType = "linear" // both axes linear
	AxesLog    AxesType = "log"    // logarithmic y axis
	AxesLogLog AxesType = "loglog" // both axes logarithmic
)

// ValidateAxesType checks an axes type name.
func ValidateAxesType(a AxesType) error {
	switch a {
	case AxesLinear, AxesLog, AxesLogLog:
		return nil
	}
	return errors.New(errors.ErrCodeInvalidInput, "invalid axes: %q (must be one of: linear, log, loglog)", a)
}

// ScaleType is the scale of a single axis.
type ScaleType string

const (
	ScaleLinear ScaleType = "linear"
	ScaleLog    ScaleType = "log"
)

// Formatter names how axis tick values are printed.
type Formatter string

const (
	FormatValue   Formatter = "{value}"  // the number as is
	FormatPercent Formatter = "{value}%" // the number followed by %
	FormatDay     Formatter = "day"      // "Day N"
	FormatDate    Formatter = "date"     // x is epoch millis, printed with the date layout
)

// Axis describes one chart axis.
type Axis struct {
	Type       ScaleType `json:"type"`
	Title      string    `json:"title"`
	Formatter  Formatter `json:"formatter"`
	DateLayout string    `json:"date_layout,omitempty"`
}

// Format renders a tick value with the axis formatter.
func (a Axis) Format(v float64) string {
	switch a.Formatter {
	case FormatDay:
		return fmt.Sprintf("Day %s", number(v))
	case FormatDate:
		layout := a.DateLayout
		if layout == "" {
			layout = DefaultTickLayout
		}
		return time.UnixMilli(int64(v)).UTC().Format(layout)
	case FormatPercent:
		return number(v) + "%"
	default:
		return number(v)
	}
}

func number(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return fmt.Sprintf("%d", int64(v))
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

// Band is a background band spanning [From, To] on the x axis, marking how
// far real data reached when a prediction was published.
type Band struct {
	From       float64 `json:"from"`
	To         float64 `json:"to"`
	StyleIndex int     `json:"style_index"`
	Color      string  `json:"color"`
}

// Point is one plotted point.
type Point = transform.Point

// Series is one styled line of the chart.
type Series struct {
	ID      string      `json:"id"`
	Country string      `json:"country"`
	Kind    series.Kind `json:"kind"`
	Label   string      `json:"label"`
	Color   string      `json:"color"`
	Dash    styles.Dash `json:"dash"`
	Points  []Point     `json:"points"`
	// SplitAt is the x where a prediction turns from solid to dotted.
	SplitAt *float64 `json:"split_at,omitempty"`
	PeakX   *float64 `json:"peak_x,omitempty"`
}

// Key returns the series key parsed back from its id.
func (s Series) Key() series.Key {
	k, _ := series.ParseKey(s.ID)
	return k
}

// At returns the point of s at x.
func (s Series) At(x float64) (Point, bool) {
	for _, p := range s.Points {
		if p.X == x {
			return p, true
		}
	}
	return Point{}, false
}

// Skipped names a selected series the chart could not draw.
type Skipped struct {
	ID      string      `json:"id"`
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

// Chart is the declarative description of one rendered frame.
type Chart struct {
	Title   string    `json:"title"`
	XAxis   Axis      `json:"x_axis"`
	YAxis   Axis      `json:"y_axis"`
	Bands   []Band    `json:"bands"`
	Series  []Series  `json:"series"`
	Skipped []Skipped `json:"skipped,omitempty"`
}

// Countries returns the distinct countries of the plotted series in order.
func (c *Chart) Countries() []string {
	var out []string
	seen := make(map[string]bool)
	for _, s := range c.Series {
		if !seen[s.Country] {
			seen[s.Country] = true
			out = append(out, s.Country)
		}
	}
	return out
}

// Empty reports whether the chart has nothing to plot.
func (c *Chart) Empty() bool { return len(c.Series) == 0 }
