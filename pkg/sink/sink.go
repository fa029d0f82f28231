// Package sink writes a [chart.Chart] to bytes.
//
// JSON is the chart as is, for any front end that does its own drawing.
// PNG and SVG are drawn with go-chart: predictions switch from a solid to a
// dotted line at their split point, peak and split points get dot markers
// and the data bands are drawn as filled areas behind the curves.
package sink

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"

	"github.com/matzehuels/covidchart/pkg/chart"
	"github.com/matzehuels/covidchart/pkg/errors"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatPNG  = "png"
	FormatSVG  = "svg"
)

// Formats lists every supported format.
var Formats = []string{FormatJSON, FormatPNG, FormatSVG}

// Default image size in pixels.
const (
	DefaultWidth  = 1000
	DefaultHeight = 600
)

// Options sizes image output.
type Options struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// SetDefaults fills zero sizes.
func (o *Options) SetDefaults() {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
}

// ValidateFormat checks a format name.
func ValidateFormat(format string) error {
	if slices.Contains(Formats, format) {
		return nil
	}
	return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)", format, strings.Join(Formats, ", "))
}

// ContentType returns the MIME type of format.
func ContentType(format string) string {
	switch format {
	case FormatPNG:
		return "image/png"
	case FormatSVG:
		return "image/svg+xml"
	default:
		return "application/json"
	}
}

// Render writes c in format.
func Render(c *chart.Chart, format string, opts Options) ([]byte, error) {
	switch format {
	case FormatJSON:
		return JSON(c)
	case FormatPNG:
		return PNG(c, opts)
	case FormatSVG:
		return SVG(c, opts)
	}
	return nil, ValidateFormat(format)
}

// JSON returns the indented JSON encoding of c.
func JSON(c *chart.Chart) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode chart")
	}
	return buf.Bytes(), nil
}
