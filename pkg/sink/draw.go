package sink

import (
	"bytes"
	"math"
	"sort"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/matzehuels/covidchart/pkg/chart"
	"github.com/matzehuels/covidchart/pkg/errors"
	"github.com/matzehuels/covidchart/pkg/styles"
)

const (
	lineWidth   = 2
	markerWidth = 5
)

var dotted = []float64{2, 4}

// PNG draws c as a PNG image.
func PNG(c *chart.Chart, opts Options) ([]byte, error) {
	return draw(c, opts, gochart.PNG)
}

// SVG draws c as an SVG document.
func SVG(c *chart.Chart, opts Options) ([]byte, error) {
	return draw(c, opts, gochart.SVG)
}

func draw(c *chart.Chart, opts Options, provider gochart.RendererProvider) ([]byte, error) {
	opts.SetDefaults()
	g, err := toGoChart(c, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := g.Render(provider, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "draw chart")
	}
	return buf.Bytes(), nil
}

// scale maps chart values onto drawn values. Log scales draw log10(v) and
// cannot show v <= 0.
type scale struct{ log bool }

func (s scale) apply(v float64) (float64, bool) {
	if !s.log {
		return v, true
	}
	if v <= 0 {
		return 0, false
	}
	return math.Log10(v), true
}

func (s scale) invert(v float64) float64 {
	if s.log {
		return math.Pow(10, v)
	}
	return v
}

type bounds struct{ min, max float64 }

func (b *bounds) add(v float64) {
	b.min, b.max = math.Min(b.min, v), math.Max(b.max, v)
}

func (b bounds) empty() bool { return b.min > b.max }

func newBounds() bounds { return bounds{min: math.Inf(1), max: math.Inf(-1)} }

// line is one drawn polyline.
type line struct {
	xs, ys []float64
}

func (l *line) add(x, y float64) {
	l.xs = append(l.xs, x)
	l.ys = append(l.ys, y)
}

func toGoChart(c *chart.Chart, opts Options) (*gochart.Chart, error) {
	xs, ys := scale{c.XAxis.Type == chart.ScaleLog}, scale{c.YAxis.Type == chart.ScaleLog}
	xb, yb := newBounds(), newBounds()

	var (
		curves  []gochart.Series
		markers []gochart.Series
		legend  []gochart.Series
	)
	for _, s := range c.Series {
		color, err := parseColor(s.Color)
		if err != nil {
			return nil, err
		}
		solid, dots, marks := split(s, xs, ys)
		for _, l := range []line{solid, dots, marks} {
			for i := range l.xs {
				xb.add(l.xs[i])
				yb.add(l.ys[i])
			}
		}

		style := gochart.Style{StrokeColor: color, StrokeWidth: lineWidth}
		named := false
		if len(solid.xs) > 0 {
			ls := gochart.ContinuousSeries{Name: s.Label, Style: style, XValues: solid.xs, YValues: solid.ys}
			curves = append(curves, ls)
			legend = append(legend, ls)
			named = true
		}
		if len(dots.xs) > 0 {
			ds := style
			ds.StrokeDashArray = dotted
			ls := gochart.ContinuousSeries{Name: s.Label, Style: ds, XValues: dots.xs, YValues: dots.ys}
			curves = append(curves, ls)
			if !named {
				legend = append(legend, ls)
			}
		}
		if len(marks.xs) > 0 {
			markers = append(markers, gochart.ContinuousSeries{
				Style: gochart.Style{
					StrokeColor: drawing.ColorTransparent,
					StrokeWidth: 0,
					DotWidth:    markerWidth,
					DotColor:    color,
				},
				XValues: marks.xs,
				YValues: marks.ys,
			})
		}
	}

	if xb.empty() {
		xb = bounds{0, 1}
	}
	if yb.empty() {
		yb = bounds{0, 1}
	}
	if !ys.log {
		yb.add(0)
	}
	xb, yb = pad(xb), pad(yb)

	bandSeries, err := bandsOf(c.Bands, xs, xb, yb)
	if err != nil {
		return nil, err
	}

	all := append(append(bandSeries, curves...), markers...)
	if len(all) == 0 {
		// go-chart refuses to draw without a series.
		all = append(all, gochart.ContinuousSeries{
			Style:   gochart.Style{StrokeColor: drawing.ColorTransparent},
			XValues: []float64{xb.min, xb.max},
			YValues: []float64{yb.min, yb.min},
		})
	}

	g := &gochart.Chart{
		Title:      c.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      xAxis(c.XAxis, xs, xb),
		YAxis:      yAxis(c.YAxis, ys, yb),
		Series:     all,
	}
	if len(legend) > 0 {
		// The legend reads a chart of its own so dotted halves, markers and
		// bands stay out of it.
		labels := &gochart.Chart{Series: legend}
		g.Elements = []gochart.Renderable{gochart.Legend(labels)}
	}
	return g, nil
}

// split cuts s at its split point into a solid and a dotted line and
// collects its marker points. Points a log scale cannot show are dropped.
func split(s chart.Series, xs, ys scale) (solid, dots, marks line) {
	dashed := s.Dash == styles.DashLineThenDot && s.SplitAt != nil
	for _, p := range s.Points {
		x, okx := xs.apply(p.X)
		y, oky := ys.apply(p.Y)
		if !okx || !oky {
			continue
		}
		switch {
		case !dashed || p.X < *s.SplitAt:
			solid.add(x, y)
		case p.X == *s.SplitAt:
			// The split point ends the solid part and starts the dotted one.
			solid.add(x, y)
			dots.add(x, y)
		default:
			dots.add(x, y)
		}
		if p.IsPeakMarker || p.IsSplitMarker {
			marks.add(x, y)
		}
	}
	return solid, dots, marks
}

func bandsOf(bands []chart.Band, xs scale, xb, yb bounds) ([]gochart.Series, error) {
	out := make([]gochart.Series, 0, len(bands))
	for _, b := range bands {
		to, ok := xs.apply(b.To)
		if !ok {
			continue
		}
		from, ok := xs.apply(b.From)
		if !ok || from < xb.min {
			from = xb.min
		}
		to = math.Min(to, xb.max)
		if to <= from {
			continue
		}
		color, err := parseColor(b.Color)
		if err != nil {
			return nil, err
		}
		out = append(out, gochart.ContinuousSeries{
			Style: gochart.Style{
				StrokeColor: drawing.ColorTransparent,
				StrokeWidth: 0,
				FillColor:   color,
			},
			XValues: []float64{from, to},
			YValues: []float64{yb.max, yb.max},
		})
	}
	return out, nil
}

func pad(b bounds) bounds {
	if b.max-b.min < 1e-9 {
		return bounds{b.min - 1, b.max + 1}
	}
	return b
}

func xAxis(a chart.Axis, s scale, b bounds) gochart.XAxis {
	ax := gochart.XAxis{
		Name:           a.Title,
		Range:          &gochart.ContinuousRange{Min: b.min, Max: b.max},
		ValueFormatter: formatter(a, s),
	}
	if s.log {
		ax.Ticks = logTicks(a, b)
	}
	return ax
}

func yAxis(a chart.Axis, s scale, b bounds) gochart.YAxis {
	ax := gochart.YAxis{
		Name:           a.Title,
		Range:          &gochart.ContinuousRange{Min: b.min, Max: b.max},
		ValueFormatter: formatter(a, s),
	}
	if s.log {
		ax.Ticks = logTicks(a, b)
	}
	return ax
}

func formatter(a chart.Axis, s scale) gochart.ValueFormatter {
	return func(v interface{}) string {
		f, ok := v.(float64)
		if !ok {
			return ""
		}
		return a.Format(math.Round(s.invert(f)*100) / 100)
	}
}

// logTicks places a tick at every power of ten inside b, which holds log10
// values.
func logTicks(a chart.Axis, b bounds) []gochart.Tick {
	var ticks []gochart.Tick
	for e := math.Ceil(b.min); e <= math.Floor(b.max); e++ {
		ticks = append(ticks, gochart.Tick{Value: e, Label: a.Format(math.Pow(10, e))})
	}
	if len(ticks) < 2 {
		ticks = []gochart.Tick{
			{Value: b.min, Label: a.Format(math.Round(math.Pow(10, b.min)))},
			{Value: b.max, Label: a.Format(math.Round(math.Pow(10, b.max)))},
		}
	}
	sort.Slice(ticks, func(i, j int) bool { return ticks[i].Value < ticks[j].Value })
	return ticks
}
