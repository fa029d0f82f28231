package chart

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Tooltip returns the hover text for x: a header naming the day or date and
// one "label: value" line per series with a point at x. Values are rounded
// to whole cases.
func Tooltip(c *Chart, x float64) string {
	var b strings.Builder
	if c.XAxis.Formatter == FormatDate {
		b.WriteString(time.UnixMilli(int64(x)).UTC().Format(DefaultDateLayout))
	} else {
		b.WriteString(c.XAxis.Format(x))
	}
	for _, s := range c.Series {
		p, ok := s.At(x)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n%s: %d", s.Label, int64(math.Round(p.Y)))
	}
	return b.String()
}

// Xs returns the distinct x values of all series in ascending order.
func Xs(c *Chart) []float64 {
	seen := make(map[float64]bool)
	var out []float64
	for _, s := range c.Series {
		for _, p := range s.Points {
			if !seen[p.X] {
				seen[p.X] = true
				out = append(out, p.X)
			}
		}
	}
	sort.Float64s(out)
	return out
}
