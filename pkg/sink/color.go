package sink

import (
	"fmt"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/matzehuels/covidchart/pkg/errors"
)

// parseColor reads "#rrggbb", "rrggbb" or "rgba(r, g, b, a)" with a in [0, 1].
func parseColor(s string) (drawing.Color, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if strings.HasPrefix(s, "rgba(") {
		var r, g, b uint8
		var a float64
		if _, err := fmt.Sscanf(s, "rgba(%d,%d,%d,%g)", &r, &g, &b, &a); err != nil || a < 0 || a > 1 {
			return drawing.Color{}, errors.New(errors.ErrCodeInvalidInput, "invalid color: %q", s)
		}
		return drawing.Color{R: r, G: g, B: b, A: uint8(a*255 + 0.5)}, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 || strings.Trim(strings.ToLower(hex), "0123456789abcdef") != "" {
		return drawing.Color{}, errors.New(errors.ErrCodeInvalidInput, "invalid color: %q", s)
	}
	return drawing.ColorFromHex(hex), nil
}
