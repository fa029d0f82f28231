package cli

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/covidchart/pkg/errors"
	"github.com/matzehuels/covidchart/pkg/series"
	"github.com/matzehuels/covidchart/pkg/timeline"
)

const (
	defaultScrubberWidth = 600 // pixels, as a browser would lay it out
	scrubberColumns      = 72
)

// timelineCommand prints the scrubber marks for a set of countries.
func (c *CLI) timelineCommand() *cobra.Command {
	var (
		width  float64
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "timeline COUNTRY...",
		Short: "Lay out the prediction scrubber for countries",
		Long: `Lay out one scrubber mark per prediction publish date of the given countries.
Labels that would overlap at --width pixels are hidden.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			countries := splitArgs(args)
			for _, code := range countries {
				if err := errors.ValidateCountryCode(code); err != nil {
					return err
				}
			}
			vs, err := c.listVintages(cmd.Context(), "")
			if err != nil {
				return err
			}
			opts := c.conf().Chart.Timeline()
			opts.Width = width
			marks := opts.Layout(vs, countries)

			if asJSON {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(marks)
			}
			printMarks(marks)
			return nil
		},
	}
	cmd.Flags().Float64Var(&width, "width", defaultScrubberWidth, "scrubber width in pixels")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printMarks(m timeline.Marks) {
	if m.Len() == 0 {
		printInfo("No predictions published for these countries")
		return
	}
	printLine(renderScrubber(m, m.Max, scrubberColumns))
	printNewline()
	for _, mk := range m.Marks {
		label := mk.Label
		if !mk.Visible {
			label = StyleDim.Render(label + " (hidden)")
		}
		printKeyValue(time.UnixMilli(mk.Timestamp).UTC().Format(series.DateLayout), label)
	}
}

// renderScrubber draws marks as a track of cols characters with the mark at
// value highlighted and the visible labels underneath. A label that would
// run into the previous one is left out.
func renderScrubber(m timeline.Marks, value int64, cols int) string {
	if m.Len() == 0 || cols < 2 {
		return StyleDim.Render("no predictions")
	}
	track := []rune(strings.Repeat("─", cols))
	labels := []rune(strings.Repeat(" ", cols))
	nextFree := 0
	current := -1
	for _, mk := range m.Marks {
		i := int(math.Round(m.Offset(mk.Timestamp, float64(cols-1))))
		track[i] = '┼'
		if mk.Timestamp == value {
			current = i
		}
		text := []rune(mk.Text())
		if len(text) == 0 || i < nextFree {
			continue
		}
		start := min(i, cols-len(text))
		if start < nextFree || start < 0 {
			continue
		}
		copy(labels[start:], text)
		nextFree = start + len(text) + 1
	}

	var b strings.Builder
	for i, r := range track {
		if i == current {
			b.WriteString(StyleHighlight.Render("●"))
			continue
		}
		b.WriteString(StyleDim.Render(string(r)))
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimRight(string(labels), " "))
	return b.String()
}

func splitArgs(args []string) []string {
	var out []string
	for _, a := range args {
		for _, part := range strings.Split(a, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
