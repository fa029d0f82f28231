package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/covidchart/pkg/pipeline"
)

// stdout receives command output. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleLink for URLs.
	StyleLink = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconCached  = "cached"
	iconFresh   = "fresh"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(stdout, styleIconSuccess.Render(iconSuccess)+" "+msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(stdout, styleIconError.Render(iconError)+" "+msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(stdout, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(stdout, styleIconInfo.Render(iconInfo)+" "+msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(stdout, "  "+StyleDim.Render(msg))
}

// =============================================================================
// File Output
// =============================================================================

// printFile prints a file output line.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// =============================================================================
// Key-Value Output
// =============================================================================

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(stdout, keyStyle.Render(key)+" "+StyleValue.Render(value))
}

// =============================================================================
// Stats Display
// =============================================================================

// printStats prints chart statistics on a single line.
func printStats(res *pipeline.Result) {
	parts := []string{fmt.Sprintf("%d series", res.Stats.Plotted)}
	if res.Stats.Skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", res.Stats.Skipped))
	}
	if n := len(res.Missing); n > 0 {
		parts = append(parts, fmt.Sprintf("%d missing", n))
	}
	parts = append(parts, res.Stats.BuildTime.Round(time.Millisecond).String())

	status := iconFresh
	statusStyle := styleComputed
	if res.CacheInfo.RenderHit {
		status = iconCached
		statusStyle = styleCached
	}

	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	line += StyleDim.Render(" · ") + statusStyle.Render(status)
	fmt.Fprintln(stdout, line)
}

// printProblems lists skipped, failed and missing series.
func printProblems(res *pipeline.Result, failed map[string]string) {
	for _, sk := range res.Chart.Skipped {
		printWarning("%s skipped: %s", sk.ID, sk.Message)
	}
	for _, k := range res.Missing {
		if msg, ok := failed[k.String()]; ok {
			printWarning("%s unavailable: %s", k, msg)
			continue
		}
		printWarning("%s not fetched yet", k)
	}
}

// =============================================================================
// Commands & Next Steps
// =============================================================================

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// =============================================================================
// Utilities
// =============================================================================

// printNewline prints an empty line.
func printNewline() {
	fmt.Fprintln(stdout)
}

// printLine prints s as is.
func printLine(s string) {
	fmt.Fprintln(stdout, s)
}
