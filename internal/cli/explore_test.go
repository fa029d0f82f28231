package cli

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/covidchart/pkg/pipeline"
	"github.com/matzehuels/covidchart/pkg/series"
	"github.com/matzehuels/covidchart/pkg/source/sourcetest"
	"github.com/matzehuels/covidchart/pkg/timeline"
	"github.com/matzehuels/covidchart/pkg/transform"
)

// drive runs cmd and every command it leads to, feeding the messages back
// into m. Quit and playback ticks are dropped.
func drive(m *exploreModel, cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil, tea.QuitMsg, playMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			_, next := m.Update(msg)
			queue = append(queue, next)
		}
	}
}

func press(m *exploreModel, key tea.KeyMsg) {
	_, cmd := m.Update(key)
	drive(m, cmd)
}

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func newTestModel(t *testing.T, sel series.Selection, start *int64) *exploreModel {
	t.Helper()
	m := newExploreModel(context.Background(), exploreConfig{
		src:   sourcetest.Memory(),
		sel:   sel,
		opts:  pipeline.Options{},
		start: start,
	})
	drive(m, m.Init())
	return m
}

func seriesIDs(m *exploreModel) []string {
	if m.chart == nil {
		return nil
	}
	ids := make([]string, len(m.chart.Series))
	for i, s := range m.chart.Series {
		ids[i] = s.ID
	}
	return ids
}

func TestExploreScrubbing(t *testing.T) {
	m := newTestModel(t, series.NewSelection(series.ObservedKey("Italy")), nil)

	if m.scrubber.Len() != 2 {
		t.Fatalf("marks = %d, want 2", m.scrubber.Len())
	}
	if got := seriesIDs(m); len(got) != 1 {
		t.Fatalf("before scrubbing series = %v, want observed only", got)
	}
	if !strings.Contains(m.View(), "choose a prediction batch") {
		t.Errorf("view should prompt for a batch before the first move")
	}

	press(m, tea.KeyMsg{Type: tea.KeyRight})
	late := series.PredictionKey("Italy", sourcetest.Late)
	if !m.sel.Has(late) {
		t.Errorf("selection = %v, want %s", m.sel, late)
	}
	if got := seriesIDs(m); len(got) != 2 {
		t.Errorf("series = %v, want observed and late prediction", got)
	}
	if m.resolver.Pending() != 0 {
		t.Errorf("pending = %d after driving all fetches", m.resolver.Pending())
	}

	press(m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.sel.Has(late) || !m.sel.Has(series.PredictionKey("Italy", sourcetest.Early)) {
		t.Errorf("selection after left = %v", m.sel)
	}
	if !strings.Contains(m.View(), "predictions published 2020-03-29") {
		t.Errorf("view lacks the published date:\n%s", m.View())
	}
}

func TestExploreFirstMoveAppliesMark(t *testing.T) {
	m := newTestModel(t, series.NewSelection(series.ObservedKey("Italy")), nil)

	// The scrubber starts on the first mark, so left does not move it but
	// still applies that batch.
	press(m, tea.KeyMsg{Type: tea.KeyLeft})
	if !m.sel.Has(series.PredictionKey("Italy", sourcetest.Early)) {
		t.Errorf("selection = %v, want the early batch", m.sel)
	}
}

func TestExploreOptions(t *testing.T) {
	m := newTestModel(t, series.NewSelection(series.ObservedKey("Italy")), nil)

	press(m, runes("a"))
	if m.opts.Axis != transform.AxisRelative {
		t.Errorf("axis = %q, want relative", m.opts.Axis)
	}
	press(m, runes("s"))
	if m.opts.Scaling != transform.ScalingPerCapita {
		t.Errorf("scaling = %q, want per-capita", m.opts.Scaling)
	}
	if m.err != nil {
		t.Errorf("rebuild error: %v", m.err)
	}

	last := m.cursor
	press(m, runes("["))
	if m.cursor != max(last-1, 0) {
		t.Errorf("cursor = %d, want %d", m.cursor, max(last-1, 0))
	}
}

func TestExploreUnavailable(t *testing.T) {
	sel := series.NewSelection(series.ObservedKey("Italy"), series.ObservedKey("France"))
	m := newTestModel(t, sel, nil)

	if len(m.failed) != 1 {
		t.Fatalf("failed = %v, want France", m.failed)
	}
	if !strings.Contains(m.statusView(), "1 unavailable") {
		t.Errorf("status = %q", m.statusView())
	}
	if len(m.missing) != 1 || m.missing[0] != series.ObservedKey("France") {
		t.Errorf("missing = %v", m.missing)
	}
}

func TestExploreStartVintage(t *testing.T) {
	lateTS := series.Millis(sourcetest.Day(41))
	m := newTestModel(t, series.NewSelection(series.ObservedKey("Italy")), &lateTS)
	if m.scrubber.Value != lateTS || !m.follow {
		t.Errorf("value = %d follow = %v, want %d", m.scrubber.Value, m.follow, lateTS)
	}
	if !m.sel.Has(series.PredictionKey("Italy", sourcetest.Late)) {
		t.Errorf("selection = %v", m.sel)
	}

	// The first mark is already current, so starting there still applies it.
	var first int64
	m = newTestModel(t, series.NewSelection(series.ObservedKey("Italy")), &first)
	if !m.sel.Has(series.PredictionKey("Italy", sourcetest.Early)) {
		t.Errorf("selection = %v, want the early batch", m.sel)
	}
}

func TestExploreQuit(t *testing.T) {
	m := newTestModel(t, series.NewSelection(series.ObservedKey("Italy")), nil)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q should quit")
	}
}

func TestRenderScrubber(t *testing.T) {
	marks := timeline.Layout([]series.Vintage{
		{ID: sourcetest.Early, PublishedDate: sourcetest.Day(28), Countries: []string{"Italy"}},
		{ID: sourcetest.Late, PublishedDate: sourcetest.Day(41), Countries: []string{"Italy"}},
	}, []string{"Italy"}, 0)

	out := renderScrubber(marks, marks.Max, 20)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want track and labels", len(lines))
	}
	if !strings.HasPrefix(lines[0], "┼") || !strings.HasSuffix(lines[0], "●") {
		t.Errorf("track = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "3/29") || !strings.HasSuffix(lines[1], "4/11") {
		t.Errorf("labels = %q", lines[1])
	}

	if got := renderScrubber(timeline.Marks{}, 0, 20); !strings.Contains(got, "no predictions") {
		t.Errorf("empty scrubber = %q", got)
	}
}
