package cli

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/covidchart/pkg/chart"
	"github.com/matzehuels/covidchart/pkg/pipeline"
	"github.com/matzehuels/covidchart/pkg/resolve"
	"github.com/matzehuels/covidchart/pkg/series"
	"github.com/matzehuels/covidchart/pkg/source"
	"github.com/matzehuels/covidchart/pkg/styles"
	"github.com/matzehuels/covidchart/pkg/timeline"
	"github.com/matzehuels/covidchart/pkg/transform"
)

const (
	defaultSessionName = "last"
	playInterval       = 700 * time.Millisecond
	// cellPixels converts terminal columns to the pixel widths the mark
	// layout works in.
	cellPixels = 8
)

var (
	exploreTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	exploreHelpStyle  = lipgloss.NewStyle().Foreground(colorDim)
	exploreErrStyle   = lipgloss.NewStyle().Foreground(colorRed)
)

// exploreCommand creates the interactive scrubber.
func (c *CLI) exploreCommand() *cobra.Command {
	var (
		flags   chartFlags
		vintage string
	)
	cmd := &cobra.Command{
		Use:   "explore KEY...",
		Short: "Step through prediction batches interactively",
		Long: `Open a terminal view of the selected series with a scrubber over the
prediction publish dates. Moving the scrubber selects that batch's predictions
for every selected country.

--vintage places the scrubber on a batch (YYYY-MM-DD, first or latest) as soon
as the batches are known.`,
		Example: `  covidchart explore Italy Spain
  covidchart explore Italy --vintage latest --axis relative`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sel, err := parseKeys(args)
			if err != nil {
				return err
			}
			cfg := exploreConfig{
				sel:    sel,
				opts:   flags.options(c.conf()),
				layout: c.conf().Chart.Timeline(),
			}
			if vintage != "" {
				ts, err := vintageMillis(vintage)
				if err != nil {
					return err
				}
				cfg.start = &ts
			}
			if err := cfg.opts.ValidateForBuild(); err != nil {
				return err
			}

			src, closeSrc, err := c.openSource(ctx)
			if err != nil {
				return err
			}
			defer closeSrc()
			cfg.src = src

			m := newExploreModel(ctx, cfg)
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&vintage, "vintage", "", "initial prediction batch: YYYY-MM-DD, first or latest")
	cmd.ValidArgsFunction = c.completeKeys
	return cmd
}

// =============================================================================
// Messages
// =============================================================================

type fetchedMsg struct {
	key series.Key
	rec series.Record
	err error
}

type vintagesMsg struct {
	vintages []series.Vintage
	err      error
}

type playMsg struct{}

// =============================================================================
// Model
// =============================================================================

type exploreConfig struct {
	src    source.Source
	sel    series.Selection
	opts   pipeline.Options
	layout timeline.Options
	start  *int64 // scrubber position to take once marks exist
}

// exploreModel is the bubbletea model of the scrubber. Update is the only
// writer of its state; fetches run as commands and come back as messages.
type exploreModel struct {
	ctx context.Context
	src source.Source

	repo     series.Repository
	sel      series.Selection
	opts     pipeline.Options
	layout   timeline.Options
	resolver *resolve.Resolver
	scrubber *timeline.Scrubber
	failed   map[series.Key]error
	queued   []tea.Cmd
	follow   bool
	start    *int64

	chart   *chart.Chart
	missing []series.Key
	cursor  int
	playing bool
	width   int
	status  string
	err     error
}

func newExploreModel(ctx context.Context, cfg exploreConfig) *exploreModel {
	m := &exploreModel{
		ctx:    ctx,
		src:    cfg.src,
		repo:   series.NewRepository(),
		sel:    cfg.sel,
		opts:   cfg.opts,
		layout: cfg.layout,
		failed: make(map[series.Key]error),
		start:  cfg.start,
		width:  80,
		cursor: -1,
	}
	m.opts.Logger = nil
	m.opts.SetBuildDefaults()
	m.layout.Width = float64(m.width * cellPixels)
	m.resolver = resolve.New(resolve.DispatchFunc(m.enqueue))
	m.scrubber = timeline.NewScrubber(m.onVintage)
	m.changed()
	return m
}

func (m *exploreModel) enqueue(k series.Key) {
	ctx, src := m.ctx, m.src
	m.queued = append(m.queued, func() tea.Msg {
		rec, err := source.Fetch(ctx, src, k)
		return fetchedMsg{key: k, rec: rec, err: err}
	})
}

// flush hands queued fetches to the runtime.
func (m *exploreModel) flush(extra ...tea.Cmd) tea.Cmd {
	cmds := append(m.queued, extra...)
	m.queued = nil
	return tea.Batch(cmds...)
}

func (m *exploreModel) loadVintages() tea.Msg {
	vs, err := m.src.ListVintages(m.ctx)
	return vintagesMsg{vintages: vs, err: err}
}

func (m *exploreModel) onVintage(ts int64) {
	if !m.follow {
		return
	}
	m.sel = timeline.ApplyVintage(m.sel, m.repo.Vintages(), ts)
}

// changed lays the marks out again, fetches what the selection lacks and
// rebuilds the chart.
func (m *exploreModel) changed() {
	m.scrubber.SetMarks(m.layout.Layout(m.repo.Vintages(), m.sel.Countries()))
	for k := range m.failed {
		if !m.sel.Has(k) {
			delete(m.failed, k)
		}
	}
	m.resolver.Resolve(m.sel, m.repo)
	m.rebuild()
}

func (m *exploreModel) rebuild() {
	c, missing, err := pipeline.Build(m.repo, m.sel, m.opts)
	if err != nil {
		m.err = err
		return
	}
	m.chart, m.missing, m.err = c, missing, nil
	if n := len(chart.Xs(c)); m.cursor >= n || m.cursor < 0 {
		m.cursor = n - 1
	}
}

func (m *exploreModel) Init() tea.Cmd {
	return m.flush(m.loadVintages)
}

func (m *exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.layout.Width = float64(max(msg.Width-4, 10) * cellPixels)
		m.changed()
		return m, m.flush()

	case fetchedMsg:
		m.resolver.Complete(msg.key)
		if msg.err != nil {
			m.failed[msg.key] = msg.err
		} else {
			delete(m.failed, msg.key)
			m.repo = m.repo.With(msg.rec)
		}
		m.rebuild()
		return m, nil

	case vintagesMsg:
		if msg.err != nil {
			m.status = "vintages: " + msg.err.Error()
			return m, nil
		}
		m.repo = m.repo.WithVintages(msg.vintages)
		m.changed()
		if m.start != nil && m.scrubber.Len() > 0 {
			m.follow = true
			if !m.scrubber.Set(*m.start) {
				m.onVintage(m.scrubber.Value)
			}
			m.start = nil
			m.changed()
		}
		return m, m.flush()

	case playMsg:
		if !m.playing {
			return m, nil
		}
		m.follow = true
		if !m.scrubber.Next() {
			m.playing = false
			return m, nil
		}
		m.changed()
		return m, m.flush(playTick())

	case tea.KeyMsg:
		return m.key(msg)
	}
	return m, nil
}

func (m *exploreModel) key(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "left", "h":
		m.scrub(-1)
	case "right", "l":
		m.scrub(1)
	case "home":
		m.scrub(-m.scrubber.Len())
	case "end":
		m.scrub(m.scrubber.Len())
	case " ", "p":
		if !m.scrubber.CanPlay() {
			return m, nil
		}
		m.playing = !m.playing
		if m.playing {
			if i := m.scrubber.Index(m.scrubber.Value); i == m.scrubber.Len()-1 {
				m.scrub(-m.scrubber.Len())
			}
			return m, m.flush(playTick())
		}
		return m, nil
	case "a":
		if m.opts.Axis == transform.AxisRelative {
			m.opts.Axis = transform.AxisCalendar
		} else {
			m.opts.Axis = transform.AxisRelative
		}
		m.cursor = -1
		m.rebuild()
	case "s":
		m.opts.Scaling = cycle(m.opts.Scaling, transform.ScalingAbsolute, transform.ScalingPerCapita, transform.ScalingSamePeak)
		m.rebuild()
	case "g":
		m.opts.Axes = cycle(m.opts.Axes, chart.AxesLinear, chart.AxesLog, chart.AxesLogLog)
		m.rebuild()
	case "[":
		m.cursor = max(m.cursor-1, 0)
	case "]":
		if m.chart != nil {
			m.cursor = min(m.cursor+1, len(chart.Xs(m.chart))-1)
		}
	default:
		return m, nil
	}
	return m, m.flush()
}

// scrub moves the scrubber. The first move also applies the mark the
// scrubber rests on, so stepping past either end still selects a batch.
func (m *exploreModel) scrub(delta int) {
	if m.scrubber.Len() == 0 {
		return
	}
	first := !m.follow
	m.follow = true
	if !m.scrubber.Step(delta) && first {
		m.onVintage(m.scrubber.Value)
	}
	m.changed()
}

func playTick() tea.Cmd {
	return tea.Tick(playInterval, func(time.Time) tea.Msg { return playMsg{} })
}

func cycle[T comparable](cur T, values ...T) T {
	for i, v := range values {
		if v == cur {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}

// =============================================================================
// View
// =============================================================================

func (m *exploreModel) View() string {
	var b strings.Builder

	title := "covidchart"
	if m.chart != nil && m.chart.Title != "" {
		title = m.chart.Title
	}
	b.WriteString(exploreTitleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render(fmt.Sprintf("axis %s · scaling %s · axes %s", m.opts.Axis, m.opts.Scaling, m.opts.Axes)))
	b.WriteString("\n\n")

	b.WriteString(renderScrubber(m.scrubber.Marks, m.scrubber.Value, max(m.width-4, 10)))
	b.WriteString("\n")
	if mk, ok := m.scrubber.Current(); ok && m.follow {
		b.WriteString(StyleDim.Render("predictions published " + time.UnixMilli(mk.Timestamp).UTC().Format(series.DateLayout)))
	} else if m.scrubber.Len() > 0 {
		b.WriteString(StyleDim.Render("←/→ to choose a prediction batch"))
	}
	b.WriteString("\n\n")

	b.WriteString(m.seriesView())
	b.WriteString("\n")
	if m.chart != nil && m.cursor >= 0 {
		if xs := chart.Xs(m.chart); m.cursor < len(xs) {
			b.WriteString(lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1).
				Render(chart.Tooltip(m.chart, xs[m.cursor])))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(exploreHelpStyle.Render("←/→ vintage  space play  [/] cursor  a axis  s scaling  g axes  q quit"))
	return b.String()
}

func (m *exploreModel) seriesView() string {
	if m.chart == nil || m.chart.Empty() {
		return StyleDim.Render("nothing to plot yet") + "\n"
	}
	var b strings.Builder
	for _, s := range m.chart.Series {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)).Render("━━")
		if s.Dash == styles.DashLineThenDot {
			swatch = lipgloss.NewStyle().Foreground(lipgloss.Color(s.Color)).Render("┅┅")
		}
		peak := math.Inf(-1)
		for _, p := range s.Points {
			peak = math.Max(peak, p.Y)
		}
		fmt.Fprintf(&b, "%s %s %s\n", swatch, StyleValue.Render(s.Label),
			StyleDim.Render("peak "+m.chart.YAxis.Format(peak)))
	}
	return b.String()
}

func (m *exploreModel) statusView() string {
	var parts []string
	if n := m.resolver.Pending(); n > 0 {
		parts = append(parts, fmt.Sprintf("fetching %d", n))
	}
	if n := len(m.failed); n > 0 {
		parts = append(parts, exploreErrStyle.Render(fmt.Sprintf("%d unavailable", n)))
	}
	if m.chart != nil && len(m.chart.Skipped) > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", len(m.chart.Skipped)))
	}
	if m.playing {
		parts = append(parts, "playing")
	}
	if m.err != nil {
		parts = append(parts, exploreErrStyle.Render(m.err.Error()))
	}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	return StyleDim.Render(strings.Join(parts, " · "))
}
