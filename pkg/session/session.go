// Package session owns the interactive chart state: the repository snapshot,
// the selection, the pipeline options and the vintage scrubber.
//
// # Architecture
//
// A [Session] runs one goroutine, the loop, that owns all mutable state.
// Public methods post commands to the loop's inbox and wait for the reply.
// Missing series are fetched in their own goroutines which post their
// results back to the same inbox, so results are applied one at a time in
// completion order and no lock guards the state.
//
// At most one fetch per key is in flight. A failed fetch leaves its key
// unresolved and is logged; the next change to the selection retries it.
// Results for keys that were deselected meanwhile are still stored, so
// reselecting them is free.
//
// # Usage
//
//	s := session.New(session.Options{Source: src, Logger: logger})
//	defer s.Close()
//
//	s.Select(ctx, series.ObservedKey("Italy"))
//	s.LoadVintages(ctx)
//	if err := s.Settle(ctx); err != nil {
//	    return err
//	}
//	result, err := s.Chart(ctx)
package session

import (
	"context"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/covidchart/pkg/errors"
	"github.com/matzehuels/covidchart/pkg/pipeline"
	"github.com/matzehuels/covidchart/pkg/resolve"
	"github.com/matzehuels/covidchart/pkg/series"
	"github.com/matzehuels/covidchart/pkg/source"
	"github.com/matzehuels/covidchart/pkg/timeline"
)

// ErrClosed is returned by every method once the session is closed.
var ErrClosed = errors.New(errors.ErrCodeInternal, "session closed")

// Options configures a [Session].
type Options struct {
	// Source serves missing series. Required.
	Source source.Source

	// Runner builds and renders charts. Nil uses an uncached runner.
	Runner *pipeline.Runner

	// Pipeline holds the initial chart options.
	Pipeline pipeline.Options

	// Timeline lays out vintage marks. Its Width may change later through
	// [Session.SetWidth].
	Timeline timeline.Options

	Logger *log.Logger
}

// View is a consistent snapshot of the session state.
type View struct {
	ID        string            `json:"id"`
	Version   uint64            `json:"version"`
	Selection series.Selection  `json:"-"`
	Selected  []string          `json:"selection"`
	Options   pipeline.Options  `json:"options"`
	Marks     timeline.Marks    `json:"marks"`
	Vintage   int64             `json:"vintage"`
	Pending   int               `json:"pending"`
	Failed    map[string]string `json:"failed,omitempty"`
	Repo      series.Repository `json:"-"`
	Vintages  []series.Vintage  `json:"vintages"`
}

// Session is the single owner of interactive chart state. It is safe for
// concurrent use.
type Session struct {
	id     string
	src    source.Source
	runner *pipeline.Runner
	log    *log.Logger

	inbox chan func(*state)
	quit  chan struct{}
	done  chan struct{}
	ctx   context.Context
	stop  context.CancelFunc
	fetch sync.WaitGroup
	once  sync.Once
}

// state is only touched by the loop goroutine.
type state struct {
	repo     series.Repository
	sel      series.Selection
	opts     pipeline.Options
	layout   timeline.Options
	resolver *resolve.Resolver
	scrubber *timeline.Scrubber
	failed   map[series.Key]error
	version  uint64

	// follow applies the scrubber value to the selection once the user has
	// moved it.
	follow          bool
	vintagesPending bool
	waiters         []chan struct{}
}

// New starts a session. It panics if opts.Source is nil.
func New(opts Options) *Session {
	if opts.Source == nil {
		panic("session: nil source")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Runner == nil {
		opts.Runner = pipeline.NewRunner(nil, nil, opts.Logger)
	}
	id := uuid.NewString()
	ctx, stop := context.WithCancel(context.Background())
	s := &Session{
		id:     id,
		src:    opts.Source,
		runner: opts.Runner,
		log:    opts.Logger.With("session", id[:8]),
		inbox:  make(chan func(*state)),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		ctx:    ctx,
		stop:   stop,
	}

	st := &state{
		repo:   series.NewRepository(),
		sel:    series.NewSelection(),
		opts:   opts.Pipeline,
		layout: opts.Timeline,
		failed: make(map[series.Key]error),
	}
	st.opts.SetBuildDefaults()
	st.resolver = resolve.New(resolve.DispatchFunc(s.dispatch))
	st.scrubber = timeline.NewScrubber(func(ts int64) { s.onVintage(st, ts) })

	go s.loop(st)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Close stops the loop and waits for in-flight fetches to give up.
func (s *Session) Close() error {
	s.once.Do(func() {
		s.stop()
		close(s.quit)
		<-s.done
		s.fetch.Wait()
	})
	return nil
}

func (s *Session) loop(st *state) {
	defer close(s.done)
	for {
		select {
		case fn := <-s.inbox:
			fn(st)
			st.wake()
		case <-s.quit:
			for _, w := range st.waiters {
				close(w)
			}
			return
		}
	}
}

// do runs fn on the loop and waits for it.
func (s *Session) do(ctx context.Context, fn func(*state)) error {
	ran := make(chan struct{})
	cmd := func(st *state) {
		defer close(ran)
		fn(st)
	}
	select {
	case s.inbox <- cmd:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-ran
	return nil
}

// post hands a fetch result to the loop. It gives up when the session closes.
func (s *Session) post(fn func(*state)) {
	select {
	case s.inbox <- fn:
	case <-s.quit:
	}
}

// dispatch is the resolver's dispatcher. It runs on the loop.
func (s *Session) dispatch(k series.Key) {
	s.fetch.Add(1)
	go func() {
		defer s.fetch.Done()
		rec, err := source.Fetch(s.ctx, s.src, k)
		s.post(func(st *state) { st.fetched(s.log, k, rec, err) })
	}()
}

func (st *state) fetched(logger *log.Logger, k series.Key, rec series.Record, err error) {
	st.resolver.Complete(k)
	st.version++
	if err != nil {
		st.failed[k] = err
		if source.IsNotFound(err) {
			logger.Debug("series not found", "key", k)
		} else {
			logger.Warn("fetch failed", "key", k, "err", err)
		}
		return
	}
	delete(st.failed, k)
	st.repo = st.repo.With(rec)
	logger.Debug("fetched", "key", k, "pending", st.resolver.Pending())
}

// resolve dispatches every missing selected key, retrying failed ones.
func (st *state) resolve() {
	for k := range st.failed {
		if !st.sel.Has(k) {
			delete(st.failed, k)
		}
	}
	st.resolver.Resolve(st.sel, st.repo)
}

// relayout recomputes the vintage marks for the selected countries.
func (st *state) relayout() {
	st.scrubber.SetMarks(st.layout.Layout(st.repo.Vintages(), st.sel.Countries()))
}

func (st *state) settled() bool {
	return st.resolver.Pending() == 0 && !st.vintagesPending
}

func (st *state) wake() {
	if !st.settled() {
		return
	}
	for _, w := range st.waiters {
		close(w)
	}
	st.waiters = nil
}

func (s *Session) onVintage(st *state, ts int64) {
	if !st.follow {
		return
	}
	st.sel = timeline.ApplyVintage(st.sel, st.repo.Vintages(), ts)
	st.version++
	s.log.Debug("vintage", "ts", ts, "selection", st.sel)
}

// Select adds keys to the selection and fetches the missing ones.
func (s *Session) Select(ctx context.Context, keys ...series.Key) error {
	for _, k := range keys {
		if err := k.Validate(); err != nil {
			return err
		}
	}
	return s.do(ctx, func(st *state) {
		for _, k := range keys {
			st.sel = st.sel.Add(k)
		}
		st.changed()
	})
}

// Deselect removes keys from the selection.
func (s *Session) Deselect(ctx context.Context, keys ...series.Key) error {
	return s.do(ctx, func(st *state) {
		for _, k := range keys {
			st.sel = st.sel.Remove(k)
		}
		st.changed()
	})
}

// Toggle flips k in the selection.
func (s *Session) Toggle(ctx context.Context, k series.Key) error {
	if err := k.Validate(); err != nil {
		return err
	}
	return s.do(ctx, func(st *state) {
		st.sel = st.sel.Toggle(k)
		st.changed()
	})
}

// SetSelection replaces the selection.
func (s *Session) SetSelection(ctx context.Context, sel series.Selection) error {
	for _, k := range sel.Keys() {
		if err := k.Validate(); err != nil {
			return err
		}
	}
	return s.do(ctx, func(st *state) {
		st.sel = sel
		st.changed()
	})
}

func (st *state) changed() {
	st.version++
	st.relayout()
	st.resolve()
}

// SetOptions updates the chart options with fn. The update is dropped when
// the result does not validate.
func (s *Session) SetOptions(ctx context.Context, fn func(*pipeline.Options)) error {
	var verr error
	err := s.do(ctx, func(st *state) {
		next := st.opts
		fn(&next)
		if verr = next.ValidateForBuild(); verr != nil {
			return
		}
		st.opts = next
		st.version++
	})
	if err != nil {
		return err
	}
	return verr
}

// SetWidth sets the scrubber width in pixels and lays the marks out again.
func (s *Session) SetWidth(ctx context.Context, width float64) error {
	return s.do(ctx, func(st *state) {
		st.layout.Width = width
		st.relayout()
		st.version++
	})
}

// LoadVintages fetches the prediction list in the background.
func (s *Session) LoadVintages(ctx context.Context) error {
	return s.do(ctx, func(st *state) {
		if st.vintagesPending {
			return
		}
		st.vintagesPending = true
		s.fetch.Add(1)
		go func() {
			defer s.fetch.Done()
			vs, err := s.src.ListVintages(s.ctx)
			s.post(func(st *state) {
				st.vintagesPending = false
				st.version++
				if err != nil {
					s.log.Warn("list vintages failed", "err", err)
					return
				}
				st.repo = st.repo.WithVintages(vs)
				st.relayout()
				if st.follow {
					st.resolve()
				}
				s.log.Debug("vintages", "count", len(vs), "marks", st.scrubber.Len())
			})
		}()
	})
}

// SetVintage moves the scrubber to the mark nearest ts and selects that
// vintage's predictions for the selected countries.
func (s *Session) SetVintage(ctx context.Context, ts int64) error {
	return s.scrub(ctx, func(sc *timeline.Scrubber) bool { return sc.Set(ts) })
}

// StepVintage moves the scrubber delta marks.
func (s *Session) StepVintage(ctx context.Context, delta int) error {
	return s.scrub(ctx, func(sc *timeline.Scrubber) bool { return sc.Step(delta) })
}

// NextVintage advances playback by one mark. It returns false at the last
// mark.
func (s *Session) NextVintage(ctx context.Context) (bool, error) {
	var moved bool
	err := s.scrub(ctx, func(sc *timeline.Scrubber) bool {
		moved = sc.Next()
		return moved
	})
	return moved, err
}

func (s *Session) scrub(ctx context.Context, move func(*timeline.Scrubber) bool) error {
	return s.do(ctx, func(st *state) {
		first := !st.follow
		st.follow = true
		if !move(st.scrubber) && first && st.scrubber.Len() > 0 {
			// The scrubber already rests on the mark; apply it now.
			s.onVintage(st, st.scrubber.Value)
		}
		st.resolve()
	})
}

// Settle waits until no fetch is in flight.
func (s *Session) Settle(ctx context.Context) error {
	var wait chan struct{}
	err := s.do(ctx, func(st *state) {
		if st.settled() {
			return
		}
		wait = make(chan struct{})
		st.waiters = append(st.waiters, wait)
	})
	if err != nil || wait == nil {
		return err
	}
	select {
	case <-wait:
		select {
		case <-s.quit:
			return ErrClosed
		default:
			return nil
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View returns a snapshot of the state.
func (s *Session) View(ctx context.Context) (View, error) {
	var v View
	err := s.do(ctx, func(st *state) {
		v = View{
			ID:        s.id,
			Version:   st.version,
			Selection: st.sel,
			Selected:  keyStrings(st.sel.Keys()),
			Options:   st.opts,
			Marks:     st.scrubber.Marks,
			Vintage:   st.scrubber.Value,
			Pending:   st.resolver.Pending(),
			Repo:      st.repo,
			Vintages:  st.repo.Vintages(),
		}
		if len(st.failed) > 0 {
			v.Failed = make(map[string]string, len(st.failed))
			for k, err := range st.failed {
				v.Failed[k.String()] = errors.UserMessage(err)
			}
		}
	})
	return v, err
}

// Chart builds the chart of the current state. Series still being fetched
// are left out and listed in [pipeline.Result.Missing].
func (s *Session) Chart(ctx context.Context) (*pipeline.Result, error) {
	v, err := s.View(ctx)
	if err != nil {
		return nil, err
	}
	return s.runner.Build(ctx, v.Repo, v.Selection, v.Options)
}

// Render builds the chart and renders it in formats.
func (s *Session) Render(ctx context.Context, formats ...string) (*pipeline.Result, error) {
	v, err := s.View(ctx)
	if err != nil {
		return nil, err
	}
	opts := v.Options
	if len(formats) > 0 {
		opts.Formats = formats
	}
	return s.runner.Execute(ctx, v.Repo, v.Selection, opts)
}

func keyStrings(keys []series.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
