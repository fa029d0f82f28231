package timeline

// Scrubber is the position on a laid out timeline. It only rests on marks.
// A Scrubber is not safe for concurrent use.
type Scrubber struct {
	Marks
	Value int64 `json:"value"`
	// OnChange is called with the new value whenever it changes.
	OnChange func(value int64) `json:"-"`
}

// NewScrubber returns an empty scrubber reporting changes to onChange.
func NewScrubber(onChange func(int64)) *Scrubber {
	return &Scrubber{OnChange: onChange}
}

// SetMarks replaces the marks. The current value is kept if it is still a
// mark, otherwise the first mark is selected.
func (s *Scrubber) SetMarks(m Marks) {
	s.Marks = m
	if m.Has(s.Value) {
		return
	}
	if m.Len() == 0 {
		s.set(0)
		return
	}
	s.set(m.Min)
}

// Set moves to the mark nearest ts and reports whether the value changed.
func (s *Scrubber) Set(ts int64) bool {
	if s.Len() == 0 {
		return false
	}
	best := s.Marks.Marks[0].Timestamp
	for _, m := range s.Marks.Marks[1:] {
		if abs(m.Timestamp-ts) < abs(best-ts) {
			best = m.Timestamp
		}
	}
	return s.set(best)
}

// Step moves delta marks forward or backward, stopping at either end.
func (s *Scrubber) Step(delta int) bool {
	if s.Len() == 0 {
		return false
	}
	i := s.Index(s.Value)
	if i < 0 {
		i = 0
	}
	i = min(max(i+delta, 0), s.Len()-1)
	return s.set(s.Marks.Marks[i].Timestamp)
}

// Next advances playback by one mark. It returns false when the value is
// already on the last mark and playback should stop.
func (s *Scrubber) Next() bool {
	i := s.Index(s.Value)
	if i < 0 || i+1 >= s.Len() {
		return false
	}
	return s.set(s.Marks.Marks[i+1].Timestamp)
}

// CanPlay reports whether there is anything to play through.
func (s *Scrubber) CanPlay() bool { return s.Len() >= 2 }

// Current returns the mark at the current value.
func (s *Scrubber) Current() (Mark, bool) {
	i := s.Index(s.Value)
	if i < 0 {
		return Mark{}, false
	}
	return s.Marks.Marks[i], true
}

func (s *Scrubber) set(v int64) bool {
	if v == s.Value {
		return false
	}
	s.Value = v
	if s.OnChange != nil {
		s.OnChange(v)
	}
	return true
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
