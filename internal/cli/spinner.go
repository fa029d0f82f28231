package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Spinner is a progress indicator for waits on the data source. It stops
// when its context is cancelled.
type Spinner struct {
	w       io.Writer
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	stopped chan struct{}
	frames  []string
	once    sync.Once

	mu      sync.Mutex
	message string
	width   int
}

// newSpinner creates a spinner on stderr.
func newSpinner(ctx context.Context, message string) *Spinner {
	return newSpinnerTo(ctx, os.Stderr, message)
}

func newSpinnerTo(ctx context.Context, w io.Writer, message string) *Spinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &Spinner{
		w:       w,
		message: message,
		ctx:     spinnerCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
	}
}

// Start begins the spinner animation.
func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clearLine()
				return
			case <-s.done:
				return
			case <-ticker.C:
				s.mu.Lock()
				line := fmt.Sprintf("%s %s", s.frames[i%len(s.frames)], s.message)
				s.width = max(s.width, len(line))
				fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(s.frames[i%len(s.frames)]), StyleDim.Render(s.message))
				s.mu.Unlock()
			}
		}
	}()
}

// SetMessage replaces the text next to the spinner.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	s.message = message
	s.mu.Unlock()
}

// Stop stops the spinner and clears the line. It is safe to call twice.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		s.cancel()
		close(s.done)
		<-s.stopped
		s.clearLine()
	})
}

func (s *Spinner) clearLine() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width == 0 {
		return
	}
	fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width+2))
}

// StopWithSuccess stops the spinner and shows a success message.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and shows an error message.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled reports whether the spinner's parent context was cancelled.
func (s *Spinner) Cancelled() bool {
	select {
	case <-s.done:
		return false
	default:
		return s.ctx.Err() != nil
	}
}
