package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncBuffer is a bytes.Buffer safe for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerBasic(t *testing.T) {
	var buf syncBuffer
	s := newSpinnerTo(context.Background(), &buf, "Fetching...")
	s.Start()
	time.Sleep(200 * time.Millisecond)
	s.SetMessage("Fetching 2 series")
	time.Sleep(200 * time.Millisecond)
	s.Stop()
	s.Stop()

	if s.Cancelled() {
		t.Error("Cancelled() after Stop() = true")
	}
	out := buf.String()
	if !strings.Contains(out, "Fetching...") || !strings.Contains(out, "Fetching 2 series") {
		t.Errorf("spinner output %q lacks its messages", out)
	}
}

func TestSpinnerWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := newSpinnerTo(ctx, &syncBuffer{}, "Testing with context...")
	s.Start()
	cancel()
	time.Sleep(100 * time.Millisecond)

	if !s.Cancelled() {
		t.Error("Spinner should be cancelled after context cancellation")
	}
	s.Stop()
}
