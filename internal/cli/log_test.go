package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		level     log.Level
		wantDebug bool
	}{
		{"default", log.InfoLevel, false},
		{"verbose", log.DebugLevel, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.level)
			logger.Debug("fetch", "country", "Italy")
			logger.Info("rendered", "series", 2)

			out := buf.String()
			if !strings.Contains(out, "rendered") || !strings.Contains(out, "series=2") {
				t.Errorf("info line missing:\n%s", out)
			}
			if got := strings.Contains(out, "country=Italy"); got != tt.wantDebug {
				t.Errorf("debug line logged = %v, want %v", got, tt.wantDebug)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	prog.done("Exported", "series", 3)

	out := buf.String()
	for _, want := range []string{"Exported", "series=3", "took="} {
		if !strings.Contains(out, want) {
			t.Errorf("progress output %q lacks %q", out, want)
		}
	}
}
