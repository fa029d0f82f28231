package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "message only",
			err:  New(ErrCodeInvalidSelection, "parse selection %q", "../x"),
			want: `INVALID_SELECTION: parse selection "../x"`,
		},
		{
			name: "with cause",
			err:  Wrap(ErrCodeSeriesNotFound, errors.New("404"), "no data for %s", "Italy"),
			want: "SERIES_NOT_FOUND: no data for Italy: 404",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(ErrCodeFetchFailure, cause, "fetch Italy/null")

	if errors.Unwrap(err) != cause {
		t.Errorf("Unwrap() = %v, want the cause", errors.Unwrap(err))
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
}

func TestCodeInspection(t *testing.T) {
	degenerate := New(ErrCodeDegenerateScaling, "Spain has no population")

	tests := []struct {
		name     string
		err      error
		code     Code
		wantIs   bool
		wantCode Code
		wantMsg  string
	}{
		{
			name:     "direct",
			err:      degenerate,
			code:     ErrCodeDegenerateScaling,
			wantIs:   true,
			wantCode: ErrCodeDegenerateScaling,
			wantMsg:  "Spain has no population",
		},
		{
			name:     "behind fmt wrapping",
			err:      fmt.Errorf("build chart: %w", degenerate),
			code:     ErrCodeDegenerateScaling,
			wantIs:   true,
			wantCode: ErrCodeDegenerateScaling,
			wantMsg:  "Spain has no population",
		},
		{
			name:     "outermost code wins",
			err:      Wrap(ErrCodeFetchFailure, New(ErrCodeTimeout, "slow"), "fetch Spain/null"),
			code:     ErrCodeTimeout,
			wantIs:   false,
			wantCode: ErrCodeFetchFailure,
			wantMsg:  "fetch Spain/null",
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			code:     ErrCodeInternal,
			wantIs:   false,
			wantCode: "",
			wantMsg:  "boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.wantIs {
				t.Errorf("Is(%s) = %v, want %v", tt.code, got, tt.wantIs)
			}
			if got := GetCode(tt.err); got != tt.wantCode {
				t.Errorf("GetCode() = %q, want %q", got, tt.wantCode)
			}
			if got := UserMessage(tt.err); got != tt.wantMsg {
				t.Errorf("UserMessage() = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestNilError(t *testing.T) {
	if Is(nil, ErrCodeInvalidInput) {
		t.Error("Is(nil) = true")
	}
	if code := GetCode(nil); code != "" {
		t.Errorf("GetCode(nil) = %q", code)
	}
}
