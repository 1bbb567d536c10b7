package crawler

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "request error with op",
			err:      NewRequestError("fetch app_store app 1 page 3", errors.New("connection refused")),
			expected: "request error: fetch app_store app 1 page 3: connection refused",
		},
		{
			name:     "parse error without op",
			err:      NewParseError("", errors.New("XML syntax error on line 1")),
			expected: "parse error: XML syntax error on line 1",
		},
		{
			name:     "config load error",
			err:      NewConfigLoadError("open target_apps.json", errors.New("no such file")),
			expected: "config load error: open target_apps.json: no such file",
		},
		{
			name:     "kind only",
			err:      &Error{Kind: KindParse},
			expected: "parse error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{name: "request matches request", err: NewRequestError("op", nil), target: ErrRequest, want: true},
		{name: "request is not parse", err: NewRequestError("op", nil), target: ErrParse, want: false},
		{name: "parse matches parse", err: NewParseError("op", nil), target: ErrParse, want: true},
		{name: "config matches config", err: NewConfigLoadError("op", nil), target: ErrConfigLoad, want: true},
		{name: "config is not request", err: NewConfigLoadError("op", nil), target: ErrRequest, want: false},
		{name: "wrapped request", err: fmt.Errorf("app 42: %w", NewRequestError("op", nil)), target: ErrRequest, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := NewRequestError("op", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
}

func TestKindOf(t *testing.T) {
	if got := KindOf(fmt.Errorf("wrap: %w", NewParseError("op", nil))); got != KindParse {
		t.Errorf("KindOf() = %q, want %q", got, KindParse)
	}
	if got := KindOf(errors.New("plain")); got != "" {
		t.Errorf("KindOf(plain) = %q, want empty", got)
	}
}
