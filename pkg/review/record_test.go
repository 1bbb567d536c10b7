package review

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRecord_Complete(t *testing.T) {
	tests := []struct {
		name     string
		record   Record
		expected bool
	}{
		{name: "title and review", record: Record{Title: "t", Review: "r"}, expected: true},
		{name: "missing title", record: Record{Review: "r"}, expected: false},
		{name: "missing review", record: Record{Title: "t"}, expected: false},
		{name: "empty", record: Record{}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.Complete(); got != tt.expected {
				t.Errorf("Complete() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRecord_Row(t *testing.T) {
	r := Record{
		Date:    "2025-05-11T10:19:38-07:00",
		Star:    2,
		Like:    3,
		Dislike: 7,
		Title:   "Great idea",
		Review:  "Not well executed",
	}

	want := []string{"2025-05-11T10:19:38-07:00", "2", "3", "7", "Great idea", "Not well executed"}
	if diff := cmp.Diff(want, r.Row()); diff != "" {
		t.Errorf("Row() mismatch (-want +got):\n%s", diff)
	}

	if len(r.Row()) != len(Header) {
		t.Errorf("Row() has %d columns, Header has %d", len(r.Row()), len(Header))
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"5", 5},
		{"0", 0},
		{"", 0},
		{"abc", 0},
		{"-3", -3},
		{"4.5", 0},
	}

	for _, tt := range tests {
		if got := ParseCount(tt.in); got != tt.want {
			t.Errorf("ParseCount(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
