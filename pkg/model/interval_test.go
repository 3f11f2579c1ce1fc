package model

import (
	"testing"
	"time"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad timestamp %q: %v", value, err)
	}
	return ts
}

func interval(t *testing.T, start, end string) Interval {
	return Interval{Start: at(t, start), End: at(t, end)}
}

func TestIntervalValid(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		want  bool
	}{
		{"positive length", "2025-01-01T10:00:00Z", "2025-01-01T12:00:00Z", true},
		{"zero length", "2025-01-01T10:00:00Z", "2025-01-01T10:00:00Z", false},
		{"inverted", "2025-01-01T12:00:00Z", "2025-01-01T10:00:00Z", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := interval(t, tt.start, tt.end).Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIntervalOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a    Interval
		b    Interval
		want bool
	}{
		{
			name: "disjoint",
			a:    interval(t, "2025-01-01T10:00:00Z", "2025-01-01T12:00:00Z"),
			b:    interval(t, "2025-01-01T14:00:00Z", "2025-01-01T16:00:00Z"),
			want: false,
		},
		{
			name: "partial overlap",
			a:    interval(t, "2025-01-01T10:00:00Z", "2025-01-01T14:00:00Z"),
			b:    interval(t, "2025-01-01T12:00:00Z", "2025-01-01T16:00:00Z"),
			want: true,
		},
		{
			name: "contained",
			a:    interval(t, "2025-01-01T10:00:00Z", "2025-01-01T18:00:00Z"),
			b:    interval(t, "2025-01-01T12:00:00Z", "2025-01-01T14:00:00Z"),
			want: true,
		},
		{
			name: "identical",
			a:    interval(t, "2025-01-01T10:00:00Z", "2025-01-01T12:00:00Z"),
			b:    interval(t, "2025-01-01T10:00:00Z", "2025-01-01T12:00:00Z"),
			want: true,
		},
		{
			name: "shared boundary is open",
			a:    interval(t, "2025-01-01T10:00:00Z", "2025-01-01T12:00:00Z"),
			b:    interval(t, "2025-01-01T12:00:00Z", "2025-01-01T14:00:00Z"),
			want: false,
		},
		{
			name: "one nanosecond of overlap",
			a:    interval(t, "2025-01-01T10:00:00Z", "2025-01-01T12:00:00.000000001Z"),
			b:    interval(t, "2025-01-01T12:00:00Z", "2025-01-01T14:00:00Z"),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("a.Overlaps(b) = %v, want %v", got, tt.want)
			}
			// Overlap is symmetric.
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("b.Overlaps(a) = %v, want %v", got, tt.want)
			}
		})
	}
}
