package conversations

import (
	"testing"
	"time"
)

func TestFormatRelativeTime(t *testing.T) {
	// Fixed "now": 2026-03-15 14:30:00 local time.
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.Local)
	nowMs := now.UnixMilli()

	tests := []struct {
		name string
		ts   time.Time
		want string
	}{
		{"just_now", now.Add(-5 * time.Second), "now"},
		{"fifty_nine_seconds", now.Add(-59*time.Second - 999*time.Millisecond), "now"},
		{"exactly_one_minute", now.Add(-60 * time.Second), "1m"},
		{"forty_minutes", now.Add(-40 * time.Minute), "40m"},
		{"two_hours_same_day", now.Add(-2 * time.Hour), "2h"},
		{"this_morning", time.Date(2026, 3, 15, 1, 0, 0, 0, time.Local), "13h"},
		{"yesterday_late_evening", time.Date(2026, 3, 14, 23, 59, 0, 0, time.Local), "Yesterday"},
		{"yesterday_morning", time.Date(2026, 3, 14, 8, 0, 0, 0, time.Local), "Yesterday"},
		{"two_days_ago_same_year", time.Date(2026, 3, 13, 12, 0, 0, 0, time.Local), "Mar 13"},
		{"earlier_this_year", time.Date(2026, 1, 2, 12, 0, 0, 0, time.Local), "Jan 2"},
		{"previous_year", time.Date(2025, 12, 31, 12, 0, 0, 0, time.Local), "Dec 31, 2025"},
		{"years_back", time.Date(2023, 7, 4, 12, 0, 0, 0, time.Local), "Jul 4, 2023"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatRelativeTime(tt.ts.UnixMilli(), nowMs)
			if got != tt.want {
				t.Errorf("FormatRelativeTime(%v) = %q, want %q", tt.ts, got, tt.want)
			}
		})
	}
}

// A timestamp minutes before midnight and one minutes after must land in
// different buckets even though they are close in absolute terms.
func TestFormatRelativeTimeMidnightBoundary(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 1, 0, 0, time.Local)
	nowMs := now.UnixMilli()

	beforeMidnight := time.Date(2026, 3, 14, 23, 59, 0, 0, time.Local)
	afterMidnight := time.Date(2026, 3, 15, 0, 0, 30, 0, time.Local)

	if got := FormatRelativeTime(beforeMidnight.UnixMilli(), nowMs); got != "Yesterday" {
		t.Errorf("before midnight = %q, want %q", got, "Yesterday")
	}
	if got := FormatRelativeTime(afterMidnight.UnixMilli(), nowMs); got != "now" {
		t.Errorf("after midnight = %q, want %q", got, "now")
	}
}
