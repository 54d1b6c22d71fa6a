package conversations

import (
	"fmt"
	"math"
	"time"
)

// FormatRelativeTime renders a timestamp relative to now (both epoch ms).
// Within the current calendar day: "now" under a minute, then "Nm", then
// "Nh". The calendar day before now is always "Yesterday", even when it is
// only minutes away across midnight. Older timestamps show "Jan 2" within
// the current year and "Jan 2, 2006" beyond it.
func FormatRelativeTime(tsMs, nowMs int64) string {
	t := time.UnixMilli(tsMs)
	now := time.UnixMilli(nowMs)

	tDay := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	dayDiff := int(math.Round(nowDay.Sub(tDay).Hours() / 24))

	if dayDiff <= 0 {
		diff := nowMs - tsMs
		switch {
		case diff < 60_000:
			return "now"
		case diff < 3_600_000:
			return fmt.Sprintf("%dm", diff/60_000)
		default:
			return fmt.Sprintf("%dh", diff/3_600_000)
		}
	}
	if dayDiff == 1 {
		return "Yesterday"
	}
	if t.Year() == now.Year() {
		return t.Format("Jan 2")
	}
	return t.Format("Jan 2, 2006")
}
