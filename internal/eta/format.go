package eta

import (
	"fmt"
	"strings"
)

const (
	minutesPerHour = 60
	minutesPerDay  = 24 * minutesPerHour
	minutesPerWeek = 7 * minutesPerDay
)

// FormatArrival renders minutes as rider-facing text, e.g. "Arriving in 5 minutes"
// or "Arriving in 1 hour 30 min". Waits of a day or more are reported in whole days
// and, from a week on, whole weeks.
func FormatArrival(minutes int) string {
	return "Arriving in " + formatDuration(minutes)
}

func formatDuration(minutes int) string {
	switch {
	case minutes < minutesPerHour:
		return plural(minutes, "minute")
	case minutes < minutesPerDay:
		var b strings.Builder
		b.WriteString(plural(minutes/minutesPerHour, "hour"))
		if rest := minutes % minutesPerHour; rest > 0 {
			fmt.Fprintf(&b, " %d min", rest)
		}
		return b.String()
	case minutes < minutesPerWeek:
		return plural(minutes/minutesPerDay, "day")
	default:
		return plural(minutes/minutesPerWeek, "week")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
