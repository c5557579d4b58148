// Package format renders durations and calculation results for people.
package format

import (
	"fmt"
	"time"

	"github.com/worktime/internal/work"
)

// Duration renders d as "8h 30m". Seconds are dropped; negative values keep
// their sign.
func Duration(d time.Duration) string {
	sign := ""
	if d < 0 {
		sign = "-"
		d = -d
	}
	d = d.Truncate(time.Minute)
	h := int(d / time.Hour)
	m := int((d % time.Hour) / time.Minute)
	switch {
	case h == 0:
		return fmt.Sprintf("%s%dm", sign, m)
	case m == 0:
		return fmt.Sprintf("%s%dh", sign, h)
	}
	return fmt.Sprintf("%s%dh %dm", sign, h, m)
}

// Hours renders d as decimal hours, "8.50".
func Hours(d time.Duration) string {
	return fmt.Sprintf("%.2f", d.Hours())
}

// Clock renders a time of day as HH:MM, or "--:--" when unset.
func Clock(t *work.TimeOfDay) string {
	if t == nil {
		return "--:--"
	}
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// FailureMessage is the short user-facing text for a calculation failure.
func FailureMessage(kind work.FailureKind) string {
	switch kind {
	case work.MissingCheckIn:
		return "Enter a check-in time to start the calculation."
	case work.InvalidTimeRange:
		return "The times entered do not add up. Check the break and check-out."
	}
	return "Calculation failed."
}
