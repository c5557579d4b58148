package work

import "time"

// =============================================================================
// WORK RULES CONFIGURATION
// =============================================================================
// Defaults for the daily target and the standard break. The config file can
// override RequiredHours and StandardBreak, MaxBreak is fixed.
// =============================================================================

const (
	// RequiredHours - target worked time per day
	RequiredHours = 8*time.Hour + 30*time.Minute

	// StandardBreak - break everyone is assumed to take
	StandardBreak = 30 * time.Minute

	// MaxBreak - planned breaks this long or longer are treated as bad input
	MaxBreak = 4 * time.Hour

	// WorkDaysPerWeek - standard work week (typically 5)
	WorkDaysPerWeek = 5
)

// Policy holds the constants the calculation runs against.
type Policy struct {
	RequiredHours time.Duration
	StandardBreak time.Duration
	MaxBreak      time.Duration
}

// DefaultPolicy is the policy used by Calculate.
var DefaultPolicy = Policy{
	RequiredHours: RequiredHours,
	StandardBreak: StandardBreak,
	MaxBreak:      MaxBreak,
}

// WeeklyTarget returns the hours owed for a week with the given number of
// days off (holidays, leave).
func (p Policy) WeeklyTarget(daysOff float64) time.Duration {
	days := float64(WorkDaysPerWeek) - daysOff
	if days <= 0 {
		return 0
	}
	return time.Duration(days * float64(p.RequiredHours))
}

// IsWorkDay returns true if the given day is a standard work day (Mon-Fri)
func IsWorkDay(t time.Time) bool {
	day := t.Weekday()
	return day >= time.Monday && day <= time.Friday
}

// RemainingWorkDaysInWeek counts the work days from t through Friday, t
// included. Weekends have none left.
func RemainingWorkDaysInWeek(t time.Time) int {
	if !IsWorkDay(t) {
		return 0
	}
	return int(time.Friday-t.Weekday()) + 1
}

// DailyHoursNeeded spreads what is still owed for the week over the work
// days left. It is zero once nothing is owed or no days are left.
func DailyHoursNeeded(remaining time.Duration, daysLeft float64) time.Duration {
	if daysLeft <= 0 || remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining) / daysLeft)
}

// WeekStart returns midnight of the Monday of t's week.
func WeekStart(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	d := t.AddDate(0, 0, -weekday+1)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, t.Location())
}
