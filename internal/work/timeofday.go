package work

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

// TimeOfDay is a wall clock time without a date. Arithmetic projects it onto
// a single reference day.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// NewTimeOfDay validates and builds a TimeOfDay.
func NewTimeOfDay(hour, minute, second int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 {
		return TimeOfDay{}, fmt.Errorf("hour out of range: %d", hour)
	}
	if minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("minute out of range: %d", minute)
	}
	if second < 0 || second > 59 {
		return TimeOfDay{}, fmt.Errorf("second out of range: %d", second)
	}
	return TimeOfDay{Hour: hour, Minute: minute, Second: second}, nil
}

// Clock is a shorthand for NewTimeOfDay(hour, minute, 0) that panics on bad
// input. Meant for literals.
func Clock(hour, minute int) TimeOfDay {
	t, err := NewTimeOfDay(hour, minute, 0)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseTimeOfDay accepts "15:04", "3:04", "15:04:05" and "3:04:05".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	for _, format := range []string{"15:04", "3:04", "15:04:05", "3:04:05"} {
		if t, err := time.Parse(format, s); err == nil {
			return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("invalid time format: %s", s)
}

// TimeOfDayFrom drops the date part of t, keeping its wall clock in t's
// location.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// TimeOfDayAt wraps an offset from midnight into a TimeOfDay. Offsets outside
// [0, 24h) roll over.
func TimeOfDayAt(offset time.Duration) TimeOfDay {
	offset %= day
	if offset < 0 {
		offset += day
	}
	offset = offset.Truncate(time.Second)
	return TimeOfDay{
		Hour:   int(offset / time.Hour),
		Minute: int(offset%time.Hour) / int(time.Minute),
		Second: int(offset%time.Minute) / int(time.Second),
	}
}

// Offset is the duration since midnight of the reference day.
func (t TimeOfDay) Offset() time.Duration {
	return time.Duration(t.Hour)*time.Hour +
		time.Duration(t.Minute)*time.Minute +
		time.Duration(t.Second)*time.Second
}

// Before reports whether t is earlier than u on the same reference day.
func (t TimeOfDay) Before(u TimeOfDay) bool { return t.Offset() < u.Offset() }

// After reports whether t is later than u on the same reference day.
func (t TimeOfDay) After(u TimeOfDay) bool { return t.Offset() > u.Offset() }

// Add returns t shifted by d, wrapping around midnight.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return TimeOfDayAt(t.Offset() + d)
}

// On anchors t to the date of ref in ref's location.
func (t TimeOfDay) On(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour, t.Minute, t.Second, 0, ref.Location())
}

func (t TimeOfDay) String() string {
	if t.Second != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
	}
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Span is the duration from start to end. An end before start means the
// range crosses midnight, so a day is added. Zero is a valid span.
func Span(start, end TimeOfDay) time.Duration {
	d := end.Offset() - start.Offset()
	if d < 0 {
		d += day
	}
	return d
}
