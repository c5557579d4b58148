package work

import "time"

// Meeting is an interval counted on top of worked time. It is ignored unless
// both ends are set and End is after Start.
type Meeting struct {
	Start *TimeOfDay `json:"start"`
	End   *TimeOfDay `json:"end"`
}

// NewMeeting is a convenience constructor for a fully specified meeting.
func NewMeeting(start, end TimeOfDay) Meeting {
	return Meeting{Start: &start, End: &end}
}

// Valid reports whether the meeting takes part in the calculation.
func (m Meeting) Valid() bool {
	return m.Start != nil && m.End != nil && m.End.After(*m.Start)
}

// Duration of a valid meeting, zero otherwise.
func (m Meeting) Duration() time.Duration {
	if !m.Valid() {
		return 0
	}
	return m.End.Offset() - m.Start.Offset()
}

type meetingOutcome struct {
	total   time.Duration
	outside time.Duration
}

// applyMeetings sums meeting time and the part of it that falls outside the
// work day. Without a checkout the day is assumed to run a full required
// day plus a standard break. A meeting that crosses either boundary counts
// as outside in full. Positions are measured from checkIn so overnight days
// keep their early-morning meetings inside.
func (p Policy) applyMeetings(meetings []Meeting, checkIn TimeOfDay, checkOut *TimeOfDay) meetingOutcome {
	window := p.RequiredHours + p.StandardBreak
	if checkOut != nil {
		window = Span(checkIn, *checkOut)
	}

	var out meetingOutcome
	for _, m := range meetings {
		if !m.Valid() {
			continue
		}
		d := m.Duration()
		out.total += d
		if Span(checkIn, *m.Start)+d > window {
			out.outside += d
		}
	}
	return out
}
