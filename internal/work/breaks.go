package work

import "time"

// BreakInfo is reported when a short break earns credit.
type BreakInfo struct {
	ActualBreak   time.Duration
	StandardBreak time.Duration
	Credit        time.Duration
}

type breakOutcome struct {
	actual time.Duration
	credit time.Duration
	info   *BreakInfo
}

// applyBreak works out how much of the planned break is deducted from the
// window [workStart, workEnd] and how much credit a short break earns.
// Positions are measured from workStart, so a window that crosses midnight
// still contains a break taken after it. The credit depends on the planned
// length only, so a short break that has not been taken yet already moves
// the leave time forward.
func (p Policy) applyBreak(breakIn, breakOut *TimeOfDay, workStart, workEnd TimeOfDay) breakOutcome {
	if breakIn == nil || breakOut == nil || !breakOut.After(*breakIn) {
		return breakOutcome{}
	}

	planned := breakOut.Offset() - breakIn.Offset()
	if planned <= 0 || planned >= p.MaxBreak {
		return breakOutcome{}
	}

	var out breakOutcome
	window := Span(workStart, workEnd)
	from := Span(workStart, *breakIn)
	to := from + planned
	switch {
	case to <= window:
		out.actual = planned
	case from < window:
		// still on break
		out.actual = window - from
	}

	if planned < p.StandardBreak {
		out.credit = p.StandardBreak - planned
		out.info = &BreakInfo{
			ActualBreak:   out.actual,
			StandardBreak: p.StandardBreak,
			Credit:        out.credit,
		}
	}
	return out
}
