package work

import "time"

// Input is one snapshot of a work day. A nil CheckOut means the day is still
// running and Now stands in for the end of the day.
type Input struct {
	CheckIn  *TimeOfDay
	CheckOut *TimeOfDay
	BreakIn  *TimeOfDay
	BreakOut *TimeOfDay
	Meetings []Meeting
	Now      time.Time
}

// Result of a successful calculation.
type Result struct {
	TotalWorked       time.Duration
	Remaining         time.Duration
	EffectiveRequired time.Duration
	ExpectedLeave     TimeOfDay

	ActualBreak time.Duration
	BreakCredit time.Duration
	BreakInfo   *BreakInfo

	MeetingDuration        time.Duration
	OutsideMeetingDuration time.Duration

	IsLive bool
}

// Calculate runs in against DefaultPolicy.
func Calculate(in Input) (Result, error) {
	return DefaultPolicy.Calculate(in)
}

// Calculate turns a work day snapshot into worked time and a projected leave
// time. It has no side effects and may be called from any goroutine; live
// callers simply call it again with a new Now.
func (p Policy) Calculate(in Input) (Result, error) {
	if in.CheckIn == nil {
		return Result{}, &CalcError{Kind: MissingCheckIn}
	}
	checkIn := *in.CheckIn

	end := TimeOfDayFrom(in.Now)
	if in.CheckOut != nil {
		end = *in.CheckOut
	}

	brk := p.applyBreak(in.BreakIn, in.BreakOut, checkIn, end)
	mtg := p.applyMeetings(in.Meetings, checkIn, in.CheckOut)

	worked := Span(checkIn, end) - brk.actual + brk.credit
	if worked < 0 {
		return Result{}, &CalcError{Kind: InvalidTimeRange}
	}
	total := worked + mtg.total

	required := p.RequiredHours - mtg.outside
	if required < 0 {
		required = 0
	}
	remaining := required - total
	if remaining < 0 {
		remaining = 0
	}

	var owed time.Duration
	switch {
	case brk.credit > 0:
		owed = p.RequiredHours + p.StandardBreak - brk.credit
	case brk.actual > 0:
		owed = p.RequiredHours + brk.actual
	default:
		// assume the standard break is or will be taken
		owed = p.RequiredHours + p.StandardBreak
	}

	return Result{
		TotalWorked:            total,
		Remaining:              remaining,
		EffectiveRequired:      required,
		ExpectedLeave:          checkIn.Add(owed - mtg.outside),
		ActualBreak:            brk.actual,
		BreakCredit:            brk.credit,
		BreakInfo:              brk.info,
		MeetingDuration:        mtg.total,
		OutsideMeetingDuration: mtg.outside,
		IsLive:                 in.CheckOut == nil,
	}, nil
}
