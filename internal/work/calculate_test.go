package work

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func at(h, m int) *TimeOfDay {
	t := Clock(h, m)
	return &t
}

// today pins "now" to a fixed wall clock so results do not depend on the
// machine running the tests.
func today(h, m, s int) time.Time {
	return time.Date(2024, 1, 8, h, m, s, 0, time.UTC)
}

func mustCalculate(t *testing.T, in Input) Result {
	t.Helper()
	r, err := Calculate(in)
	if err != nil {
		t.Fatalf("Calculate(%+v) unexpected error: %v", in, err)
	}
	return r
}

func TestCalculateEndToEnd(t *testing.T) {
	r := mustCalculate(t, Input{
		CheckIn:  at(10, 0),
		BreakIn:  at(14, 0),
		BreakOut: at(14, 30),
		CheckOut: at(18, 30),
		Now:      today(20, 0, 0),
	})

	if r.TotalWorked != 8*time.Hour {
		t.Errorf("TotalWorked = %v, want 8h", r.TotalWorked)
	}
	if r.ActualBreak != 30*time.Minute {
		t.Errorf("ActualBreak = %v, want 30m", r.ActualBreak)
	}
	if r.BreakCredit != 0 || r.BreakInfo != nil {
		t.Errorf("BreakCredit = %v, BreakInfo = %+v, want no credit", r.BreakCredit, r.BreakInfo)
	}
	if r.Remaining != 30*time.Minute {
		t.Errorf("Remaining = %v, want 30m", r.Remaining)
	}
	if r.ExpectedLeave != Clock(19, 0) {
		t.Errorf("ExpectedLeave = %v, want 19:00", r.ExpectedLeave)
	}
	if r.IsLive {
		t.Error("IsLive = true with a checkout")
	}
}

func TestCalculateOvernight(t *testing.T) {
	r := mustCalculate(t, Input{
		CheckIn:  at(22, 0),
		CheckOut: at(2, 0),
		Now:      today(3, 0, 0),
	})

	if r.TotalWorked != 4*time.Hour {
		t.Errorf("TotalWorked = %v, want 4h", r.TotalWorked)
	}
	if r.IsLive {
		t.Error("IsLive = true with a checkout")
	}
	// 22:00 + 8h30m + 30m wraps to the next morning
	if r.ExpectedLeave != Clock(7, 0) {
		t.Errorf("ExpectedLeave = %v, want 07:00", r.ExpectedLeave)
	}
}

func TestCalculateLiveOvernight(t *testing.T) {
	r := mustCalculate(t, Input{
		CheckIn: at(22, 0),
		Now:     time.Date(2024, 1, 9, 1, 30, 0, 0, time.UTC),
	})

	if r.TotalWorked != 3*time.Hour+30*time.Minute {
		t.Errorf("TotalWorked = %v, want 3h30m", r.TotalWorked)
	}
	if !r.IsLive {
		t.Error("IsLive = false without a checkout")
	}
	if r.Remaining != 5*time.Hour {
		t.Errorf("Remaining = %v, want 5h", r.Remaining)
	}
	if r.ExpectedLeave != Clock(7, 0) {
		t.Errorf("ExpectedLeave = %v, want 07:00", r.ExpectedLeave)
	}
}

func TestCalculateMeetingOvernight(t *testing.T) {
	r := mustCalculate(t, Input{
		CheckIn:  at(22, 0),
		CheckOut: at(6, 0),
		Meetings: []Meeting{
			NewMeeting(Clock(2, 0), Clock(3, 0)),
			NewMeeting(Clock(7, 0), Clock(7, 30)),
		},
		Now: today(7, 0, 0),
	})

	if r.MeetingDuration != 90*time.Minute {
		t.Errorf("MeetingDuration = %v, want 1h30m", r.MeetingDuration)
	}
	if r.OutsideMeetingDuration != 30*time.Minute {
		t.Errorf("OutsideMeetingDuration = %v, want only the 07:00 meeting", r.OutsideMeetingDuration)
	}
}

func TestCalculateMissingCheckIn(t *testing.T) {
	inputs := []Input{
		{Now: today(12, 0, 0)},
		{CheckOut: at(18, 0), BreakIn: at(12, 0), BreakOut: at(12, 30), Now: today(12, 0, 0)},
		{Meetings: []Meeting{NewMeeting(Clock(9, 0), Clock(10, 0))}, Now: today(12, 0, 0)},
	}

	for _, in := range inputs {
		r, err := Calculate(in)
		if !errors.Is(err, ErrMissingCheckIn) {
			t.Errorf("Calculate(%+v) error = %v, want ErrMissingCheckIn", in, err)
		}
		if KindOf(err) != MissingCheckIn {
			t.Errorf("KindOf = %q, want %q", KindOf(err), MissingCheckIn)
		}
		if !reflect.DeepEqual(r, Result{}) {
			t.Errorf("Calculate returned a partial result on failure: %+v", r)
		}
	}
}

func TestCalculateIsDeterministic(t *testing.T) {
	in := Input{
		CheckIn:  at(8, 15),
		BreakIn:  at(12, 0),
		BreakOut: at(12, 20),
		Meetings: []Meeting{NewMeeting(Clock(7, 0), Clock(8, 0)), NewMeeting(Clock(13, 0), Clock(13, 45))},
		Now:      today(15, 12, 33),
	}

	first := mustCalculate(t, in)
	for i := 0; i < 10; i++ {
		if again := mustCalculate(t, in); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, again)
		}
	}
}

func TestCalculateBreakCreditMonotonic(t *testing.T) {
	base := Input{CheckIn: at(9, 0), CheckOut: at(18, 0), Now: today(18, 0, 0)}

	var prevCredit time.Duration = -1
	var prevLeave time.Duration = 48 * time.Hour
	// shrinking the planned break: 29m, 25m, ..., 1m
	for _, planned := range []int{29, 25, 20, 15, 10, 5, 1} {
		in := base
		in.BreakIn = at(12, 0)
		in.BreakOut = at(12, planned)

		r := mustCalculate(t, in)
		want := StandardBreak - time.Duration(planned)*time.Minute
		if r.BreakCredit != want {
			t.Errorf("planned %dm: BreakCredit = %v, want %v", planned, r.BreakCredit, want)
		}
		if r.BreakInfo == nil || r.BreakInfo.Credit != want || r.BreakInfo.StandardBreak != StandardBreak {
			t.Errorf("planned %dm: BreakInfo = %+v", planned, r.BreakInfo)
		}
		if r.BreakCredit <= prevCredit {
			t.Errorf("planned %dm: credit %v did not increase from %v", planned, r.BreakCredit, prevCredit)
		}
		if leave := r.ExpectedLeave.Offset(); leave >= prevLeave {
			t.Errorf("planned %dm: leave %v is not earlier than %v", planned, r.ExpectedLeave, TimeOfDayAt(prevLeave))
		} else {
			prevLeave = leave
		}
		prevCredit = r.BreakCredit
	}

	for _, planned := range []int{30, 45, 60} {
		in := base
		breakOut := Clock(12, 0).Add(time.Duration(planned) * time.Minute)
		in.BreakIn = at(12, 0)
		in.BreakOut = &breakOut

		r := mustCalculate(t, in)
		if r.BreakCredit != 0 || r.BreakInfo != nil {
			t.Errorf("planned %dm: BreakCredit = %v, want 0", planned, r.BreakCredit)
		}
		if r.ActualBreak != time.Duration(planned)*time.Minute {
			t.Errorf("planned %dm: ActualBreak = %v", planned, r.ActualBreak)
		}
	}
}

func TestCalculateShortBreakLeaveTime(t *testing.T) {
	r := mustCalculate(t, Input{
		CheckIn:  at(9, 0),
		BreakIn:  at(12, 0),
		BreakOut: at(12, 10),
		CheckOut: at(17, 0),
		Now:      today(17, 0, 0),
	})

	// 8h raw - 10m break + 20m credit
	if r.TotalWorked != 8*time.Hour+10*time.Minute {
		t.Errorf("TotalWorked = %v, want 8h10m", r.TotalWorked)
	}
	// 09:00 + 8h30m + 30m - 20m credit
	if r.ExpectedLeave != Clock(17, 40) {
		t.Errorf("ExpectedLeave = %v, want 17:40", r.ExpectedLeave)
	}
	if r.Remaining != 20*time.Minute {
		t.Errorf("Remaining = %v, want 20m", r.Remaining)
	}
}

func TestCalculateBreakPolicyEdgeCases(t *testing.T) {
	tests := []struct {
		name       string
		in         Input
		wantActual time.Duration
		wantCredit time.Duration
		wantWorked time.Duration
	}{
		{
			name:       "break of four hours is ignored",
			in:         Input{CheckIn: at(8, 0), BreakIn: at(12, 0), BreakOut: at(16, 0), CheckOut: at(18, 0)},
			wantWorked: 10 * time.Hour,
		},
		{
			name:       "break out before break in is ignored",
			in:         Input{CheckIn: at(8, 0), BreakIn: at(12, 30), BreakOut: at(12, 0), CheckOut: at(16, 0)},
			wantWorked: 8 * time.Hour,
		},
		{
			name:       "zero length break is ignored",
			in:         Input{CheckIn: at(8, 0), BreakIn: at(12, 0), BreakOut: at(12, 0), CheckOut: at(16, 0)},
			wantWorked: 8 * time.Hour,
		},
		{
			name:       "only break in set",
			in:         Input{CheckIn: at(8, 0), BreakIn: at(12, 0), CheckOut: at(16, 0)},
			wantWorked: 8 * time.Hour,
		},
		{
			name:       "short break planned after checkout still earns credit",
			in:         Input{CheckIn: at(9, 0), BreakIn: at(12, 0), BreakOut: at(12, 15), CheckOut: at(11, 0)},
			wantCredit: 15 * time.Minute,
			wantWorked: 2*time.Hour + 15*time.Minute,
		},
		{
			name:       "break before check-in is not deducted",
			in:         Input{CheckIn: at(9, 0), BreakIn: at(8, 0), BreakOut: at(8, 45), CheckOut: at(17, 0)},
			wantWorked: 8 * time.Hour,
		},
		{
			name:       "break after midnight in an overnight day",
			in:         Input{CheckIn: at(22, 0), BreakIn: at(1, 0), BreakOut: at(1, 20), CheckOut: at(6, 0)},
			wantActual: 20 * time.Minute,
			wantCredit: 10 * time.Minute,
			wantWorked: 7*time.Hour + 50*time.Minute,
		},
		{
			name:       "break before an overnight check-in is not deducted",
			in:         Input{CheckIn: at(22, 0), BreakIn: at(21, 0), BreakOut: at(21, 30), CheckOut: at(6, 0)},
			wantWorked: 8 * time.Hour,
		},
		{
			name:       "ongoing break after midnight in a live day",
			in:         Input{CheckIn: at(22, 0), BreakIn: at(1, 0), BreakOut: at(1, 30), Now: time.Date(2024, 1, 9, 1, 10, 0, 0, time.UTC)},
			wantActual: 10 * time.Minute,
			wantWorked: 3 * time.Hour,
		},
		{
			name:       "ongoing break in a live day",
			in:         Input{CheckIn: at(9, 0), BreakIn: at(12, 0), BreakOut: at(12, 30), Now: today(12, 10, 0)},
			wantActual: 10 * time.Minute,
			wantWorked: 3 * time.Hour,
		},
		{
			name:       "break planned later in a live day",
			in:         Input{CheckIn: at(9, 0), BreakIn: at(12, 0), BreakOut: at(12, 30), Now: today(11, 0, 0)},
			wantWorked: 2 * time.Hour,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.in.Now.IsZero() {
				tt.in.Now = today(23, 0, 0)
			}
			r := mustCalculate(t, tt.in)
			if r.ActualBreak != tt.wantActual {
				t.Errorf("ActualBreak = %v, want %v", r.ActualBreak, tt.wantActual)
			}
			if r.BreakCredit != tt.wantCredit {
				t.Errorf("BreakCredit = %v, want %v", r.BreakCredit, tt.wantCredit)
			}
			if r.TotalWorked != tt.wantWorked {
				t.Errorf("TotalWorked = %v, want %v", r.TotalWorked, tt.wantWorked)
			}
		})
	}
}

func TestCalculateMeetingInsideWindow(t *testing.T) {
	r := mustCalculate(t, Input{
		CheckIn:  at(9, 0),
		CheckOut: at(18, 0),
		Meetings: []Meeting{NewMeeting(Clock(12, 0), Clock(13, 0))},
		Now:      today(18, 0, 0),
	})

	if r.MeetingDuration != time.Hour {
		t.Errorf("MeetingDuration = %v, want 1h", r.MeetingDuration)
	}
	if r.OutsideMeetingDuration != 0 {
		t.Errorf("OutsideMeetingDuration = %v, want 0", r.OutsideMeetingDuration)
	}
	if r.TotalWorked != 10*time.Hour {
		t.Errorf("TotalWorked = %v, want 9h span + 1h meeting", r.TotalWorked)
	}
	if r.EffectiveRequired != RequiredHours {
		t.Errorf("EffectiveRequired = %v, want %v", r.EffectiveRequired, RequiredHours)
	}
}

func TestCalculateMeetingAfterCheckout(t *testing.T) {
	base := Input{CheckIn: at(9, 0), CheckOut: at(18, 0), Now: today(18, 0, 0)}
	without := mustCalculate(t, base)

	with := base
	with.Meetings = []Meeting{NewMeeting(Clock(19, 0), Clock(20, 0))}
	r := mustCalculate(t, with)

	if r.OutsideMeetingDuration != time.Hour {
		t.Errorf("OutsideMeetingDuration = %v, want 1h", r.OutsideMeetingDuration)
	}
	if r.EffectiveRequired != without.EffectiveRequired-time.Hour {
		t.Errorf("EffectiveRequired = %v, want %v", r.EffectiveRequired, without.EffectiveRequired-time.Hour)
	}
	if got := without.ExpectedLeave.Offset() - r.ExpectedLeave.Offset(); got != time.Hour {
		t.Errorf("leave moved by %v, want 1h earlier (%v -> %v)", got, without.ExpectedLeave, r.ExpectedLeave)
	}
	if r.ExpectedLeave != Clock(17, 0) {
		t.Errorf("ExpectedLeave = %v, want 17:00", r.ExpectedLeave)
	}
}

func TestCalculateMeetingPolicy(t *testing.T) {
	tests := []struct {
		name        string
		checkOut    *TimeOfDay
		meetings    []Meeting
		wantTotal   time.Duration
		wantOutside time.Duration
	}{
		{
			name:        "straddling check-in counts whole meeting outside",
			checkOut:    at(17, 0),
			meetings:    []Meeting{NewMeeting(Clock(8, 30), Clock(9, 30))},
			wantTotal:   time.Hour,
			wantOutside: time.Hour,
		},
		{
			name:        "live day uses an assumed full day as the end",
			meetings:    []Meeting{NewMeeting(Clock(17, 0), Clock(18, 0))},
			wantTotal:   time.Hour,
			wantOutside: 0,
		},
		{
			name:        "live day meeting past the assumed end",
			meetings:    []Meeting{NewMeeting(Clock(18, 0), Clock(18, 30))},
			wantTotal:   30 * time.Minute,
			wantOutside: 30 * time.Minute,
		},
		{
			name:     "duplicates each count",
			checkOut: at(17, 0),
			meetings: []Meeting{
				NewMeeting(Clock(10, 0), Clock(10, 30)),
				NewMeeting(Clock(10, 0), Clock(10, 30)),
			},
			wantTotal: time.Hour,
		},
		{
			name:     "invalid meetings are skipped",
			checkOut: at(17, 0),
			meetings: []Meeting{
				NewMeeting(Clock(11, 0), Clock(10, 0)),
				NewMeeting(Clock(11, 0), Clock(11, 0)),
				{Start: at(12, 0)},
				{End: at(12, 0)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := mustCalculate(t, Input{
				CheckIn:  at(9, 0),
				CheckOut: tt.checkOut,
				Meetings: tt.meetings,
				Now:      today(17, 0, 0),
			})
			if r.MeetingDuration != tt.wantTotal {
				t.Errorf("MeetingDuration = %v, want %v", r.MeetingDuration, tt.wantTotal)
			}
			if r.OutsideMeetingDuration != tt.wantOutside {
				t.Errorf("OutsideMeetingDuration = %v, want %v", r.OutsideMeetingDuration, tt.wantOutside)
			}
		})
	}
}

func TestCalculateRequiredHoursNeverNegative(t *testing.T) {
	r := mustCalculate(t, Input{
		CheckIn:  at(9, 0),
		CheckOut: at(10, 0),
		Meetings: []Meeting{
			NewMeeting(Clock(11, 0), Clock(16, 0)),
			NewMeeting(Clock(16, 0), Clock(21, 0)),
		},
		Now: today(22, 0, 0),
	})

	if r.EffectiveRequired != 0 {
		t.Errorf("EffectiveRequired = %v, want 0", r.EffectiveRequired)
	}
	if r.Remaining != 0 {
		t.Errorf("Remaining = %v, want 0", r.Remaining)
	}
}

func TestCalculateLiveIsMonotonic(t *testing.T) {
	in := Input{
		CheckIn:  at(9, 0),
		BreakIn:  at(12, 0),
		BreakOut: at(12, 30),
		Meetings: []Meeting{NewMeeting(Clock(14, 0), Clock(15, 0))},
	}

	var prev time.Duration
	for now := today(9, 0, 0); now.Day() == 8; now = now.Add(37 * time.Second) {
		in.Now = now
		r := mustCalculate(t, in)
		if !r.IsLive {
			t.Fatalf("IsLive = false at %v", now)
		}
		if r.TotalWorked < prev {
			t.Fatalf("TotalWorked went down at %v: %v < %v", now.Format("15:04:05"), r.TotalWorked, prev)
		}
		prev = r.TotalWorked
	}
}

func TestCalculateLiveTracksNow(t *testing.T) {
	in := Input{CheckIn: at(9, 0), Now: today(11, 15, 30)}

	r := mustCalculate(t, in)
	if r.TotalWorked != 2*time.Hour+15*time.Minute+30*time.Second {
		t.Errorf("TotalWorked = %v, want 2h15m30s", r.TotalWorked)
	}
	if r.ExpectedLeave != Clock(18, 0) {
		t.Errorf("ExpectedLeave = %v, want 18:00", r.ExpectedLeave)
	}
	if r.Remaining != RequiredHours-r.TotalWorked {
		t.Errorf("Remaining = %v", r.Remaining)
	}
}

func TestCalculateCustomPolicy(t *testing.T) {
	p := Policy{RequiredHours: 7 * time.Hour, StandardBreak: 45 * time.Minute, MaxBreak: 2 * time.Hour}

	r, err := p.Calculate(Input{
		CheckIn:  at(8, 0),
		BreakIn:  at(12, 0),
		BreakOut: at(12, 30),
		CheckOut: at(15, 0),
	})
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if r.BreakCredit != 15*time.Minute {
		t.Errorf("BreakCredit = %v, want 15m", r.BreakCredit)
	}
	// 08:00 + 7h + 45m - 15m
	if r.ExpectedLeave != Clock(15, 30) {
		t.Errorf("ExpectedLeave = %v, want 15:30", r.ExpectedLeave)
	}
}

func TestCalcErrorKinds(t *testing.T) {
	err := error(&CalcError{Kind: InvalidTimeRange})
	if !errors.Is(err, ErrInvalidTimeRange) {
		t.Error("expected ErrInvalidTimeRange")
	}
	if errors.Is(err, ErrMissingCheckIn) {
		t.Error("did not expect ErrMissingCheckIn")
	}
	if KindOf(err) != InvalidTimeRange {
		t.Errorf("KindOf = %q", KindOf(err))
	}
	if KindOf(errors.New("other")) != "" {
		t.Error("KindOf should be empty for foreign errors")
	}
}
