package tracker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/worktime/internal/auth"
	"github.com/worktime/internal/draft"
	"github.com/worktime/internal/storage"
	"github.com/worktime/internal/work"
)

var (
	alice = auth.Identity{UserID: "alice"}
	bob   = auth.Identity{UserID: "bob"}
	admin = auth.Identity{UserID: "boss", Admin: true}
)

// Wednesday
var fixedNow = time.Date(2024, 1, 10, 13, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTracker(t *testing.T) (*Tracker, *fakeClock) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	drafts, err := draft.Open(filepath.Join(dir, "draft.db"))
	require.NoError(t, err)
	t.Cleanup(func() { drafts.Close() })

	clock := &fakeClock{now: fixedNow}
	tr := New(db,
		WithDrafts(drafts),
		WithLocation(time.UTC),
		WithClock(clock.Now),
	)
	return tr, clock
}

func at(h, m int) *work.TimeOfDay {
	t := work.Clock(h, m)
	return &t
}

func dayInput() work.Input {
	return work.Input{
		CheckIn:  at(9, 0),
		CheckOut: at(17, 30),
		BreakIn:  at(12, 0),
		BreakOut: at(12, 30),
	}
}

func TestFinalizePersistsRecord(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	rec, res, err := tr.Finalize(ctx, alice, "", "2024-01-08", dayInput(), "monday")
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour, res.TotalWorked)
	assert.Equal(t, 8.0, rec.TotalHours)
	assert.Equal(t, 30, rec.BreakMinutes)
	assert.Equal(t, "18:00", rec.ExpectedLeave)

	got, err := tr.Record(ctx, alice, "alice", "2024-01-08")
	require.NoError(t, err)
	assert.Equal(t, "monday", got.Note)
}

func TestFinalizeFailures(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	in := dayInput()
	in.CheckIn = nil
	_, _, err := tr.Finalize(ctx, alice, "", "2024-01-08", in, "")
	assert.ErrorIs(t, err, work.ErrMissingCheckIn)
	assert.Equal(t, work.MissingCheckIn, work.KindOf(err))

	in = dayInput()
	in.CheckOut = nil
	_, _, err = tr.Finalize(ctx, alice, "", "2024-01-08", in, "")
	assert.ErrorIs(t, err, ErrNotCheckedOut)

	_, _, err = tr.Finalize(ctx, alice, "", "08/01/2024", dayInput(), "")
	assert.Error(t, err)

	_, err = tr.Records(ctx, alice, "", "", "")
	require.NoError(t, err)
}

func TestAuthorizationScope(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	_, _, err := tr.Finalize(ctx, alice, "bob", "2024-01-08", dayInput(), "")
	assert.ErrorIs(t, err, auth.ErrForbidden)

	_, _, err = tr.Finalize(ctx, admin, "bob", "2024-01-08", dayInput(), "by admin")
	require.NoError(t, err)

	records, err := tr.Records(ctx, bob, "", "", "")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "by admin", records[0].Note)

	records, err = tr.Records(ctx, alice, "", "", "")
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = tr.Records(ctx, alice, "bob", "", "")
	assert.ErrorIs(t, err, auth.ErrForbidden)
}

func TestUndoAndDelete(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	_, _, err := tr.Finalize(ctx, alice, "", "2024-01-08", dayInput(), "first")
	require.NoError(t, err)
	in := dayInput()
	in.CheckOut = at(18, 30)
	_, _, err = tr.Finalize(ctx, alice, "", "2024-01-08", in, "second")
	require.NoError(t, err)

	rec, err := tr.Undo(ctx, alice, "", "2024-01-08")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "first", rec.Note)

	require.NoError(t, tr.Delete(ctx, alice, "", "2024-01-08"))
	_, err = tr.Record(ctx, alice, "", "2024-01-08")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, tr.Delete(ctx, bob, "alice", "2024-01-08"), auth.ErrForbidden)
}

func TestHolidays(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	h, err := tr.AddHoliday(ctx, alice, "", "2024-01-09", storage.KindLeave, "trip")
	require.NoError(t, err)

	list, err := tr.Holidays(ctx, alice, "", "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = tr.Holidays(ctx, alice, "", "2024-02-01", "2024-01-01")
	assert.Error(t, err)

	assert.ErrorIs(t, tr.DeleteHoliday(ctx, bob, h.ID), auth.ErrForbidden)
	require.NoError(t, tr.DeleteHoliday(ctx, admin, h.ID))
	assert.ErrorIs(t, tr.DeleteHoliday(ctx, alice, h.ID), storage.ErrNotFound)
}

func TestWeekProgress(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	for _, date := range []string{"2024-01-08", "2024-01-09"} {
		_, _, err := tr.Finalize(ctx, alice, "", date, dayInput(), "")
		require.NoError(t, err)
	}
	// outside the week
	_, _, err := tr.Finalize(ctx, alice, "", "2024-01-15", dayInput(), "")
	require.NoError(t, err)

	_, err = tr.AddHoliday(ctx, alice, "", "2024-01-12", storage.KindHoliday, "")
	require.NoError(t, err)
	_, err = tr.AddHoliday(ctx, alice, "", "2024-01-11", storage.KindHalfDay, "")
	require.NoError(t, err)
	// weekends don't lower the target
	_, err = tr.AddHoliday(ctx, alice, "", "2024-01-13", storage.KindLeave, "")
	require.NoError(t, err)

	p, err := tr.WeekProgress(ctx, alice, "", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-08", storage.FormatDate(p.WeekStart))
	assert.Equal(t, "2024-01-14", storage.FormatDate(p.WeekEnd))
	assert.Equal(t, 16.0, p.TotalHours)
	assert.Equal(t, 2, p.DaysWorkedCount)
	assert.Equal(t, 1.5, p.DaysOff)
	assert.InDelta(t, 29.75, p.TargetHours, 1e-9)
	assert.InDelta(t, 13.75, p.RemainingHours, 1e-9)
	// Wed to Fri less the half day and the holiday ahead
	assert.Equal(t, 1.5, p.RemainingWorkDays)
	assert.InDelta(t, 13.75/1.5, p.RequiredDailyHours, 1e-6)

	p, err = tr.WeekProgress(ctx, alice, "", fixedNow.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.RemainingWorkDays)
	assert.Equal(t, 0.0, p.RequiredDailyHours)
}

func TestPreviewReadsNowInTrackerLocation(t *testing.T) {
	tr, _ := newTestTracker(t)

	res, err := tr.Preview(work.Input{CheckIn: at(9, 0)})
	require.NoError(t, err)
	assert.Equal(t, 4*time.Hour, res.TotalWorked)

	// 13:00 UTC sent with a +05:30 offset
	ist := time.FixedZone("IST", 5*3600+1800)
	res, err = tr.Preview(work.Input{CheckIn: at(9, 0), Now: fixedNow.In(ist)})
	require.NoError(t, err)
	assert.Equal(t, 4*time.Hour, res.TotalWorked)
}

func TestToRecord(t *testing.T) {
	in := work.Input{CheckIn: at(9, 0), CheckOut: at(17, 20)}
	res, err := work.Calculate(in)
	require.NoError(t, err)

	rec := ToRecord("alice", "2024-01-08", in, res, "")
	assert.Equal(t, 8.33, rec.TotalHours)
	assert.Equal(t, 0, rec.BreakMinutes)
	assert.Equal(t, "18:00", rec.ExpectedLeave)
}

func TestClockInOutWorkflow(t *testing.T) {
	tr, clock := newTestTracker(t)
	ctx := context.Background()

	_, err := tr.ClockIn(alice, at(9, 0), "")
	require.NoError(t, err)
	_, err = tr.SetBreak(alice, work.Clock(12, 0), work.Clock(12, 20))
	require.NoError(t, err)
	_, err = tr.AddMeeting(alice, work.Clock(8, 0), work.Clock(8, 30))
	require.NoError(t, err)

	d, res, err := tr.Status(alice)
	require.NoError(t, err)
	require.NotNil(t, d.CheckIn)
	assert.True(t, res.IsLive)
	// 13:00 - 09:00 - 20m break + 10m credit + 30m meeting
	assert.Equal(t, 4*time.Hour+20*time.Minute, res.TotalWorked)
	assert.Equal(t, 30*time.Minute, res.OutsideMeetingDuration)

	clock.Advance(4 * time.Hour)
	rec, res, err := tr.ClockOut(ctx, alice, nil)
	require.NoError(t, err)
	assert.False(t, res.IsLive)
	assert.Equal(t, "17:00", rec.CheckOut.String())
	assert.Equal(t, 30, rec.MeetingMinutes)

	_, _, err = tr.ClockOut(ctx, alice, nil)
	assert.ErrorIs(t, err, draft.ErrNoDraft)

	_, _, err = tr.Status(alice)
	assert.ErrorIs(t, err, work.ErrMissingCheckIn)
}

func TestClockInOutOvernight(t *testing.T) {
	tr, clock := newTestTracker(t)
	ctx := context.Background()
	clock.Advance(9 * time.Hour) // 22:00

	d, err := tr.ClockIn(alice, nil, "night shift")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", d.Date)

	clock.Advance(4 * time.Hour) // 02:00 next day
	require.Equal(t, "2024-01-11", tr.Today())

	d, res, err := tr.Status(alice)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", d.Date)
	assert.True(t, res.IsLive)
	assert.Equal(t, 4*time.Hour, res.TotalWorked)

	_, err = tr.AddMeeting(alice, work.Clock(1, 0), work.Clock(1, 30))
	require.NoError(t, err)

	rec, res, err := tr.ClockOut(ctx, alice, nil)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", rec.Date)
	assert.Equal(t, "02:00", rec.CheckOut.String())
	assert.Equal(t, 4*time.Hour+30*time.Minute, res.TotalWorked)
	assert.Equal(t, time.Duration(0), res.OutsideMeetingDuration)
	assert.Equal(t, "night shift", rec.Note)

	_, err = tr.Record(ctx, alice, "", "2024-01-11")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, tr.Discard(alice), draft.ErrNoDraft)
}

func TestClockInDropsStaleDraft(t *testing.T) {
	tr, clock := newTestTracker(t)

	_, err := tr.ClockIn(alice, at(9, 0), "")
	require.NoError(t, err)

	clock.Advance(24 * time.Hour)
	d, err := tr.ClockIn(alice, at(8, 30), "")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-11", d.Date)

	d, _, err = tr.Status(alice)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-11", d.Date)
	assert.Equal(t, work.Clock(8, 30), *d.CheckIn)

	require.NoError(t, tr.Discard(alice))
	_, _, err = tr.Status(alice)
	assert.ErrorIs(t, err, work.ErrMissingCheckIn)
}

func TestWithoutDraftStore(t *testing.T) {
	db, err := storage.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer db.Close()

	tr := New(db)
	_, err = tr.ClockIn(alice, nil, "")
	assert.ErrorIs(t, err, ErrNoDraftStore)
}

func TestLiveStopsAtCheckout(t *testing.T) {
	tr, clock := newTestTracker(t)

	var ticks []Tick
	calls := 0
	snapshot := func(ctx context.Context) (work.Input, error) {
		calls++
		clock.Advance(time.Minute)
		in := work.Input{CheckIn: at(9, 0)}
		switch calls {
		case 2:
			return work.Input{}, errors.New("form unavailable")
		case 4:
			in.CheckOut = at(17, 0)
		}
		return in, nil
	}

	err := tr.Live(context.Background(), time.Millisecond, snapshot, func(tk Tick) {
		ticks = append(ticks, tk)
	})
	require.NoError(t, err)
	require.Len(t, ticks, 4)

	assert.NoError(t, ticks[0].Err)
	assert.True(t, ticks[0].Result.IsLive)
	assert.Error(t, ticks[1].Err)
	assert.True(t, ticks[2].Result.TotalWorked > ticks[0].Result.TotalWorked)
	assert.False(t, ticks[3].Result.IsLive)
	assert.Equal(t, 8*time.Hour, ticks[3].Result.TotalWorked)
}

func TestLiveReportsFailuresAndStopsOnCancel(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx, cancel := context.WithCancel(context.Background())

	var failures int
	snapshot := func(ctx context.Context) (work.Input, error) {
		return work.Input{}, nil
	}
	err := tr.Live(ctx, time.Millisecond, snapshot, func(tk Tick) {
		if work.KindOf(tk.Err) == work.MissingCheckIn {
			failures++
		}
		if failures == 3 {
			cancel()
		}
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, failures, 3)
}
