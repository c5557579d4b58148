package tracker

import (
	"context"
	"errors"

	"github.com/worktime/internal/auth"
	"github.com/worktime/internal/draft"
	"github.com/worktime/internal/storage"
	"github.com/worktime/internal/work"
)

var ErrNoDraftStore = errors.New("draft store is not configured")

// draftFor returns the open draft, which may have been started before
// midnight, or a fresh one for today.
func (t *Tracker) draftFor(user string) (*draft.Draft, error) {
	if t.drafts == nil {
		return nil, ErrNoDraftStore
	}
	d, err := t.drafts.Current(user)
	if errors.Is(err, draft.ErrNoDraft) {
		return &draft.Draft{UserID: user, Date: t.Today()}, nil
	}
	return d, err
}

// ClockIn starts today's draft. A nil at means now. A draft left over from
// an earlier day is dropped.
func (t *Tracker) ClockIn(actor auth.Identity, at *work.TimeOfDay, note string) (*draft.Draft, error) {
	d, err := t.draftFor(actor.UserID)
	if err != nil {
		return nil, err
	}
	if today := t.Today(); d.Date != today {
		t.logger.Warn().Str("user", actor.UserID).Str("date", d.Date).Msg("dropping stale draft")
		if err := t.drafts.Delete(actor.UserID, d.Date); err != nil && !errors.Is(err, draft.ErrNoDraft) {
			return nil, err
		}
		if d, err = t.drafts.GetOrNew(actor.UserID, today); err != nil {
			return nil, err
		}
	}
	checkIn := t.timeOrNow(at)
	d.CheckIn = &checkIn
	if note != "" {
		d.Note = note
	}
	if err := t.drafts.Save(d); err != nil {
		return nil, err
	}
	t.logger.Info().Str("user", actor.UserID).Str("date", d.Date).Str("check_in", checkIn.String()).Msg("clocked in")
	return d, nil
}

// SetBreak records the planned break of the open draft.
func (t *Tracker) SetBreak(actor auth.Identity, start, end work.TimeOfDay) (*draft.Draft, error) {
	d, err := t.draftFor(actor.UserID)
	if err != nil {
		return nil, err
	}
	d.BreakIn, d.BreakOut = &start, &end
	return d, t.drafts.Save(d)
}

// AddMeeting appends a meeting to the open draft.
func (t *Tracker) AddMeeting(actor auth.Identity, start, end work.TimeOfDay) (*draft.Draft, error) {
	d, err := t.draftFor(actor.UserID)
	if err != nil {
		return nil, err
	}
	d.Meetings = append(d.Meetings, work.NewMeeting(start, end))
	return d, t.drafts.Save(d)
}

// Status is a one-shot live calculation of the open draft.
func (t *Tracker) Status(actor auth.Identity) (*draft.Draft, work.Result, error) {
	d, err := t.draftFor(actor.UserID)
	if err != nil {
		return nil, work.Result{}, err
	}
	res, err := t.Preview(d.Input(t.Now()))
	return d, res, err
}

// ClockOut finalizes the open draft with a check-out at (nil means now),
// persists it under the check-in date and clears the draft.
func (t *Tracker) ClockOut(ctx context.Context, actor auth.Identity, at *work.TimeOfDay) (*storage.DailyRecord, work.Result, error) {
	if t.drafts == nil {
		return nil, work.Result{}, ErrNoDraftStore
	}
	d, err := t.drafts.Current(actor.UserID)
	if err != nil {
		return nil, work.Result{}, err
	}
	date := d.Date

	in := d.Input(t.Now())
	checkOut := t.timeOrNow(at)
	in.CheckOut = &checkOut

	rec, res, err := t.Finalize(ctx, actor, actor.UserID, date, in, d.Note)
	if err != nil {
		return nil, work.Result{}, err
	}
	if err := t.drafts.Delete(actor.UserID, date); err != nil && !errors.Is(err, draft.ErrNoDraft) {
		t.logger.Warn().Err(err).Str("user", actor.UserID).Msg("clearing draft")
	}
	return rec, res, nil
}

// Discard drops the open draft without saving anything.
func (t *Tracker) Discard(actor auth.Identity) error {
	if t.drafts == nil {
		return ErrNoDraftStore
	}
	d, err := t.drafts.Current(actor.UserID)
	if err != nil {
		return err
	}
	return t.drafts.Delete(actor.UserID, d.Date)
}

func (t *Tracker) timeOrNow(at *work.TimeOfDay) work.TimeOfDay {
	if at != nil {
		return *at
	}
	now := work.TimeOfDayFrom(t.Now())
	now.Second = 0
	return now
}
