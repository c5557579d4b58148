package tracker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/worktime/internal/auth"
	"github.com/worktime/internal/draft"
	"github.com/worktime/internal/storage"
	"github.com/worktime/internal/work"
)

var (
	// ErrNotCheckedOut is returned when a day without a check-out is finalized.
	ErrNotCheckedOut = errors.New("check-out time is required to finalize a day")
	ErrInvalidRange  = errors.New("invalid date range")
)

// Store is the record store the tracker persists to.
type Store interface {
	UpsertRecord(ctx context.Context, rec *storage.DailyRecord) error
	GetRecord(ctx context.Context, userID, date string) (*storage.DailyRecord, error)
	ListRecords(ctx context.Context, userID, from, to string) ([]*storage.DailyRecord, error)
	DeleteRecord(ctx context.Context, userID, date string) error
	UndoRecord(ctx context.Context, userID, date string) (*storage.DailyRecord, error)

	AddHoliday(ctx context.Context, h *storage.Holiday) error
	GetHoliday(ctx context.Context, id string) (*storage.Holiday, error)
	ListHolidays(ctx context.Context, userID, from, to string) ([]*storage.Holiday, error)
	DeleteHoliday(ctx context.Context, id string) error
}

// DraftStore keeps the running day between invocations.
type DraftStore interface {
	Save(d *draft.Draft) error
	Current(userID string) (*draft.Draft, error)
	GetOrNew(userID, date string) (*draft.Draft, error)
	Delete(userID, date string) error
}

type Tracker struct {
	store  Store
	drafts DraftStore
	policy work.Policy
	loc    *time.Location
	now    func() time.Time
	logger zerolog.Logger
}

type Option func(*Tracker)

func WithPolicy(p work.Policy) Option {
	return func(t *Tracker) { t.policy = p }
}

func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) { t.loc = loc }
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithDrafts enables the clock-in/clock-out workflow.
func WithDrafts(d DraftStore) Option {
	return func(t *Tracker) { t.drafts = d }
}

func New(store Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		policy: work.DefaultPolicy,
		loc:    time.Local,
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) Policy() work.Policy { return t.policy }

// Now is the tracker's clock in its location.
func (t *Tracker) Now() time.Time { return t.now().In(t.loc) }

// Today is the storage key of the current date.
func (t *Tracker) Today() string { return storage.FormatDate(t.Now()) }

// Preview calculates without persisting anything. A zero Now is filled in
// from the tracker's clock and any Now is read in the tracker's location.
func (t *Tracker) Preview(in work.Input) (work.Result, error) {
	if in.Now.IsZero() {
		in.Now = t.Now()
	}
	in.Now = in.Now.In(t.loc)
	res, err := t.policy.Calculate(in)
	if err != nil {
		t.logger.Debug().Str("kind", string(work.KindOf(err))).Msg("calculation failed")
	}
	return res, err
}

// Finalize calculates a checked-out day and upserts it for target.
func (t *Tracker) Finalize(ctx context.Context, actor auth.Identity, target, date string, in work.Input, note string) (*storage.DailyRecord, work.Result, error) {
	user, err := auth.Authorize(actor, target)
	if err != nil {
		return nil, work.Result{}, err
	}
	if date, err = t.normalizeDate(date); err != nil {
		return nil, work.Result{}, err
	}
	if in.CheckIn != nil && in.CheckOut == nil {
		return nil, work.Result{}, ErrNotCheckedOut
	}

	res, err := t.Preview(in)
	if err != nil {
		return nil, work.Result{}, err
	}

	rec := ToRecord(user, date, in, res, note)
	if err := t.store.UpsertRecord(ctx, rec); err != nil {
		return nil, work.Result{}, fmt.Errorf("saving record: %w", err)
	}

	t.logger.Info().
		Str("user", user).
		Str("date", date).
		Float64("hours", rec.TotalHours).
		Str("actor", actor.UserID).
		Msg("day finalized")
	return rec, res, nil
}

// ToRecord converts a successful calculation into persistence fields.
func ToRecord(userID, date string, in work.Input, res work.Result, note string) *storage.DailyRecord {
	return &storage.DailyRecord{
		UserID:         userID,
		Date:           date,
		CheckIn:        in.CheckIn,
		CheckOut:       in.CheckOut,
		BreakIn:        in.BreakIn,
		BreakOut:       in.BreakOut,
		Meetings:       in.Meetings,
		TotalHours:     math.Round(res.TotalWorked.Hours()*100) / 100,
		BreakMinutes:   int(res.ActualBreak / time.Minute),
		CreditMinutes:  int(res.BreakCredit / time.Minute),
		MeetingMinutes: int(res.MeetingDuration / time.Minute),
		ExpectedLeave:  fmt.Sprintf("%02d:%02d", res.ExpectedLeave.Hour, res.ExpectedLeave.Minute),
		Note:           note,
	}
}

func (t *Tracker) Record(ctx context.Context, actor auth.Identity, target, date string) (*storage.DailyRecord, error) {
	user, date, err := t.scope(actor, target, date)
	if err != nil {
		return nil, err
	}
	return t.store.GetRecord(ctx, user, date)
}

// Records lists target's records between from and to inclusive.
func (t *Tracker) Records(ctx context.Context, actor auth.Identity, target, from, to string) ([]*storage.DailyRecord, error) {
	user, err := auth.Authorize(actor, target)
	if err != nil {
		return nil, err
	}
	if from, to, err = t.normalizeRange(from, to); err != nil {
		return nil, err
	}
	return t.store.ListRecords(ctx, user, from, to)
}

// Undo reverts the last change to a day. The returned record is nil when the
// change undone was the day's creation.
func (t *Tracker) Undo(ctx context.Context, actor auth.Identity, target, date string) (*storage.DailyRecord, error) {
	user, date, err := t.scope(actor, target, date)
	if err != nil {
		return nil, err
	}
	rec, err := t.store.UndoRecord(ctx, user, date)
	if err != nil {
		return nil, err
	}
	t.logger.Info().Str("user", user).Str("date", date).Bool("removed", rec == nil).Msg("record change undone")
	return rec, nil
}

func (t *Tracker) Delete(ctx context.Context, actor auth.Identity, target, date string) error {
	user, date, err := t.scope(actor, target, date)
	if err != nil {
		return err
	}
	if err := t.store.DeleteRecord(ctx, user, date); err != nil {
		return err
	}
	t.logger.Info().Str("user", user).Str("date", date).Msg("record deleted")
	return nil
}

func (t *Tracker) AddHoliday(ctx context.Context, actor auth.Identity, target, date string, kind storage.HolidayKind, note string) (*storage.Holiday, error) {
	user, date, err := t.scope(actor, target, date)
	if err != nil {
		return nil, err
	}
	h := &storage.Holiday{UserID: user, Date: date, Kind: kind, Note: note}
	if err := t.store.AddHoliday(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (t *Tracker) Holidays(ctx context.Context, actor auth.Identity, target, from, to string) ([]*storage.Holiday, error) {
	user, err := auth.Authorize(actor, target)
	if err != nil {
		return nil, err
	}
	if from, to, err = t.normalizeRange(from, to); err != nil {
		return nil, err
	}
	return t.store.ListHolidays(ctx, user, from, to)
}

// DeleteHoliday removes a holiday owned by someone the actor may act for.
func (t *Tracker) DeleteHoliday(ctx context.Context, actor auth.Identity, id string) error {
	h, err := t.store.GetHoliday(ctx, id)
	if err != nil {
		return err
	}
	if _, err := auth.Authorize(actor, h.UserID); err != nil {
		return err
	}
	return t.store.DeleteHoliday(ctx, id)
}

func (t *Tracker) scope(actor auth.Identity, target, date string) (string, string, error) {
	user, err := auth.Authorize(actor, target)
	if err != nil {
		return "", "", err
	}
	date, err = t.normalizeDate(date)
	if err != nil {
		return "", "", err
	}
	return user, date, nil
}

// normalizeDate validates a YYYY-MM-DD date; empty means today.
func (t *Tracker) normalizeDate(date string) (string, error) {
	if date == "" {
		return t.Today(), nil
	}
	d, err := storage.ParseDate(date, t.loc)
	if err != nil {
		return "", err
	}
	return storage.FormatDate(d), nil
}

func (t *Tracker) normalizeRange(from, to string) (string, string, error) {
	var err error
	if from != "" {
		if from, err = t.normalizeDate(from); err != nil {
			return "", "", err
		}
	}
	if to != "" {
		if to, err = t.normalizeDate(to); err != nil {
			return "", "", err
		}
	}
	if from != "" && to != "" && from > to {
		return "", "", fmt.Errorf("%w: %s is after %s", ErrInvalidRange, from, to)
	}
	return from, to, nil
}
