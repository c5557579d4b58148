package tracker

import (
	"context"
	"time"

	"github.com/worktime/internal/auth"
	"github.com/worktime/internal/storage"
	"github.com/worktime/internal/work"
)

type WeekProgress struct {
	UserID     string
	WeekStart  time.Time
	WeekEnd    time.Time
	TotalHours float64
	// Hours worked per YYYY-MM-DD.
	DaysWorked      map[string]float64
	DaysWorkedCount int
	DaysOff         float64
	TargetHours     float64
	RemainingHours  float64
	// Work days from ref through Friday, less days off still ahead.
	RemainingWorkDays float64
	// RemainingHours spread over RemainingWorkDays.
	RequiredDailyHours float64
	Records            []*storage.DailyRecord
	Holidays           []*storage.Holiday
}

// WeekProgress sums the finalized hours of the Monday-to-Sunday week around
// ref and compares them with the week's target. Holidays and leave on work
// days lower the target. Days still left are counted from ref.
func (t *Tracker) WeekProgress(ctx context.Context, actor auth.Identity, target string, ref time.Time) (*WeekProgress, error) {
	user, err := auth.Authorize(actor, target)
	if err != nil {
		return nil, err
	}

	ref = ref.In(t.loc)
	weekStart := work.WeekStart(ref)
	weekEnd := weekStart.AddDate(0, 0, 6)
	from, to := storage.FormatDate(weekStart), storage.FormatDate(weekEnd)

	records, err := t.store.ListRecords(ctx, user, from, to)
	if err != nil {
		return nil, err
	}
	holidays, err := t.store.ListHolidays(ctx, user, from, to)
	if err != nil {
		return nil, err
	}

	progress := &WeekProgress{
		UserID:     user,
		WeekStart:  weekStart,
		WeekEnd:    weekEnd,
		DaysWorked: make(map[string]float64),
		Records:    records,
		Holidays:   holidays,
	}

	for _, r := range records {
		progress.TotalHours += r.TotalHours
		progress.DaysWorked[r.Date] += r.TotalHours
	}
	refDate := storage.FormatDate(ref)
	var offAhead float64
	for _, h := range holidays {
		d, err := storage.ParseDate(h.Date, t.loc)
		if err != nil || !work.IsWorkDay(d) {
			continue
		}
		progress.DaysOff += h.Kind.DaysOff()
		if h.Date >= refDate {
			offAhead += h.Kind.DaysOff()
		}
	}

	progress.DaysWorkedCount = len(progress.DaysWorked)
	progress.TargetHours = t.policy.WeeklyTarget(progress.DaysOff).Hours()
	progress.RemainingHours = progress.TargetHours - progress.TotalHours
	if progress.RemainingHours < 0 {
		progress.RemainingHours = 0
	}
	progress.RemainingWorkDays = float64(work.RemainingWorkDaysInWeek(ref)) - offAhead
	if progress.RemainingWorkDays < 0 {
		progress.RemainingWorkDays = 0
	}
	remaining := time.Duration(progress.RemainingHours * float64(time.Hour))
	progress.RequiredDailyHours = work.DailyHoursNeeded(remaining, progress.RemainingWorkDays).Hours()

	return progress, nil
}
