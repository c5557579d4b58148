package archive

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/worktime/internal/auth"
	"github.com/worktime/internal/storage"
	"github.com/worktime/internal/work"
)

var ErrEmptyMonth = errors.New("no records for that month")

// Source is where the archiver reads a user's month from.
type Source interface {
	Records(ctx context.Context, actor auth.Identity, target, from, to string) ([]*storage.DailyRecord, error)
	Holidays(ctx context.Context, actor auth.Identity, target, from, to string) ([]*storage.Holiday, error)
}

// Archiver writes monthly markdown reports
type Archiver struct {
	source      Source
	policy      work.Policy
	historyPath string
}

func New(source Source, policy work.Policy, historyPath string) *Archiver {
	return &Archiver{
		source:      source,
		policy:      policy,
		historyPath: historyPath,
	}
}

// MonthSummary contains archived month data
type MonthSummary struct {
	UserID        string
	Month         time.Time
	TotalHours    float64
	TargetHours   float64
	DaysWorked    int
	DaysOff       float64
	Records       []*storage.DailyRecord
	Holidays      []*storage.Holiday
	WeekBreakdown map[int]float64
}

// Summary loads and totals one month of target's data.
func (a *Archiver) Summary(ctx context.Context, actor auth.Identity, target string, year int, month time.Month) (*MonthSummary, error) {
	user, err := auth.Authorize(actor, target)
	if err != nil {
		return nil, err
	}
	monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	from := storage.FormatDate(monthStart)
	to := storage.FormatDate(monthStart.AddDate(0, 1, -1))

	records, err := a.source.Records(ctx, actor, user, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get records: %w", err)
	}
	holidays, err := a.source.Holidays(ctx, actor, user, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get holidays: %w", err)
	}
	return BuildSummary(a.policy, user, monthStart, records, holidays), nil
}

// ArchiveMonth writes <user>/<YYYY-MM>.md under the history path and returns
// the file written.
func (a *Archiver) ArchiveMonth(ctx context.Context, actor auth.Identity, target string, year int, month time.Month) (string, error) {
	summary, err := a.Summary(ctx, actor, target, year, month)
	if err != nil {
		return "", err
	}
	if len(summary.Records) == 0 {
		return "", fmt.Errorf("%w: %s %d", ErrEmptyMonth, month, year)
	}

	dir := filepath.Join(a.historyPath, summary.UserID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create history directory: %w", err)
	}
	filePath := filepath.Join(dir, fmt.Sprintf("%d-%02d.md", year, month))
	if err := os.WriteFile(filePath, []byte(Markdown(summary, time.Now())), 0644); err != nil {
		return "", fmt.Errorf("failed to write archive: %w", err)
	}
	return filePath, nil
}

// BuildSummary totals a month of records. The target counts every work day
// of the month, less holidays and leave.
func BuildSummary(policy work.Policy, user string, monthStart time.Time, records []*storage.DailyRecord, holidays []*storage.Holiday) *MonthSummary {
	summary := &MonthSummary{
		UserID:        user,
		Month:         monthStart,
		Records:       records,
		Holidays:      holidays,
		WeekBreakdown: make(map[int]float64),
	}

	days := make(map[string]bool)
	for _, r := range records {
		summary.TotalHours += r.TotalHours
		days[r.Date] = true
		if d, err := storage.ParseDate(r.Date, time.UTC); err == nil {
			_, week := d.ISOWeek()
			summary.WeekBreakdown[week] += r.TotalHours
		}
	}
	summary.DaysWorked = len(days)

	for _, h := range holidays {
		if d, err := storage.ParseDate(h.Date, time.UTC); err == nil && work.IsWorkDay(d) {
			summary.DaysOff += h.Kind.DaysOff()
		}
	}

	workDays := 0
	for d := monthStart; d.Month() == monthStart.Month(); d = d.AddDate(0, 0, 1) {
		if work.IsWorkDay(d) {
			workDays++
		}
	}
	target := (float64(workDays) - summary.DaysOff) * policy.RequiredHours.Hours()
	if target > 0 {
		summary.TargetHours = target
	}
	return summary
}

// Markdown renders the month report.
func Markdown(summary *MonthSummary, archivedAt time.Time) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# %s (%s)\n\n", summary.Month.Format("January 2006"), summary.UserID))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Hours | %.2f |\n", summary.TotalHours))
	sb.WriteString(fmt.Sprintf("| Target Hours | %.2f |\n", summary.TargetHours))
	sb.WriteString(fmt.Sprintf("| Days Worked | %d |\n", summary.DaysWorked))
	sb.WriteString(fmt.Sprintf("| Days Off | %.1f |\n", summary.DaysOff))
	sb.WriteString(fmt.Sprintf("| Daily Average | %.2f |\n", summary.TotalHours/float64(max(summary.DaysWorked, 1))))
	sb.WriteString("\n")

	sb.WriteString("## Weekly Breakdown\n\n")
	sb.WriteString("| Week | Hours |\n")
	sb.WriteString("|------|-------|\n")

	weeks := make([]int, 0, len(summary.WeekBreakdown))
	for w := range summary.WeekBreakdown {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)
	for _, w := range weeks {
		sb.WriteString(fmt.Sprintf("| W%d | %.2f |\n", w, summary.WeekBreakdown[w]))
	}
	sb.WriteString("\n")

	sb.WriteString("## Days\n\n")
	sb.WriteString("| Date | In | Out | Break | Meetings | Hours | Note |\n")
	sb.WriteString("|------|----|-----|-------|----------|-------|------|\n")
	for _, r := range summary.Records {
		note := r.Note
		if len(note) > 30 {
			note = note[:27] + "..."
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %dm | %dm | %.2f | %s |\n",
			r.Date, clock(r.CheckIn), clock(r.CheckOut), r.BreakMinutes, r.MeetingMinutes, r.TotalHours, note))
	}
	sb.WriteString("\n")

	if len(summary.Holidays) > 0 {
		sb.WriteString("## Days Off\n\n")
		sb.WriteString("| Date | Kind | Note |\n")
		sb.WriteString("|------|------|------|\n")
		for _, h := range summary.Holidays {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", h.Date, h.Kind, h.Note))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("---\n*Archived: %s*\n", archivedAt.Format("2006-01-02 15:04")))

	return sb.String()
}

// ListArchives returns the archived months of a user, oldest first.
func (a *Archiver) ListArchives(user string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(a.historyPath, user))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var archives []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			archives = append(archives, strings.TrimSuffix(e.Name(), ".md"))
		}
	}

	sort.Strings(archives)
	return archives, nil
}

// ReadArchive reads a specific month's archive
func (a *Archiver) ReadArchive(user string, year int, month time.Month) (string, error) {
	filename := fmt.Sprintf("%d-%02d.md", year, month)
	data, err := os.ReadFile(filepath.Join(a.historyPath, user, filename))
	if err != nil {
		return "", fmt.Errorf("archive not found: %s", filename)
	}
	return string(data), nil
}

func clock(t *work.TimeOfDay) string {
	if t == nil {
		return "-"
	}
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}
