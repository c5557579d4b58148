// Package export writes daily records as CSV, JSON and Excel workbooks.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/worktime/internal/format"
	"github.com/worktime/internal/storage"
	"github.com/worktime/internal/work"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	case "excel":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q (want csv, json or xlsx)", s)
}

func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "application/json"
}

// Write dispatches to the writer for f.
func Write(w io.Writer, f Format, records []*storage.DailyRecord, holidays []*storage.Holiday) error {
	switch f {
	case FormatCSV:
		return CSV(w, records)
	case FormatXLSX:
		return XLSX(w, records, holidays)
	}
	return JSON(w, records, holidays, time.Now())
}

var recordHeader = []string{
	"Date", "Check-in", "Check-out", "Break start", "Break end",
	"Break (min)", "Credit (min)", "Meetings (min)", "Hours", "Expected leave", "Note",
}

func recordRow(r *storage.DailyRecord) []string {
	return []string{
		r.Date,
		clockOrEmpty(r.CheckIn),
		clockOrEmpty(r.CheckOut),
		clockOrEmpty(r.BreakIn),
		clockOrEmpty(r.BreakOut),
		strconv.Itoa(r.BreakMinutes),
		strconv.Itoa(r.CreditMinutes),
		strconv.Itoa(r.MeetingMinutes),
		fmt.Sprintf("%.2f", r.TotalHours),
		r.ExpectedLeave,
		r.Note,
	}
}

func CSV(w io.Writer, records []*storage.DailyRecord) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(recordHeader); err != nil {
		return err
	}
	for _, r := range records {
		if err := writer.Write(recordRow(r)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

type recordExport struct {
	Date           string  `json:"date"`
	CheckIn        string  `json:"check_in,omitempty"`
	CheckOut       string  `json:"check_out,omitempty"`
	BreakIn        string  `json:"break_in,omitempty"`
	BreakOut       string  `json:"break_out,omitempty"`
	BreakMinutes   int     `json:"break_minutes"`
	CreditMinutes  int     `json:"credit_minutes"`
	MeetingMinutes int     `json:"meeting_minutes"`
	HoursWorked    float64 `json:"hours_worked"`
	ExpectedLeave  string  `json:"expected_leave,omitempty"`
	Note           string  `json:"note,omitempty"`
}

func JSON(w io.Writer, records []*storage.DailyRecord, holidays []*storage.Holiday, exportedAt time.Time) error {
	exports := make([]recordExport, 0, len(records))
	total := 0.0
	for _, r := range records {
		total += r.TotalHours
		exports = append(exports, recordExport{
			Date:           r.Date,
			CheckIn:        clockOrEmpty(r.CheckIn),
			CheckOut:       clockOrEmpty(r.CheckOut),
			BreakIn:        clockOrEmpty(r.BreakIn),
			BreakOut:       clockOrEmpty(r.BreakOut),
			BreakMinutes:   r.BreakMinutes,
			CreditMinutes:  r.CreditMinutes,
			MeetingMinutes: r.MeetingMinutes,
			HoursWorked:    r.TotalHours,
			ExpectedLeave:  r.ExpectedLeave,
			Note:           r.Note,
		})
	}
	if holidays == nil {
		holidays = []*storage.Holiday{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]interface{}{
		"export_date":   exportedAt.Format("2006-01-02"),
		"total_records": len(records),
		"total_hours":   total,
		"records":       exports,
		"holidays":      holidays,
	})
}

func clockOrEmpty(t *work.TimeOfDay) string {
	if t == nil {
		return ""
	}
	return format.Clock(t)
}
