package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/worktime/internal/storage"
)

const (
	recordsSheet  = "Records"
	holidaysSheet = "Holidays"
)

// XLSX writes a workbook with a Records sheet, closed by a totals row, and a
// Holidays sheet.
func XLSX(w io.Writer, records []*storage.DailyRecord, holidays []*storage.Holiday) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", recordsSheet); err != nil {
		return err
	}
	if _, err := f.NewSheet(holidaysSheet); err != nil {
		return err
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0EBF5"}, Pattern: 1},
	})
	if err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := writeRecordsSheet(f, records, header, bold); err != nil {
		return fmt.Errorf("writing records sheet: %w", err)
	}
	if err := writeHolidaysSheet(f, holidays, header); err != nil {
		return fmt.Errorf("writing holidays sheet: %w", err)
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeRecordsSheet(f *excelize.File, records []*storage.DailyRecord, header, bold int) error {
	row := make([]interface{}, len(recordHeader))
	for i, h := range recordHeader {
		row[i] = h
	}
	if err := f.SetSheetRow(recordsSheet, "A1", &row); err != nil {
		return err
	}
	if err := f.SetCellStyle(recordsSheet, "A1", "K1", header); err != nil {
		return err
	}

	var total float64
	var breakTotal, creditTotal, meetingTotal int
	for i, r := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			r.Date,
			clockOrEmpty(r.CheckIn),
			clockOrEmpty(r.CheckOut),
			clockOrEmpty(r.BreakIn),
			clockOrEmpty(r.BreakOut),
			r.BreakMinutes,
			r.CreditMinutes,
			r.MeetingMinutes,
			r.TotalHours,
			r.ExpectedLeave,
			r.Note,
		}
		if err := f.SetSheetRow(recordsSheet, cell, &values); err != nil {
			return err
		}
		total += r.TotalHours
		breakTotal += r.BreakMinutes
		creditTotal += r.CreditMinutes
		meetingTotal += r.MeetingMinutes
	}

	totalRow := len(records) + 2
	cell, err := excelize.CoordinatesToCellName(1, totalRow)
	if err != nil {
		return err
	}
	totals := []interface{}{"Total", "", "", "", "", breakTotal, creditTotal, meetingTotal, total}
	if err := f.SetSheetRow(recordsSheet, cell, &totals); err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(len(totals), totalRow)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(recordsSheet, cell, end, bold); err != nil {
		return err
	}

	if err := f.SetColWidth(recordsSheet, "A", "A", 12); err != nil {
		return err
	}
	return f.SetColWidth(recordsSheet, "K", "K", 30)
}

func writeHolidaysSheet(f *excelize.File, holidays []*storage.Holiday, header int) error {
	row := []interface{}{"Date", "Kind", "Days off", "Note"}
	if err := f.SetSheetRow(holidaysSheet, "A1", &row); err != nil {
		return err
	}
	if err := f.SetCellStyle(holidaysSheet, "A1", "D1", header); err != nil {
		return err
	}
	for i, h := range holidays {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{h.Date, string(h.Kind), h.Kind.DaysOff(), h.Note}
		if err := f.SetSheetRow(holidaysSheet, cell, &values); err != nil {
			return err
		}
	}
	return f.SetColWidth(holidaysSheet, "A", "A", 12)
}
