package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/worktime/internal/storage"
	"github.com/worktime/internal/work"
)

func clock(h, m int) *work.TimeOfDay {
	t := work.Clock(h, m)
	return &t
}

func sampleRecords() []*storage.DailyRecord {
	return []*storage.DailyRecord{
		{
			UserID: "alice", Date: "2024-01-08",
			CheckIn: clock(9, 0), CheckOut: clock(17, 30),
			BreakIn: clock(12, 0), BreakOut: clock(12, 30),
			TotalHours: 8, BreakMinutes: 30, ExpectedLeave: "18:00",
		},
		{
			UserID: "alice", Date: "2024-01-09",
			CheckIn: clock(8, 0), CheckOut: clock(16, 30),
			TotalHours: 8.5, ExpectedLeave: "17:00", Note: "no break, yes, really",
		},
	}
}

func sampleHolidays() []*storage.Holiday {
	return []*storage.Holiday{{ID: "h1", UserID: "alice", Date: "2024-01-12", Kind: storage.KindHalfDay}}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"csv": FormatCSV, "JSON": FormatJSON, "xlsx": FormatXLSX, "excel": FormatXLSX} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("pdf")
	assert.Error(t, err)
	assert.Equal(t, "text/csv", FormatCSV.ContentType())
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSV(&buf, sampleRecords()))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Date", rows[0][0])
	assert.Equal(t, []string{"2024-01-08", "09:00", "17:30", "12:00", "12:30", "30", "0", "0", "8.00", "18:00", ""}, rows[1])
	assert.Equal(t, "", rows[2][3])
	assert.Equal(t, "no break, yes, really", rows[2][10])
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	exportedAt := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, JSON(&buf, sampleRecords(), nil, exportedAt))

	var out struct {
		ExportDate   string                   `json:"export_date"`
		TotalRecords int                      `json:"total_records"`
		TotalHours   float64                  `json:"total_hours"`
		Records      []map[string]interface{} `json:"records"`
		Holidays     []interface{}            `json:"holidays"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "2024-01-31", out.ExportDate)
	assert.Equal(t, 2, out.TotalRecords)
	assert.InDelta(t, 16.5, out.TotalHours, 1e-9)
	assert.Equal(t, "09:00", out.Records[0]["check_in"])
	assert.NotContains(t, out.Records[1], "break_in")
	assert.NotNil(t, out.Holidays)
}

func TestXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, XLSX(&buf, sampleRecords(), sampleHolidays()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Records", "Holidays"}, f.GetSheetList())

	rows, err := f.GetRows("Records")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Check-in", rows[0][1])
	assert.Equal(t, "2024-01-08", rows[1][0])
	assert.Equal(t, "Total", rows[3][0])

	total, err := f.GetCellValue("Records", "I4")
	require.NoError(t, err)
	assert.Equal(t, "16.5", total)

	hol, err := f.GetRows("Holidays")
	require.NoError(t, err)
	require.Len(t, hol, 2)
	assert.Equal(t, "half_day", hol[1][1])
}

func TestWriteDispatch(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleRecords(), nil))
	assert.Contains(t, buf.String(), "Expected leave")
}
