package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/worktime/internal/export"
	"github.com/worktime/internal/format"
	"github.com/worktime/internal/storage"
	"github.com/worktime/internal/visualization"
)

var recordsCmd = &cobra.Command{
	Use:     "records",
	Aliases: []string{"ls", "list"},
	Short:   "List saved work days",
	Long: `List saved work days. Without --from and --to the current week is shown.

Examples:
  worktime records
  worktime records --from 2024-01-01 --to 2024-01-31
  worktime records --user bob   (admin only)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to := rangeFlags(cmd)
		if from == "" && to == "" {
			p, err := trackerService.WeekProgress(cmd.Context(), me(), targetUser, trackerService.Now())
			if err != nil {
				return err
			}
			from, to = storage.FormatDate(p.WeekStart), storage.FormatDate(p.WeekEnd)
		}
		records, err := trackerService.Records(cmd.Context(), me(), targetUser, from, to)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No records in range")
			return nil
		}
		renderRecords(os.Stdout, records)
		return nil
	},
}

func renderRecords(w io.Writer, records []*storage.DailyRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Date", "In", "Out", "Break", "Credit", "Meetings", "Hours", "Leave", "Note"})

	var total float64
	for _, r := range records {
		total += r.TotalHours
		t.AppendRow(table.Row{
			r.Date,
			format.Clock(r.CheckIn),
			format.Clock(r.CheckOut),
			fmt.Sprintf("%dm", r.BreakMinutes),
			fmt.Sprintf("%dm", r.CreditMinutes),
			fmt.Sprintf("%dm", r.MeetingMinutes),
			fmt.Sprintf("%.2f", r.TotalHours),
			r.ExpectedLeave,
			r.Note,
		})
	}
	t.AppendFooter(table.Row{"Total", "", "", "", "", "", fmt.Sprintf("%.2f", total), "", ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 7, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	t.Render()
}

var undoCmd = &cobra.Command{
	Use:   "undo [date]",
	Short: "Revert the last change to a day",
	Long:  `Revert the last save or delete of a day (default today).`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := trackerService.Undo(cmd.Context(), me(), targetUser, argOrEmpty(args))
		if errors.Is(err, storage.ErrNothingToUndo) {
			fmt.Println("Nothing to undo")
			return nil
		}
		if err != nil {
			return err
		}
		if rec == nil {
			fmt.Println("Undone: the day is no longer recorded")
			return nil
		}
		fmt.Printf("Restored %s: %s - %s (%.2fh)\n", rec.Date, format.Clock(rec.CheckIn), format.Clock(rec.CheckOut), rec.TotalHours)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <date>",
	Aliases: []string{"del", "rm"},
	Short:   "Delete a saved day",
	Long:    `Delete a saved day. The deletion can be reverted with 'undo'.`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := trackerService.Delete(cmd.Context(), me(), targetUser, args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted %s (undo with: worktime undo %s)\n", args[0], args[0])
		return nil
	},
}

var saveCmd = &cobra.Command{
	Use:   "save <date>",
	Short: "Save or correct a past day",
	Long: `Save a complete day directly, replacing any earlier record for that date.

Example:
  worktime save 2024-01-08 --in 09:00 --out 17:30 --break 12:00-12:30`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := inputFromFlags(cmd)
		if err != nil {
			return err
		}
		note, _ := cmd.Flags().GetString("note")
		rec, res, err := trackerService.Finalize(cmd.Context(), me(), targetUser, args[0], in, note)
		if err != nil {
			return err
		}
		fmt.Println(format.RenderBox("Saved "+rec.Date, format.Summary(res)))
		return nil
	},
}

var holidayCmd = &cobra.Command{
	Use:     "holiday",
	Aliases: []string{"off"},
	Short:   "Manage holidays and leave",
}

var holidayAddCmd = &cobra.Command{
	Use:   "add <date> [note]",
	Short: "Mark a day off (holiday, leave or half_day)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kindStr, _ := cmd.Flags().GetString("kind")
		kind, err := storage.ParseHolidayKind(kindStr)
		if err != nil {
			return err
		}
		h, err := trackerService.AddHoliday(cmd.Context(), me(), targetUser, args[0], kind, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Printf("Added %s on %s (%s)\n", h.Kind, h.Date, h.ID[:8])
		return nil
	},
}

var holidayListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List days off",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, to := rangeFlags(cmd)
		holidays, err := trackerService.Holidays(cmd.Context(), me(), targetUser, from, to)
		if err != nil {
			return err
		}
		if len(holidays) == 0 {
			fmt.Println("No days off recorded")
			return nil
		}
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"ID", "Date", "Kind", "Note"})
		for _, h := range holidays {
			t.AppendRow(table.Row{h.ID[:8], h.Date, h.Kind, h.Note})
		}
		t.Render()
		return nil
	},
}

var holidayRmCmd = &cobra.Command{
	Use:     "rm <id>",
	Aliases: []string{"delete"},
	Short:   "Remove a day off",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := resolveHolidayID(cmd, args[0])
		if err != nil {
			return err
		}
		if err := trackerService.DeleteHoliday(cmd.Context(), me(), id); err != nil {
			return err
		}
		fmt.Printf("Removed %s\n", id[:8])
		return nil
	},
}

// resolveHolidayID accepts the short ID shown by 'holiday list'.
func resolveHolidayID(cmd *cobra.Command, prefix string) (string, error) {
	holidays, err := trackerService.Holidays(cmd.Context(), me(), targetUser, "", "")
	if err != nil {
		return "", err
	}
	var match string
	for _, h := range holidays {
		if strings.HasPrefix(h.ID, prefix) {
			if match != "" {
				return "", fmt.Errorf("ambiguous id %q", prefix)
			}
			match = h.ID
		}
	}
	if match == "" {
		return "", storage.ErrNotFound
	}
	return match, nil
}

var weekCmd = &cobra.Command{
	Use:   "week [date]",
	Short: "Show weekly progress",
	Long:  `Show hours worked this week (or the week of the given date) against the weekly target.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref := trackerService.Now()
		if len(args) == 1 {
			t, err := storage.ParseDate(args[0], cfg.Location())
			if err != nil {
				return err
			}
			ref = t
		}
		p, err := trackerService.WeekProgress(cmd.Context(), me(), targetUser, ref)
		if err != nil {
			return err
		}

		if svgPath, _ := cmd.Flags().GetString("svg"); svgPath != "" {
			svg := visualization.WeekSVG(p, cfg.Policy().RequiredHours)
			if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
				return err
			}
			fmt.Printf("Chart written to %s\n", svgPath)
		}

		var summary string
		if p.RemainingHours > 0 {
			summary = format.StyleYellow.Render(fmt.Sprintf("Remaining: %.2fh", p.RemainingHours))
			if p.RemainingWorkDays > 0 {
				summary += format.StyleDim.Render(fmt.Sprintf(" (%.2fh/day over %g days)", p.RequiredDailyHours, p.RemainingWorkDays))
			}
		} else {
			summary = format.StyleGreen.Render(fmt.Sprintf("Overtime: +%.2fh", p.TotalHours-p.TargetHours))
		}
		fmt.Printf("Week: %s - %s | Total: %.2f/%.2fh | %s\n",
			p.WeekStart.Format("Jan 2"), p.WeekEnd.Format("Jan 2"), p.TotalHours, p.TargetHours, summary)

		off := make(map[string]storage.HolidayKind)
		for _, h := range p.Holidays {
			off[h.Date] = h.Kind
		}
		today := trackerService.Today()
		for i := 0; i < 7; i++ {
			day := p.WeekStart.AddDate(0, 0, i)
			key := storage.FormatDate(day)
			line := fmt.Sprintf("  %s %s: %.2fh", day.Format("01/02"), day.Format("Mon"), p.DaysWorked[key])
			if kind, ok := off[key]; ok {
				line += " " + format.StyleDim.Render("("+string(kind)+")")
			}
			if key == today {
				line += " *"
			}
			fmt.Println(line)
		}
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:     "export [csv|json|xlsx]",
	Aliases: []string{"exp"},
	Short:   "Export records and days off",
	Long: `Export saved days and days off.

Examples:
  worktime export csv -o hours.csv
  worktime export json --from 2024-01-01 --to 2024-01-31
  worktime export xlsx -o hours.xlsx`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f := export.FormatCSV
		if len(args) == 1 {
			var err error
			if f, err = export.ParseFormat(args[0]); err != nil {
				return err
			}
		}
		outputPath, _ := cmd.Flags().GetString("output")
		if f == export.FormatXLSX && outputPath == "" {
			return fmt.Errorf("xlsx export needs an output file (-o)")
		}

		from, to := rangeFlags(cmd)
		records, err := trackerService.Records(cmd.Context(), me(), targetUser, from, to)
		if err != nil {
			return err
		}
		holidays, err := trackerService.Holidays(cmd.Context(), me(), targetUser, from, to)
		if err != nil {
			return err
		}

		var output io.Writer = os.Stdout
		if outputPath != "" {
			file, err := os.Create(outputPath)
			if err != nil {
				return err
			}
			defer file.Close()
			output = file
		}
		if err := export.Write(output, f, records, holidays); err != nil {
			return err
		}
		if outputPath != "" {
			fmt.Printf("Exported %d day(s) to %s\n", len(records), outputPath)
		}
		return nil
	},
}

func rangeFlags(cmd *cobra.Command) (string, string) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	return from, to
}

func argOrEmpty(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func init() {
	for _, c := range []*cobra.Command{recordsCmd, holidayListCmd, exportCmd} {
		c.Flags().String("from", "", "Start date (YYYY-MM-DD)")
		c.Flags().String("to", "", "End date (YYYY-MM-DD)")
	}
	exportCmd.Flags().StringP("output", "o", "", "Output file (stdout if empty)")
	weekCmd.Flags().String("svg", "", "Also write an SVG chart of the week to this file")

	dayFlags(saveCmd)
	saveCmd.Flags().StringP("note", "n", "", "Note for the day")

	holidayAddCmd.Flags().StringP("kind", "k", string(storage.KindHoliday), "holiday, leave or half_day")
	holidayCmd.AddCommand(holidayAddCmd)
	holidayCmd.AddCommand(holidayListCmd)
	holidayCmd.AddCommand(holidayRmCmd)
}
