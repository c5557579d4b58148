package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/worktime/internal/draft"
	"github.com/worktime/internal/format"
	"github.com/worktime/internal/storage"
	"github.com/worktime/internal/tracker"
	"github.com/worktime/internal/work"
)

var checkinCmd = &cobra.Command{
	Use:     "checkin [note]",
	Aliases: []string{"in", "ci"},
	Short:   "Start today's work day",
	Long:    `Check in to start today's work day. Optionally add a note or override the time with -t.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := timeFlag(cmd, "time")
		if err != nil {
			return err
		}
		d, err := trackerService.ClockIn(me(), at, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Printf("Checked in at %s\n", format.Clock(d.CheckIn))
		if d.Note != "" {
			fmt.Printf("Note: %s\n", d.Note)
		}
		return nil
	},
}

var breakCmd = &cobra.Command{
	Use:     "break <start> <end>",
	Aliases: []string{"b"},
	Short:   "Set today's break",
	Long: `Record today's planned break (HH:MM HH:MM). A break shorter than the
standard break is credited up to the standard length.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := parseInterval(args[0], args[1])
		if err != nil {
			return err
		}
		if _, err := trackerService.SetBreak(me(), start, end); err != nil {
			return err
		}
		fmt.Printf("Break set: %s - %s (%s)\n", start, end, format.Duration(work.Span(start, end)))
		return nil
	},
}

var meetingCmd = &cobra.Command{
	Use:     "meeting <start> <end>",
	Aliases: []string{"mt"},
	Short:   "Add a meeting to today",
	Long:    `Add a meeting (HH:MM HH:MM). Meetings outside working hours count as extra work.`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		start, end, err := parseInterval(args[0], args[1])
		if err != nil {
			return err
		}
		d, err := trackerService.AddMeeting(me(), start, end)
		if err != nil {
			return err
		}
		fmt.Printf("Meeting added: %s - %s (%d today)\n", start, end, len(d.Meetings))
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"st", "today"},
	Short:   "Show today's progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, res, err := trackerService.Status(me())
		if err != nil {
			if work.KindOf(err) != "" {
				fmt.Println(format.Failure(err))
				return nil
			}
			return err
		}
		fmt.Println(format.RenderBox(dayTitle(d), format.Summary(res)))
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"live", "w"},
	Short:   "Recalculate today's progress every interval",
	Long: `Watch today's progress live. The display refreshes every LiveInterval
until you check out (from another terminal) or press Ctrl+C.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		id := me()
		interval := cfg.LiveInterval
		if cmd.Flags().Changed("interval") {
			interval, _ = cmd.Flags().GetDuration("interval")
		}

		// the day being watched, kept so an overnight shift finds its record
		// once it is checked out
		day := trackerService.Today()
		snapshot := func(ctx context.Context) (work.Input, error) {
			d, err := drafts.Current(id.UserID)
			if err == nil {
				day = d.Date
				return d.Input(trackerService.Now()), nil
			}
			if !errors.Is(err, draft.ErrNoDraft) {
				return work.Input{}, err
			}
			// Checked out elsewhere: show the final record once and stop.
			rec, err := trackerService.Record(ctx, id, "", day)
			if errors.Is(err, storage.ErrNotFound) {
				return work.Input{}, nil
			}
			if err != nil {
				return work.Input{}, err
			}
			return rec.Input(), nil
		}

		return trackerService.Live(ctx, interval, snapshot, func(tk tracker.Tick) {
			// clear screen
			fmt.Print("\033[H\033[2J")
			if tk.Err != nil {
				fmt.Println(format.Failure(tk.Err))
				return
			}
			fmt.Println(format.RenderBox(tk.Now.Format("Monday, Jan 2 15:04:05"), format.Summary(tk.Result)))
			fmt.Println(format.StyleDim.Render("Ctrl+C to stop"))
		})
	},
}

var checkoutCmd = &cobra.Command{
	Use:     "checkout",
	Aliases: []string{"out", "co"},
	Short:   "Finish and save today's work day",
	RunE: func(cmd *cobra.Command, args []string) error {
		at, err := timeFlag(cmd, "time")
		if err != nil {
			return err
		}
		rec, res, err := trackerService.ClockOut(cmd.Context(), me(), at)
		if errors.Is(err, draft.ErrNoDraft) {
			return fmt.Errorf("not checked in today")
		}
		if err != nil {
			if work.KindOf(err) != "" {
				return errors.New(format.Failure(err))
			}
			return err
		}
		fmt.Println(format.RenderBox("Saved "+rec.Date, format.Summary(res)))
		return nil
	},
}

var discardCmd = &cobra.Command{
	Use:   "discard",
	Short: "Throw away today's unsaved work day",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := trackerService.Discard(me()); err != nil {
			if errors.Is(err, draft.ErrNoDraft) {
				fmt.Println("Nothing to discard")
				return nil
			}
			return err
		}
		fmt.Println("Today's draft discarded")
		return nil
	},
}

var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Calculate a work day without saving it",
	Long: `Calculate worked time and expected leave time from the given times.

Examples:
  worktime calc --in 09:00 --out 17:30 --break 12:00-12:30
  worktime calc --in 08:45 --meeting 18:00-19:00`,
	RunE: func(cmd *cobra.Command, args []string) error {
		in, err := inputFromFlags(cmd)
		if err != nil {
			return err
		}
		res, err := trackerService.Preview(in)
		if err != nil {
			if work.KindOf(err) != "" {
				return errors.New(format.Failure(err))
			}
			return err
		}
		fmt.Println(format.RenderBox("Calculation", format.Summary(res)))
		return nil
	},
}

// dayFlags registers the flags that describe a work day.
func dayFlags(cmd *cobra.Command) {
	cmd.Flags().String("in", "", "Check-in time (HH:MM)")
	cmd.Flags().String("out", "", "Check-out time (HH:MM)")
	cmd.Flags().String("break", "", "Break interval (HH:MM-HH:MM)")
	cmd.Flags().StringSlice("meeting", nil, "Meeting interval (HH:MM-HH:MM), repeatable")
}

func inputFromFlags(cmd *cobra.Command) (work.Input, error) {
	var in work.Input
	var err error
	if in.CheckIn, err = timeFlag(cmd, "in"); err != nil {
		return in, err
	}
	if in.CheckOut, err = timeFlag(cmd, "out"); err != nil {
		return in, err
	}
	if s, _ := cmd.Flags().GetString("break"); s != "" {
		start, end, err := parseRange(s)
		if err != nil {
			return in, err
		}
		in.BreakIn, in.BreakOut = &start, &end
	}
	meetings, _ := cmd.Flags().GetStringSlice("meeting")
	for _, m := range meetings {
		start, end, err := parseRange(m)
		if err != nil {
			return in, err
		}
		in.Meetings = append(in.Meetings, work.NewMeeting(start, end))
	}
	return in, nil
}

func timeFlag(cmd *cobra.Command, name string) (*work.TimeOfDay, error) {
	s, _ := cmd.Flags().GetString(name)
	if s == "" {
		return nil, nil
	}
	t, err := work.ParseTimeOfDay(s)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", name, err)
	}
	return &t, nil
}

func parseInterval(startStr, endStr string) (work.TimeOfDay, work.TimeOfDay, error) {
	start, err := work.ParseTimeOfDay(startStr)
	if err != nil {
		return work.TimeOfDay{}, work.TimeOfDay{}, err
	}
	end, err := work.ParseTimeOfDay(endStr)
	if err != nil {
		return work.TimeOfDay{}, work.TimeOfDay{}, err
	}
	return start, end, nil
}

// parseRange parses "HH:MM-HH:MM".
func parseRange(s string) (work.TimeOfDay, work.TimeOfDay, error) {
	startStr, endStr, ok := strings.Cut(s, "-")
	if !ok {
		return work.TimeOfDay{}, work.TimeOfDay{}, fmt.Errorf("invalid interval %q (use HH:MM-HH:MM)", s)
	}
	return parseInterval(strings.TrimSpace(startStr), strings.TrimSpace(endStr))
}

func dayTitle(d *draft.Draft) string {
	title := d.Date
	if d.CheckIn != nil {
		title += " since " + format.Clock(d.CheckIn)
	}
	return title
}

func init() {
	checkinCmd.Flags().StringP("time", "t", "", "Override check-in time (HH:MM)")
	checkoutCmd.Flags().StringP("time", "t", "", "Override check-out time (HH:MM)")
	watchCmd.Flags().Duration("interval", 0, "Refresh interval (default from config)")
	dayFlags(calcCmd)
}
