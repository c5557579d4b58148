package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/worktime/internal/archive"
	"github.com/worktime/internal/auth"
	"github.com/worktime/internal/visualization"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Write monthly reports to markdown",
	Long: `Write a month of saved days to a markdown report under
<database dir>/history/<user>/YYYY-MM.md.`,
}

func newArchiver() *archive.Archiver {
	historyPath := filepath.Join(filepath.Dir(cfg.DatabasePath), "history")
	return archive.New(trackerService, cfg.Policy(), historyPath)
}


var archiveMonthCmd = &cobra.Command{
	Use:   "month [YYYY-MM]",
	Short: "Archive a month (default last month)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t := trackerService.Now().AddDate(0, -1, 0)
		if len(args) == 1 {
			var err error
			if t, err = time.Parse("2006-01", args[0]); err != nil {
				return fmt.Errorf("invalid format, use YYYY-MM (e.g., 2025-01)")
			}
		}

		path, err := newArchiver().ArchiveMonth(cmd.Context(), me(), targetUser, t.Year(), t.Month())
		if err != nil {
			return err
		}
		fmt.Printf("Archived %s to %s\n", t.Format("January 2006"), path)
		return nil
	},
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived months",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := auth.Authorize(me(), targetUser)
		if err != nil {
			return err
		}
		archives, err := newArchiver().ListArchives(user)
		if err != nil {
			return err
		}
		if len(archives) == 0 {
			fmt.Println("No archives found")
			return nil
		}
		fmt.Println("Archived months:")
		for _, a := range archives {
			fmt.Printf("  %s\n", a)
		}
		return nil
	},
}

var archiveShowCmd = &cobra.Command{
	Use:   "show <YYYY-MM>",
	Short: "Print an archived month",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := time.Parse("2006-01", args[0])
		if err != nil {
			return fmt.Errorf("invalid format, use YYYY-MM (e.g., 2025-01)")
		}
		user, err := auth.Authorize(me(), targetUser)
		if err != nil {
			return err
		}
		content, err := newArchiver().ReadArchive(user, t.Year(), t.Month())
		if err != nil {
			return err
		}
		fmt.Println(content)
		return nil
	},
}

var archiveChartCmd = &cobra.Command{
	Use:   "chart <YYYY-MM>",
	Short: "Write an SVG chart of a month's weekly totals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := time.Parse("2006-01", args[0])
		if err != nil {
			return fmt.Errorf("invalid format, use YYYY-MM (e.g., 2025-01)")
		}
		summary, err := newArchiver().Summary(cmd.Context(), me(), targetUser, t.Year(), t.Month())
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("output")
		if out == "" {
			out = fmt.Sprintf("%s-%s.svg", summary.UserID, args[0])
		}
		if err := os.WriteFile(out, []byte(visualization.MonthSVG(summary)), 0644); err != nil {
			return err
		}
		fmt.Printf("Chart written to %s\n", out)
		return nil
	},
}

func init() {
	archiveChartCmd.Flags().StringP("output", "o", "", "Output file (default <user>-<YYYY-MM>.svg)")
	archiveCmd.AddCommand(archiveChartCmd)
	archiveCmd.AddCommand(archiveMonthCmd)
	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveShowCmd)
}
