package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/worktime/internal/auth"
	"github.com/worktime/internal/config"
	"github.com/worktime/internal/draft"
	"github.com/worktime/internal/logging"
	"github.com/worktime/internal/storage"
	"github.com/worktime/internal/tracker"
)

var (
	cfg            *config.Config
	db             *storage.Database
	drafts         *draft.Store
	trackerService *tracker.Tracker
	logger         zerolog.Logger

	targetUser string
)

var rootCmd = &cobra.Command{
	Use:   "worktime",
	Short: "Work time calculation and tracking",
	Long: `worktime tracks check-in, check-out, breaks and meetings, tells you how
long you have worked today and when you can leave.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger = logging.Setup(cfg.LogLevel, string(cfg.LogFormat))

		db, err = storage.New(cfg.DatabasePath)
		if err != nil {
			return err
		}
		drafts, err = draft.Open(cfg.DraftPath)
		if err != nil {
			return err
		}
		trackerService = tracker.New(db,
			tracker.WithDrafts(drafts),
			tracker.WithPolicy(cfg.Policy()),
			tracker.WithLocation(cfg.Location()),
			tracker.WithLogger(logger),
		)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if drafts != nil {
			if err := drafts.Close(); err != nil {
				return err
			}
		}
		if db != nil {
			return db.Close()
		}
		return nil
	},
}

// me is the identity the CLI acts as.
func me() auth.Identity {
	return auth.Identity{UserID: cfg.User, Admin: cfg.User == cfg.AdminUser}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&targetUser, "user", "u", "", "Act on another user's data (admin only)")

	rootCmd.AddCommand(checkinCmd)
	rootCmd.AddCommand(breakCmd)
	rootCmd.AddCommand(meetingCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(checkoutCmd)
	rootCmd.AddCommand(discardCmd)
	rootCmd.AddCommand(calcCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(undoCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(holidayCmd)
	rootCmd.AddCommand(weekCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
