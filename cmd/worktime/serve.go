package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/worktime/internal/api"
	"github.com/worktime/internal/auth"
	"github.com/worktime/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the JSON API on HTTPAddr. Requests under /api/v1 need a Bearer token
issued with 'worktime token'. /healthz and /metrics are open.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.HTTPAddr = addr
		}
		if err := cfg.ValidateServer(); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		handler := api.New(trackerService, []byte(cfg.JWTSecret), logger).Handler()
		server := api.NewServer(cfg.HTTPAddr, handler, logger)
		server.OnShutdown(func() {
			logger.Info().Msg("http server stopped")
		})
		return server.Start(ctx)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token [user]",
	Short: "Issue an API token",
	Long: `Issue a signed API token for a user (default: yourself). Only the admin
user may issue tokens for others or admin tokens.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateServer(); err != nil {
			return err
		}
		user, err := auth.Authorize(me(), argOrEmpty(args))
		if err != nil {
			return err
		}
		asAdmin, _ := cmd.Flags().GetBool("admin")
		if asAdmin && !me().Admin {
			return auth.ErrForbidden
		}
		ttl := cfg.TokenTTL
		if cmd.Flags().Changed("ttl") {
			ttl, _ = cmd.Flags().GetDuration("ttl")
		}

		token, err := auth.Issue([]byte(cfg.JWTSecret), auth.Identity{UserID: user, Admin: asAdmin}, ttl)
		if err != nil {
			return err
		}
		fmt.Println(token)
		logger.Debug().Str("user", user).Bool("admin", asAdmin).Time("expires", time.Now().Add(ttl)).Msg("token issued")
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Long:  `Display the current configuration settings and work rules.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if tz, _ := cmd.Flags().GetString("timezone"); tz != "" {
			cfg.TimeZone = tz
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(cfg); err != nil {
				return err
			}
			fmt.Printf("Timezone set to %s\n", tz)
		}

		p := cfg.Policy()
		fmt.Printf("Config: DB=%s | Draft=%s | TZ=%s | User=%s\n", cfg.DatabasePath, cfg.DraftPath, cfg.Location(), cfg.User)
		fmt.Printf("Rules: Daily: %s | Standard break: %s | Max break: %s | Weekly: %.2fh\n",
			p.RequiredHours, p.StandardBreak, p.MaxBreak, p.WeeklyTarget(0).Hours())
		fmt.Printf("API: %s | Token TTL: %s | Log: %s (%s)\n", cfg.HTTPAddr, cfg.TokenTTL, cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default from config)")
	tokenCmd.Flags().Bool("admin", false, "Issue an admin token")
	tokenCmd.Flags().Duration("ttl", 0, "Token lifetime (default from config)")
	configCmd.Flags().String("timezone", "", "Set and save the timezone (e.g., Europe/Berlin)")
}
