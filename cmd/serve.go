package cmd

import (
	"context"
	"time"

	"github.com/skalski/evermult/internal/server"
	"github.com/skalski/evermult/internal/utils"
	"github.com/skalski/evermult/pkg/batch"
	"github.com/skalski/evermult/pkg/timerecord"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd implements: evermult serve
// Runs the dashboard web server and the daily scheduler in one process.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard and the daily scheduler",
	RunE: func(cmd *cobra.Command, args []string) error {
		listenAddr, _ := cmd.Flags().GetString("listen")
		noSchedule, _ := cmd.Flags().GetBool("no-schedule")
		proxy, _ := rootCmd.PersistentFlags().GetString("proxy")
		dbPath, _ := rootCmd.PersistentFlags().GetString("dbpath")

		// Fail fast on config problems before exposing anything.
		if _, err := buildRunConfig(); err != nil {
			return err
		}
		client, err := buildClient(proxy)
		if err != nil {
			return err
		}
		db, err := openDB(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		runner := &batch.Runner{Source: client, Mutator: client, DB: db, Log: utils.Log}

		ctx := cmd.Context()
		if !noSchedule {
			go scheduleLoop(ctx, runner)
		}

		if viper.GetBool("run_on_start") {
			go runScheduled(ctx, runner, timerecord.Yesterday())
		}

		srv := &server.Server{
			DB:     db,
			Runner: runner,
			Config: func() batch.RunConfig {
				cfg, err := buildRunConfig()
				if err != nil {
					utils.Log.Errorf("Invalid config: %v", err)
				}
				return cfg
			},
			Schedule: func() (int, int) {
				return viper.GetInt("schedule.hour"), viper.GetInt("schedule.minute")
			},
			Username: viper.GetString("dashboard.username"),
			Password: viper.GetString("dashboard.password"),
		}
		utils.Log.Infof("Dashboard listening on %s", listenAddr)
		return srv.Start(ctx, listenAddr)
	},
}

// scheduleLoop fires one batch run per day at the configured local time,
// always targeting the previous calendar day.
func scheduleLoop(ctx context.Context, runner *batch.Runner) {
	for {
		next := nextRunTime(time.Now(), viper.GetInt("schedule.hour"), viper.GetInt("schedule.minute"))
		utils.Log.Infof("Scheduler active, next run at %s", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		runScheduled(ctx, runner, timerecord.Yesterday())
	}
}

func runScheduled(ctx context.Context, runner *batch.Runner, day timerecord.Date) {
	cfg, err := buildRunConfig()
	if err != nil {
		utils.Log.Errorf("Scheduled run aborted: %v", err)
		return
	}
	if _, err := runner.RunForDate(ctx, day, cfg); err != nil {
		utils.Log.Errorf("Scheduled run for %s failed: %v", day, err)
	}
}

// nextRunTime returns the next occurrence of hour:minute strictly after now.
func nextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().Bool("no-schedule", false, "Disable the daily scheduler, dashboard only")
}
