package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/skalski/evermult/internal/utils"
	"github.com/skalski/evermult/pkg/batch"
	"github.com/skalski/evermult/pkg/timerecord"
	"github.com/spf13/cobra"
)

// runCmd implements: evermult run
// One-shot batch run for a single date, used manually or from cron.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the multiplier batch for one date",
	Long: `Fetches each configured user's time entries for the target date (yesterday by
default), multiplies eligible durations and updates them upstream, at most
once per entry. Use --dry-run to see the decisions without any writes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dateStr, _ := cmd.Flags().GetString("date")
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		multiplier, _ := cmd.Flags().GetFloat64("multiplier")
		proxy, _ := rootCmd.PersistentFlags().GetString("proxy")
		dbPath, _ := rootCmd.PersistentFlags().GetString("dbpath")

		cfg, err := buildRunConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("dry-run") {
			cfg.DryRun = dryRun
		}
		if cmd.Flags().Changed("multiplier") {
			cfg.Multiplier = multiplier
			if err := cfg.Validate(); err != nil {
				return err
			}
		}

		day := timerecord.Yesterday()
		if dateStr != "" {
			if day, err = timerecord.ParseDate(dateStr); err != nil {
				return err
			}
		}

		client, err := buildClient(proxy)
		if err != nil {
			return err
		}

		if !cfg.DryRun {
			lock, err := utils.NewRunLock(dbPath)
			if err != nil {
				return err
			}
			if err := lock.Acquire(); err != nil {
				return err
			}
			defer lock.Release()
		}

		db, err := openDB(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		runner := &batch.Runner{Source: client, Mutator: client, DB: db, Log: utils.Log}
		summaries, err := runner.RunForDate(cmd.Context(), day, cfg)
		if err != nil {
			return err
		}

		printSummaries(day, summaries)
		return nil
	},
}

func printSummaries(day timerecord.Date, summaries []batch.RunSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "USER\tFOUND\tUPDATED\tSKIPPED\tFAILED\tDATA LOSS\tHOURS\t\n")
	for _, s := range summaries {
		if s.Err != nil {
			fmt.Fprintf(w, "%s\tERROR: %v\t\t\t\t\t\t\n", s.UserID, s.Err)
			continue
		}
		skipped := s.SkippedNoTask + s.SkippedZero + s.SkippedMarked + s.SkippedLedger
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%.2f -> %.2f\t\n",
			s.UserID, s.Found, s.Transformed, skipped, s.Failed+s.Anomalies, s.DataLoss,
			s.OriginalHours(), s.UpdatedHours())
	}
	w.Flush()
	fmt.Printf("Date: %s\n", day)
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("date", "D", "", "Target date (YYYY-MM-DD, default: yesterday)")
	runCmd.Flags().Bool("dry-run", false, "Log intended actions without mutating anything")
	runCmd.Flags().Float64P("multiplier", "m", 0, "Override the configured multiplier for this run")
}
