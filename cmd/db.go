package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"text/tabwriter"

	"github.com/skalski/evermult/internal/utils"
	"github.com/spf13/cobra"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Interact with the evermult database",
}

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start an interactive shell to the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := rootCmd.PersistentFlags().GetString("dbpath")
		absPath, err := utils.GetAbsDBPath(dbPath)
		if err != nil {
			return err
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			return fmt.Errorf("database file not found: %s", absPath)
		}

		// Check if sqlite3 is in PATH
		sqlitePath, err := exec.LookPath("sqlite3")
		if err != nil {
			return fmt.Errorf("sqlite3 command not found in your PATH. Please install it to use the db shell")
		}

		// Print schema first
		fmt.Println("--> Database schema:")
		schemaCmd := exec.Command(sqlitePath, absPath, ".schema")
		schemaCmd.Stdout = os.Stdout
		schemaCmd.Stderr = os.Stderr
		if err := schemaCmd.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: couldn't retrieve schema: %v\n", err)
		}
		fmt.Println("\n--> Starting interactive shell... (Ctrl+D to exit)")

		c := exec.Command(sqlitePath, absPath)
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr

		return c.Run()
	},
}

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Prints per-user ledger statistics.",
	Long:  "Prints, for every user in the ledger, how many entries have been transformed and over which date range.",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := rootCmd.PersistentFlags().GetString("dbpath")
		db, err := openDB(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetLedgerStats(cmd.Context())
		if err != nil {
			return err
		}

		if len(stats) == 0 {
			fmt.Println("The ledger is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "USER\tENTRIES\tFIRST DAY\tLAST DAY\t")

		total := 0
		for _, s := range stats {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t\n", s.UserID, s.Entries, s.FirstDay, s.LastDay)
			total += s.Entries
		}

		fmt.Fprintln(w, " \t \t \t \t")
		fmt.Fprintf(w, "TOTAL\t%d\t\t\t\n", total)

		w.Flush()

		return nil
	},
}

// backupsCmd lists stored pre-mutation snapshots.
var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List stored pre-mutation snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, _ := rootCmd.PersistentFlags().GetString("dbpath")
		user, _ := cmd.Flags().GetString("user")
		date, _ := cmd.Flags().GetString("date")

		db, err := openDB(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		infos, err := db.ListBackups(cmd.Context(), user, date)
		if err != nil {
			return err
		}
		if len(infos) == 0 {
			fmt.Println("No backups found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "HANDLE\tUSER\tDAY\tRECORDS\tTAKEN AT\t")
		for _, b := range infos {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t\n", b.Handle, b.UserID, b.Day, b.Records, b.TakenAt.Format("2006-01-02 15:04:05"))
		}
		w.Flush()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(shellCmd)
	dbCmd.AddCommand(statsCmd)
	dbCmd.AddCommand(backupsCmd)

	backupsCmd.Flags().String("user", "", "Filter by user id")
	backupsCmd.Flags().String("date", "", "Filter by date (YYYY-MM-DD)")
}
