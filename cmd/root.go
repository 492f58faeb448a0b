package cmd

import (
	"fmt"
	"os"

	"github.com/skalski/evermult/internal/utils"
	"github.com/spf13/cobra"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "evermult",
	Short: "Rewrites Everhour daily time entries by a configurable multiplier, exactly once per entry.",
	Long: `evermult scans the time entries of a configured set of Everhour users for one
calendar day and multiplies each entry's duration, guaranteeing at most one
mutation per entry across runs via a durable ledger. Pre-mutation backups and
a dry-run mode are built in.`,
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.evermult.yaml)")

	// Global flags
	rootCmd.PersistentFlags().StringP("proxy", "", "", "HTTP Proxy (Useful for debugging. Example: http://127.0.0.1:8080)")
	rootCmd.PersistentFlags().StringP("loglevel", "l", "info", "Set log level. Available: debug, info, warn, error, fatal")
	rootCmd.PersistentFlags().String("dbpath", "", "Path to SQLite DB file (default: ~/.config/evermult/evermult.sqlite)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".evermult")
		viper.SetConfigType("yaml")
	}

	// EVERHOUR_API_KEY and friends keep working for deployments configured
	// through the environment.
	viper.SetEnvPrefix("")
	viper.AutomaticEnv()
	viper.BindEnv("everhour.api_key", "EVERHOUR_API_KEY")
	viper.BindEnv("users", "EMPLOYEES_IDS")
	viper.BindEnv("multiplier", "TIME_MULTIPLIER")
	viper.BindEnv("dry_run", "DRY_RUN")

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; create it with defaults.
			home, _ := homedir.Dir()
			configPath := home + "/.evermult.yaml"
			if err := viper.SafeWriteConfigAs(configPath); err != nil {
				fmt.Printf("Error creating config file: %s", err)
			}
		}
	}

	// Set default values for all keys
	viper.SetDefault("everhour.api_key", "")
	viper.SetDefault("everhour.base_url", "")
	viper.SetDefault("everhour.update_capability", "native")
	viper.SetDefault("users", []string{})
	viper.SetDefault("multiplier", 1.5)
	viper.SetDefault("dry_run", false)
	viper.SetDefault("concurrency", 1)
	viper.SetDefault("schedule.hour", 1)
	viper.SetDefault("schedule.minute", 0)
	viper.SetDefault("run_on_start", false)
	viper.SetDefault("dashboard.username", "")
	viper.SetDefault("dashboard.password", "")

	// Init log library
	levelString, _ := rootCmd.PersistentFlags().GetString("loglevel")
	utils.SetLogLevel(levelString)
}
