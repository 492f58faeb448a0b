package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/skalski/evermult/internal/utils"
	"github.com/skalski/evermult/pkg/batch"
	"github.com/skalski/evermult/pkg/engine"
	"github.com/skalski/evermult/pkg/everhour"
	"github.com/skalski/evermult/pkg/storage"
	"github.com/spf13/viper"
)

// userRoster reads the configured users, accepting both a YAML list and the
// comma-separated form the EMPLOYEES_IDS env variable uses.
func userRoster() []string {
	raw := viper.GetStringSlice("users")
	if len(raw) == 1 && strings.Contains(raw[0], ",") {
		raw = strings.Split(raw[0], ",")
	}
	var users []string
	for _, u := range raw {
		if u = strings.TrimSpace(u); u != "" {
			users = append(users, u)
		}
	}
	return users
}

// buildRunConfig assembles and validates the run configuration. Any problem
// here is fatal before a run starts.
func buildRunConfig() (batch.RunConfig, error) {
	capability, err := engine.ParseCapability(viper.GetString("everhour.update_capability"))
	if err != nil {
		return batch.RunConfig{}, err
	}
	cfg := batch.RunConfig{
		Users:       userRoster(),
		Multiplier:  viper.GetFloat64("multiplier"),
		DryRun:      viper.GetBool("dry_run"),
		Capability:  capability,
		Concurrency: viper.GetInt("concurrency"),
	}
	if err := cfg.Validate(); err != nil {
		return batch.RunConfig{}, err
	}
	return cfg, nil
}

// buildClient creates the Everhour API client. A missing API key is a
// configuration error.
func buildClient(proxy string) (*everhour.Client, error) {
	apiKey := viper.GetString("everhour.api_key")
	if apiKey == "" {
		return nil, fmt.Errorf("missing Everhour API key (set everhour.api_key in ~/.evermult.yaml or EVERHOUR_API_KEY)")
	}
	opts := []everhour.Option{}
	if base := viper.GetString("everhour.base_url"); base != "" {
		opts = append(opts, everhour.WithBaseURL(base))
	}
	if proxy != "" {
		opts = append(opts, everhour.WithProxy(proxy))
	}
	return everhour.NewClient(apiKey, opts...), nil
}

// openDB resolves the db path, makes sure its directory exists and opens the
// database.
func openDB(dbPath string) (*storage.DB, error) {
	absPath, err := utils.GetAbsDBPath(dbPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, err
	}
	return storage.Open(absPath)
}
