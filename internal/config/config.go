package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the configuration for the application.
type Config struct {
	// Local store
	DBPath string

	// Plan generation
	NumPlans       int
	SolveTimeLimit time.Duration

	// Sync server (optional; sync commands fail with a login error when it is
	// unset or when no credentials are stored locally)
	ServerURL string
}

// NewFromEnv creates a new Config object from environment variables.
// Local-first settings fall back to defaults; malformed values are errors.
func NewFromEnv() (*Config, error) {
	cfg := &Config{
		DBPath:         "data/mealplanner.db",
		NumPlans:       3,
		SolveTimeLimit: 10 * time.Second,
	}

	if v := os.Getenv("MEALPLANNER_DB_PATH"); v != "" {
		cfg.DBPath = v
	}

	if v := os.Getenv("MEALPLANNER_NUM_PLANS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("MEALPLANNER_NUM_PLANS must be a positive integer, got %q", v)
		}
		cfg.NumPlans = n
	}

	if v := os.Getenv("MEALPLANNER_SOLVE_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("MEALPLANNER_SOLVE_TIMEOUT_SECONDS must be a positive integer, got %q", v)
		}
		cfg.SolveTimeLimit = time.Duration(n) * time.Second
	}

	cfg.ServerURL = os.Getenv("MEALPLANNER_SERVER_URL")

	return cfg, nil
}
