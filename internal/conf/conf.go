package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/torrichelli/subledger/internal/biz/domain"
)

// Config represents application configuration
type Config struct {
	// Path to the SQLite ledger database
	DBPath string

	// Retention windows in days, evaluated per batch run
	RetentionWindows []int

	// What to do with an invite token that resolves to no inviter
	AttributionPolicy domain.AttributionPolicy

	// Leaderboard size for daily reports
	TopInvitersLimit int

	// Debug mode
	Debug bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		homeDir, _ := os.UserHomeDir()
		dbPath = filepath.Join(homeDir, ".subledger", "ledger.db")
	}

	windows := []int{7, 14, 30}
	if val := os.Getenv("RETENTION_WINDOWS"); val != "" {
		if parsed := parseWindows(val); len(parsed) > 0 {
			windows = parsed
		}
	}

	policy := domain.PolicyDropAttribution
	if val := os.Getenv("ATTRIBUTION_POLICY"); val != "" {
		if p := domain.AttributionPolicy(val); p.Valid() {
			policy = p
		}
	}

	topLimit := 3
	if val := os.Getenv("TOP_INVITERS_LIMIT"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			topLimit = parsed
		}
	}

	return &Config{
		DBPath:            dbPath,
		RetentionWindows:  windows,
		AttributionPolicy: policy,
		TopInvitersLimit:  topLimit,
		Debug:             os.Getenv("DEBUG") == "true",
	}
}

func parseWindows(val string) []int {
	var windows []int
	for _, part := range strings.Split(val, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n <= 0 {
			return nil
		}
		windows = append(windows, n)
	}
	return windows
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return &ConfigError{Field: "DB_PATH", Message: "required"}
	}
	if len(c.RetentionWindows) == 0 {
		return &ConfigError{Field: "RETENTION_WINDOWS", Message: "at least one window required"}
	}
	if !c.AttributionPolicy.Valid() {
		return &ConfigError{Field: "ATTRIBUTION_POLICY", Message: "must be drop or reject"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
