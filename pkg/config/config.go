// Package config loads client configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the client needs to run. Defaults point at a
// backend on localhost so the binary works with zero configuration.
type Config struct {
	// APIBaseURL is the backend root (scheme://host[:port], no trailing
	// slash). BILLCTL_API_URL.
	APIBaseURL string

	// RequireFileSelection enables the strict selection policy: a file must
	// be selected before a question can be submitted, and refreshes keep the
	// selection valid. BILLCTL_REQUIRE_FILE_SELECTION.
	RequireFileSelection bool

	// DataDir holds the profile file and history database.
	// BILLCTL_DATA_DIR, default ~/.local/share/billctl (os.UserConfigDir
	// fallback on other platforms).
	DataDir string

	// LogFile receives slog output while the TUI owns the terminal.
	// BILLCTL_LOG_FILE, default <DataDir>/billctl.log.
	LogFile string

	// LogLevel is one of debug, info, warn, error. BILLCTL_LOG_LEVEL.
	LogLevel slog.Level

	// RequestTimeout is the per-request deadline. BILLCTL_TIMEOUT (seconds).
	// The analysis engine can take a while, so the default is generous.
	RequestTimeout time.Duration
}

// Load reads configuration. A .env file in the working directory is applied
// first when present; real environment variables win over it.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		APIBaseURL:     "http://localhost:8000",
		LogLevel:       slog.LevelInfo,
		RequestTimeout: 90 * time.Second,
	}

	if v := os.Getenv("BILLCTL_API_URL"); v != "" {
		cfg.APIBaseURL = strings.TrimSuffix(v, "/")
	}
	if v := os.Getenv("BILLCTL_REQUIRE_FILE_SELECTION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			cfg.RequireFileSelection = b
		}
	}
	if v := os.Getenv("BILLCTL_TIMEOUT"); v != "" {
		secs, err := strconv.Atoi(v)
		if err == nil && secs > 0 {
			cfg.RequestTimeout = time.Duration(secs) * time.Second
		}
	}

	cfg.DataDir = os.Getenv("BILLCTL_DATA_DIR")
	if cfg.DataDir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = "."
		}
		cfg.DataDir = filepath.Join(base, "billctl")
	}

	cfg.LogFile = os.Getenv("BILLCTL_LOG_FILE")
	if cfg.LogFile == "" {
		cfg.LogFile = filepath.Join(cfg.DataDir, "billctl.log")
	}

	switch strings.ToLower(os.Getenv("BILLCTL_LOG_LEVEL")) {
	case "debug":
		cfg.LogLevel = slog.LevelDebug
	case "warn":
		cfg.LogLevel = slog.LevelWarn
	case "error":
		cfg.LogLevel = slog.LevelError
	case "info", "":
	default:
	}

	return cfg, nil
}

// ProfilePath returns the location of the remembered-identity file.
func (c Config) ProfilePath() string {
	return filepath.Join(c.DataDir, "profile.json")
}

// HistoryPath returns the location of the local history database.
func (c Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}
