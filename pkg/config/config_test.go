package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	for _, k := range []string{
		"BILLCTL_API_URL", "BILLCTL_REQUIRE_FILE_SELECTION", "BILLCTL_TIMEOUT",
		"BILLCTL_DATA_DIR", "BILLCTL_LOG_FILE", "BILLCTL_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:8000" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.RequireFileSelection {
		t.Error("RequireFileSelection = true by default")
	}
	if cfg.RequestTimeout != 90*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.DataDir == "" || cfg.LogFile == "" {
		t.Errorf("paths not defaulted: dir=%q log=%q", cfg.DataDir, cfg.LogFile)
	}
}

func TestOverrides(t *testing.T) {
	t.Setenv("BILLCTL_API_URL", "https://billing.example.com/")
	t.Setenv("BILLCTL_REQUIRE_FILE_SELECTION", "true")
	t.Setenv("BILLCTL_TIMEOUT", "30")
	t.Setenv("BILLCTL_DATA_DIR", "/tmp/billctl-test")
	t.Setenv("BILLCTL_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIBaseURL != "https://billing.example.com" {
		t.Errorf("APIBaseURL = %q, want trailing slash stripped", cfg.APIBaseURL)
	}
	if !cfg.RequireFileSelection {
		t.Error("RequireFileSelection = false")
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v", cfg.RequestTimeout)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
	if got := cfg.ProfilePath(); got != "/tmp/billctl-test/profile.json" {
		t.Errorf("ProfilePath = %q", got)
	}
	if got := cfg.HistoryPath(); got != "/tmp/billctl-test/history.db" {
		t.Errorf("HistoryPath = %q", got)
	}
}

func TestInvalidValuesIgnored(t *testing.T) {
	t.Setenv("BILLCTL_REQUIRE_FILE_SELECTION", "maybe")
	t.Setenv("BILLCTL_TIMEOUT", "-5")
	t.Setenv("BILLCTL_LOG_LEVEL", "loud")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RequireFileSelection {
		t.Error("unparseable bool applied")
	}
	if cfg.RequestTimeout != 90*time.Second {
		t.Errorf("RequestTimeout = %v, want default kept", cfg.RequestTimeout)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want default kept", cfg.LogLevel)
	}
}
