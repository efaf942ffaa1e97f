package config

import (
	"os"
	"testing"
	"time"
)

func clearEnvVars(t *testing.T) {
	t.Helper()
	envVars := []string{
		"DATABASE_URL",
		"GITHUB_TOKEN",
		"GITHUB_API_BASE_URL",
		"GITHUB_WEBHOOK_SECRET",
		"HTTP_ADDR",
		"CLONE_TIMEOUT",
		"BATCH_CONCURRENCY",
		"MAX_CONCURRENT_CLONES",
		"SCAN_TEMP_DIR",
		"RESCAN_SCHEDULE",
		"RESCAN_STALE_AFTER",
		"QUEUE_MAX_WORKERS",
	}
	for _, env := range envVars {
		os.Unsetenv(env)
	}
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	clearEnvVars(t)

	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL is unset")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("DATABASE_URL", "postgres://test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.GitHubAPIBaseURL != "https://api.github.com" {
		t.Errorf("GitHubAPIBaseURL = %q", cfg.GitHubAPIBaseURL)
	}
	if cfg.CloneTimeout != 5*time.Minute {
		t.Errorf("CloneTimeout = %v, want 5m", cfg.CloneTimeout)
	}
	if cfg.BatchConcurrency != 3 {
		t.Errorf("BatchConcurrency = %d, want 3", cfg.BatchConcurrency)
	}
	if cfg.MaxConcurrentClones != 4 {
		t.Errorf("MaxConcurrentClones = %d, want 4", cfg.MaxConcurrentClones)
	}
	if cfg.RescanSchedule != "0 3 * * *" {
		t.Errorf("RescanSchedule = %q", cfg.RescanSchedule)
	}
	if cfg.RescanStaleAfter != 7*24*time.Hour {
		t.Errorf("RescanStaleAfter = %v, want 168h", cfg.RescanStaleAfter)
	}
	if cfg.QueueMaxWorkers != 5 {
		t.Errorf("QueueMaxWorkers = %d, want 5", cfg.QueueMaxWorkers)
	}
	if cfg.GitHubToken != "" || cfg.WebhookSecret != "" {
		t.Error("optional secrets must default to empty")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("GITHUB_TOKEN", "ghp_abc")
	t.Setenv("GITHUB_API_BASE_URL", "https://ghe.example.com/api/v3")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("CLONE_TIMEOUT", "90s")
	t.Setenv("BATCH_CONCURRENCY", "8")
	t.Setenv("RESCAN_STALE_AFTER", "24h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.GitHubToken != "ghp_abc" {
		t.Errorf("GitHubToken = %q", cfg.GitHubToken)
	}
	if cfg.GitHubAPIBaseURL != "https://ghe.example.com/api/v3" {
		t.Errorf("GitHubAPIBaseURL = %q", cfg.GitHubAPIBaseURL)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.CloneTimeout != 90*time.Second {
		t.Errorf("CloneTimeout = %v", cfg.CloneTimeout)
	}
	if cfg.BatchConcurrency != 8 {
		t.Errorf("BatchConcurrency = %d", cfg.BatchConcurrency)
	}
	if cfg.RescanStaleAfter != 24*time.Hour {
		t.Errorf("RescanStaleAfter = %v", cfg.RescanStaleAfter)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("CLONE_TIMEOUT", "not-a-duration")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed CLONE_TIMEOUT")
	}
}

func TestLoad_InvalidInt(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("BATCH_CONCURRENCY", "many")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed BATCH_CONCURRENCY")
	}
}
