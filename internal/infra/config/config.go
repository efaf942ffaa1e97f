// Package config loads runtime configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	DefaultHTTPAddr            = ":8080"
	DefaultCloneTimeout        = 5 * time.Minute
	DefaultBatchConcurrency    = 3
	DefaultMaxConcurrentClones = 4
	DefaultRescanSchedule      = "0 3 * * *"
	DefaultRescanStaleAfter    = 7 * 24 * time.Hour
	DefaultQueueMaxWorkers     = 5
	DefaultGitHubAPIBaseURL    = "https://api.github.com"
)

type Config struct {
	DatabaseURL string

	// GitHubToken is optional: an empty token disables the API client and
	// with it PR comments.
	GitHubToken      string
	GitHubAPIBaseURL string

	// WebhookSecret is required by webhookd only; worker and scheduler run
	// without it.
	WebhookSecret string

	HTTPAddr string

	CloneTimeout        time.Duration
	BatchConcurrency    int
	MaxConcurrentClones int
	ScanTempDir         string

	RescanSchedule   string
	RescanStaleAfter time.Duration

	QueueMaxWorkers int
}

func Load() (*Config, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	cloneTimeout, err := durationEnv("CLONE_TIMEOUT", DefaultCloneTimeout)
	if err != nil {
		return nil, err
	}
	staleAfter, err := durationEnv("RESCAN_STALE_AFTER", DefaultRescanStaleAfter)
	if err != nil {
		return nil, err
	}
	batchConcurrency, err := intEnv("BATCH_CONCURRENCY", DefaultBatchConcurrency)
	if err != nil {
		return nil, err
	}
	maxClones, err := intEnv("MAX_CONCURRENT_CLONES", DefaultMaxConcurrentClones)
	if err != nil {
		return nil, err
	}
	maxWorkers, err := intEnv("QUEUE_MAX_WORKERS", DefaultQueueMaxWorkers)
	if err != nil {
		return nil, err
	}

	return &Config{
		DatabaseURL:         databaseURL,
		GitHubToken:         os.Getenv("GITHUB_TOKEN"),
		GitHubAPIBaseURL:    stringEnv("GITHUB_API_BASE_URL", DefaultGitHubAPIBaseURL),
		WebhookSecret:       os.Getenv("GITHUB_WEBHOOK_SECRET"),
		HTTPAddr:            stringEnv("HTTP_ADDR", DefaultHTTPAddr),
		CloneTimeout:        cloneTimeout,
		BatchConcurrency:    batchConcurrency,
		MaxConcurrentClones: maxClones,
		ScanTempDir:         os.Getenv("SCAN_TEMP_DIR"),
		RescanSchedule:      stringEnv("RESCAN_SCHEDULE", DefaultRescanSchedule),
		RescanStaleAfter:    staleAfter,
		QueueMaxWorkers:     maxWorkers,
	}, nil
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, v, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, v, err)
	}
	return n, nil
}
