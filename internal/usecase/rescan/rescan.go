// Package rescan periodically re-queues threat models whose repository moved
// since their newest analysis.
package rescan

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/threatcanvas/integrations/internal/domain/scan"
)

const (
	DefaultStaleAfter       = 7 * 24 * time.Hour
	DefaultCheckConcurrency = 5
)

type Rescanner struct {
	models scan.ThreatModelStore
	heads  scan.HeadResolver
	queue  scan.TaskQueue

	staleAfter       time.Duration
	checkConcurrency int
	scanConcurrency  int
}

// Config holds rescanner tunables.
type Config struct {
	StaleAfter       time.Duration
	CheckConcurrency int
	ScanConcurrency  int
}

type Option func(*Config)

// WithStaleAfter sets the analysis age beyond which a threat model is
// considered stale. Non-positive values are ignored.
func WithStaleAfter(d time.Duration) Option {
	return func(cfg *Config) {
		if d > 0 {
			cfg.StaleAfter = d
		}
	}
}

// WithCheckConcurrency caps concurrent remote head lookups. Non-positive
// values are ignored.
func WithCheckConcurrency(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.CheckConcurrency = n
		}
	}
}

// WithScanConcurrency sets the concurrency carried into the enqueued bulk
// scan job. Non-positive values are ignored.
func WithScanConcurrency(n int) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.ScanConcurrency = n
		}
	}
}

func New(models scan.ThreatModelStore, heads scan.HeadResolver, queue scan.TaskQueue, opts ...Option) *Rescanner {
	cfg := Config{
		StaleAfter:       DefaultStaleAfter,
		CheckConcurrency: DefaultCheckConcurrency,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Rescanner{
		models:           models,
		heads:            heads,
		queue:            queue,
		staleAfter:       cfg.StaleAfter,
		checkConcurrency: cfg.CheckConcurrency,
		scanConcurrency:  cfg.ScanConcurrency,
	}
}

// Execute lists stale threat models, checks each repository's remote head
// concurrently, and enqueues one bulk scan job covering every repository that
// actually moved. Head lookup failures are logged and skipped; an unreachable
// remote should not block the rest of the sweep.
func (r *Rescanner) Execute(ctx context.Context) error {
	stale, err := r.models.ListStale(ctx, r.staleAfter)
	if err != nil {
		return fmt.Errorf("list stale threat models: %w", err)
	}
	if len(stale) == 0 {
		slog.InfoContext(ctx, "no stale threat models")
		return nil
	}

	var (
		mu   sync.Mutex
		urls []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.checkConcurrency)

	for _, model := range stale {
		g.Go(func() error {
			repoURL := repositoryURL(model.Name)

			headSHA, err := r.heads.ResolveHead(gctx, repoURL)
			if err != nil {
				slog.ErrorContext(gctx, "failed to resolve remote head",
					"threat_model", model.Name,
					"error", err,
				)
				return nil
			}

			if headSHA == model.LastCommitSHA {
				slog.DebugContext(gctx, "repository unchanged since last analysis",
					"threat_model", model.Name,
					"commit", headSHA,
				)
				return nil
			}

			mu.Lock()
			urls = append(urls, repoURL)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if len(urls) == 0 {
		slog.InfoContext(ctx, "rescan sweep completed, nothing moved",
			"stale_candidates", len(stale),
		)
		return nil
	}

	// Deterministic order keeps the job args stable for dedup.
	sort.Strings(urls)

	if err := r.queue.EnqueueBulkScan(ctx, urls, r.scanConcurrency); err != nil {
		return fmt.Errorf("enqueue bulk scan: %w", err)
	}

	slog.InfoContext(ctx, "rescan sweep completed",
		"stale_candidates", len(stale),
		"enqueued", len(urls),
	)
	return nil
}

func repositoryURL(fullName string) string {
	return "https://github.com/" + fullName
}
