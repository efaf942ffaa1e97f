package vcs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/threatcanvas/integrations/internal/domain/scan"
)

var _ scan.Fetcher = (*Fetcher)(nil)

type repoCloner interface {
	Clone(ctx context.Context, cloneURL string, opts scan.FetchOptions) (*Checkout, error)
}

// Fetcher implements scan.Fetcher: shallow clone into an isolated temporary
// path, one tree walk, guaranteed cleanup on every exit path.
type Fetcher struct {
	cloner   repoCloner
	analyzer scan.TreeAnalyzer
}

func NewFetcher(cloner *GitCloner, analyzer scan.TreeAnalyzer) *Fetcher {
	return &Fetcher{cloner: cloner, analyzer: analyzer}
}

func (f *Fetcher) FetchAndAnalyze(ctx context.Context, repoURL string, opts ...scan.FetchOption) (*scan.RepositoryAnalysis, error) {
	ref, err := scan.ParseRepositoryURL(repoURL)
	if err != nil {
		return nil, err
	}

	var options scan.FetchOptions
	for _, opt := range opts {
		opt(&options)
	}

	start := time.Now()

	checkout, err := f.cloner.Clone(ctx, ref.CloneURL, options)
	if err != nil {
		fetchFailures.WithLabelValues("clone").Inc()
		return nil, err
	}
	defer func() {
		if closeErr := checkout.Close(); closeErr != nil {
			slog.Error("failed to remove clone directory",
				"error", closeErr,
				"repository", ref.FullName(),
				"path", checkout.Root(),
			)
		}
	}()

	report, err := f.analyzer.AnalyzeTree(ctx, checkout.Root())
	if err != nil {
		fetchFailures.WithLabelValues("analyze").Inc()
		return nil, fmt.Errorf("%w: %s: %w", scan.ErrAnalysisFailed, ref.FullName(), err)
	}

	branch := checkout.Branch()
	if branch == "" {
		branch = options.Branch
	}

	fetchDuration.Observe(time.Since(start).Seconds())

	return &scan.RepositoryAnalysis{
		Repository: ref,
		Branch:     branch,
		CommitSHA:  checkout.CommitSHA(),
		Report:     *report,
		AnalyzedAt: time.Now().UTC(),
	}, nil
}
