// Package batchscan fans repository fetch-and-analyze out over many URLs
// under a bounded concurrency cap. Used by the bulk-scan queue worker and the
// operator CLI.
package batchscan

import (
	"context"
	"log/slog"
	"sync"

	"github.com/threatcanvas/integrations/internal/domain/scan"
)

const DefaultConcurrency = 3

type Orchestrator struct {
	fetcher scan.Fetcher
}

func New(fetcher scan.Fetcher) *Orchestrator {
	return &Orchestrator{fetcher: fetcher}
}

// AnalyzeMany fetches and analyzes every URL, at most concurrency at a time.
// Input URLs are deduplicated preserving order, then processed in sequential
// chunks of size concurrency; within a chunk all fetches run concurrently and
// the next chunk starts only after the whole chunk finishes. One repository's
// failure never cancels or blocks its siblings.
//
// Invariant: len(Succeeded) + len(Failed) equals the deduplicated input size
// and the key sets are disjoint.
func (o *Orchestrator) AnalyzeMany(ctx context.Context, urls []string, concurrency int) *scan.BatchResult {
	if concurrency < 1 {
		concurrency = 1
	}

	deduped := dedupe(urls)
	result := &scan.BatchResult{
		Succeeded: make(map[string]*scan.RepositoryAnalysis),
		Failed:    make(map[string]error),
	}

	var mu sync.Mutex

	for start := 0; start < len(deduped); start += concurrency {
		chunk := deduped[start:min(start+concurrency, len(deduped))]

		var wg sync.WaitGroup
		for _, url := range chunk {
			wg.Add(1)
			go func() {
				defer wg.Done()

				analysis, err := o.fetcher.FetchAndAnalyze(ctx, url)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					result.Failed[url] = err
					return
				}
				result.Succeeded[url] = analysis
			}()
		}
		wg.Wait()

		slog.InfoContext(ctx, "batch progress",
			"processed", len(result.Succeeded)+len(result.Failed),
			"total", len(deduped),
			"succeeded", len(result.Succeeded),
			"failed", len(result.Failed),
		)
	}

	return result
}

func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	out := make([]string, 0, len(urls))
	for _, url := range urls {
		if seen[url] {
			continue
		}
		seen[url] = true
		out = append(out, url)
	}
	return out
}
