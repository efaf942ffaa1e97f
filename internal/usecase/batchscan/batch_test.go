package batchscan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/threatcanvas/integrations/internal/domain/scan"
)

type mockFetcher struct {
	fetchFn func(ctx context.Context, repoURL string, opts ...scan.FetchOption) (*scan.RepositoryAnalysis, error)
}

func (m *mockFetcher) FetchAndAnalyze(ctx context.Context, repoURL string, opts ...scan.FetchOption) (*scan.RepositoryAnalysis, error) {
	return m.fetchFn(ctx, repoURL, opts...)
}

func urlsFixture(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://github.com/org/repo-%d", i)
	}
	return urls
}

func TestAnalyzeMany_Invariant(t *testing.T) {
	tests := []struct {
		name        string
		n           int
		concurrency int
	}{
		{"single", 1, 1},
		{"exact chunks", 6, 3},
		{"ragged chunks", 7, 3},
		{"concurrency exceeds input", 2, 10},
		{"zero concurrency clamps to one", 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &mockFetcher{fetchFn: func(_ context.Context, url string, _ ...scan.FetchOption) (*scan.RepositoryAnalysis, error) {
				if strings.HasSuffix(url, "-1") {
					return nil, errors.New("boom")
				}
				return &scan.RepositoryAnalysis{}, nil
			}}

			result := New(fetcher).AnalyzeMany(context.Background(), urlsFixture(tt.n), tt.concurrency)

			if got := len(result.Succeeded) + len(result.Failed); got != tt.n {
				t.Errorf("succeeded+failed = %d, want %d", got, tt.n)
			}
			for url := range result.Succeeded {
				if _, dup := result.Failed[url]; dup {
					t.Errorf("%s present in both maps", url)
				}
			}
		})
	}
}

func TestAnalyzeMany_FailureDoesNotAbortBatch(t *testing.T) {
	var calls atomic.Int32
	fetcher := &mockFetcher{fetchFn: func(_ context.Context, url string, _ ...scan.FetchOption) (*scan.RepositoryAnalysis, error) {
		calls.Add(1)
		if strings.HasSuffix(url, "-0") {
			return nil, scan.ErrCloneFailed
		}
		return &scan.RepositoryAnalysis{}, nil
	}}

	result := New(fetcher).AnalyzeMany(context.Background(), urlsFixture(5), 2)

	if n := calls.Load(); n != 5 {
		t.Errorf("fetches = %d, want 5 (failure must not abort siblings)", n)
	}
	if len(result.Failed) != 1 || len(result.Succeeded) != 4 {
		t.Errorf("succeeded=%d failed=%d", len(result.Succeeded), len(result.Failed))
	}
	if !errors.Is(result.Failed["https://github.com/org/repo-0"], scan.ErrCloneFailed) {
		t.Errorf("failed error = %v", result.Failed["https://github.com/org/repo-0"])
	}
}

func TestAnalyzeMany_BoundedConcurrency(t *testing.T) {
	const concurrency = 3

	var mu sync.Mutex
	inflight, peak := 0, 0

	fetcher := &mockFetcher{fetchFn: func(context.Context, string, ...scan.FetchOption) (*scan.RepositoryAnalysis, error) {
		mu.Lock()
		inflight++
		if inflight > peak {
			peak = inflight
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		inflight--
		mu.Unlock()
		return &scan.RepositoryAnalysis{}, nil
	}}

	New(fetcher).AnalyzeMany(context.Background(), urlsFixture(10), concurrency)

	if peak > concurrency {
		t.Errorf("peak in-flight fetches = %d, want <= %d", peak, concurrency)
	}
}

func TestAnalyzeMany_DeduplicatesURLs(t *testing.T) {
	var calls atomic.Int32
	fetcher := &mockFetcher{fetchFn: func(context.Context, string, ...scan.FetchOption) (*scan.RepositoryAnalysis, error) {
		calls.Add(1)
		return &scan.RepositoryAnalysis{}, nil
	}}

	url := "https://github.com/org/repo"
	result := New(fetcher).AnalyzeMany(context.Background(), []string{url, url, url}, 2)

	if n := calls.Load(); n != 1 {
		t.Errorf("fetches = %d, want 1 after dedup", n)
	}
	if len(result.Succeeded) != 1 {
		t.Errorf("succeeded = %d, want 1", len(result.Succeeded))
	}
}

func TestAnalyzeMany_EmptyInput(t *testing.T) {
	fetcher := &mockFetcher{fetchFn: func(context.Context, string, ...scan.FetchOption) (*scan.RepositoryAnalysis, error) {
		t.Fatal("no fetches expected")
		return nil, nil
	}}

	result := New(fetcher).AnalyzeMany(context.Background(), nil, 3)
	if len(result.Succeeded) != 0 || len(result.Failed) != 0 {
		t.Errorf("result = %+v", result)
	}
}
