package githubapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	base := []Option{
		WithBaseURL(srv.URL),
		WithRetryWaitBase(time.Millisecond),
	}
	client, err := New("test-token", append(base, opts...)...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return client
}

func TestNew_MissingToken(t *testing.T) {
	_, err := New("")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("New(\"\") = %v, want ErrNotConfigured", err)
	}
}

func TestClient_RequestHeaders(t *testing.T) {
	var got http.Header
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		fmt.Fprint(w, `{}`)
	}))

	if _, err := client.GetRepository(context.Background(), "octocat", "hello"); err != nil {
		t.Fatalf("GetRepository failed: %v", err)
	}

	if auth := got.Get("Authorization"); auth != "Bearer test-token" {
		t.Errorf("Authorization = %q", auth)
	}
	if accept := got.Get("Accept"); accept != "application/vnd.github+json" {
		t.Errorf("Accept = %q", accept)
	}
	if v := got.Get("X-GitHub-Api-Version"); v != "2022-11-28" {
		t.Errorf("X-GitHub-Api-Version = %q", v)
	}
	if ua := got.Get("User-Agent"); ua != defaultUserAgent {
		t.Errorf("User-Agent = %q", ua)
	}
}

func TestClient_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"full_name":"octocat/hello"}`)
	}))

	repo, err := client.GetRepository(context.Background(), "octocat", "hello")
	if err != nil {
		t.Fatalf("GetRepository failed after retries: %v", err)
	}
	if repo.FullName != "octocat/hello" {
		t.Errorf("FullName = %q", repo.FullName)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("underlying requests = %d, want 3", n)
	}
}

func TestClient_TransientBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.GetRepository(context.Background(), "octocat", "hello")
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("error = %v, want ErrTransient", err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("underlying requests = %d, want 3", n)
	}
}

func TestClient_PermanentNoRetry(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.GetRepository(context.Background(), "octocat", "missing")
	if !errors.Is(err, ErrPermanent) {
		t.Fatalf("error = %v, want ErrPermanent", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("underlying requests = %d, want 1 (no retry on 404)", n)
	}
}

func TestClient_RateLimitedThenRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			// Reset already in the past: the client retries immediately.
			w.Header().Set("x-ratelimit-reset", strconv.FormatInt(time.Now().Add(-time.Second).Unix(), 10))
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"full_name":"octocat/hello"}`)
	}))

	repo, err := client.GetRepository(context.Background(), "octocat", "hello")
	if err != nil {
		t.Fatalf("GetRepository failed: %v", err)
	}
	if repo.FullName != "octocat/hello" {
		t.Errorf("FullName = %q", repo.FullName)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("underlying requests = %d, want 2", n)
	}
}

func TestClient_RateLimitedTwiceFails(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-ratelimit-reset", strconv.FormatInt(time.Now().Add(-time.Second).Unix(), 10))
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	_, err := client.GetRepository(context.Background(), "octocat", "hello")
	if !errors.Is(err, ErrTransient) {
		t.Errorf("error = %v, want ErrTransient after second 429", err)
	}
}

func TestClient_TracksRateLimitState(t *testing.T) {
	reset := time.Now().Add(30 * time.Minute).Unix()
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-ratelimit-limit", "5000")
		w.Header().Set("x-ratelimit-remaining", "4821")
		w.Header().Set("x-ratelimit-used", "179")
		w.Header().Set("x-ratelimit-reset", strconv.FormatInt(reset, 10))
		fmt.Fprint(w, `{}`)
	}))

	if _, ok := client.RateLimit(); ok {
		t.Fatal("rate limit state must be empty before any request")
	}

	if _, err := client.GetRepository(context.Background(), "octocat", "hello"); err != nil {
		t.Fatalf("GetRepository failed: %v", err)
	}

	state, ok := client.RateLimit()
	if !ok {
		t.Fatal("rate limit state missing after response")
	}
	if state.Limit != 5000 || state.Remaining != 4821 || state.Used != 179 {
		t.Errorf("state = %+v", state)
	}
	if state.ResetAt.Unix() != reset {
		t.Errorf("ResetAt = %v, want unix %d", state.ResetAt, reset)
	}
}

func TestClient_ThrottleDelaysRequests(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}), WithThrottle(20, 1))

	start := time.Now()
	for range 3 {
		if _, err := client.GetRepository(context.Background(), "octocat", "hello"); err != nil {
			t.Fatalf("GetRepository failed: %v", err)
		}
	}

	// 20 rps, burst 1: two of the three requests wait ~50ms each.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 80ms with throttle", elapsed)
	}
}

func TestResetWait(t *testing.T) {
	now := time.Now()

	t.Run("header absent defaults to 60s", func(t *testing.T) {
		if got := resetWait(http.Header{}, now); got != defaultRateLimitWait {
			t.Errorf("resetWait = %v, want %v", got, defaultRateLimitWait)
		}
	})

	t.Run("future reset", func(t *testing.T) {
		h := http.Header{}
		h.Set("x-ratelimit-reset", strconv.FormatInt(now.Add(10*time.Second).Unix(), 10))
		got := resetWait(h, now)
		if got <= 0 || got > 10*time.Second {
			t.Errorf("resetWait = %v, want (0, 10s]", got)
		}
	})

	t.Run("past reset clamps to zero", func(t *testing.T) {
		h := http.Header{}
		h.Set("x-ratelimit-reset", strconv.FormatInt(now.Add(-time.Minute).Unix(), 10))
		if got := resetWait(h, now); got != 0 {
			t.Errorf("resetWait = %v, want 0", got)
		}
	})

	t.Run("garbage header defaults to 60s", func(t *testing.T) {
		h := http.Header{}
		h.Set("x-ratelimit-reset", "soon")
		if got := resetWait(h, now); got != defaultRateLimitWait {
			t.Errorf("resetWait = %v, want %v", got, defaultRateLimitWait)
		}
	})
}
