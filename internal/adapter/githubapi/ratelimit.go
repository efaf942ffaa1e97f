package githubapi

import (
	"net/http"
	"strconv"
	"time"
)

// RateLimitState mirrors the x-ratelimit-* response headers of the last API
// response. Owned by the client; callers get copies and must not mutate.
// Advisory only: concurrent callers may race past a stale Remaining count and
// rely on the 429 path as the authoritative backstop.
type RateLimitState struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
	Used      int
}

// parseRateLimit extracts rate-limit state from response headers. Returns
// false when the headers are absent (e.g. non-API endpoints).
func parseRateLimit(h http.Header) (RateLimitState, bool) {
	limitRaw := h.Get("x-ratelimit-limit")
	if limitRaw == "" {
		return RateLimitState{}, false
	}

	state := RateLimitState{}
	state.Limit, _ = strconv.Atoi(limitRaw)
	state.Remaining, _ = strconv.Atoi(h.Get("x-ratelimit-remaining"))
	state.Used, _ = strconv.Atoi(h.Get("x-ratelimit-used"))

	if resetRaw := h.Get("x-ratelimit-reset"); resetRaw != "" {
		if unix, err := strconv.ParseInt(resetRaw, 10, 64); err == nil {
			state.ResetAt = time.Unix(unix, 0)
		}
	}

	return state, true
}

// resetWait computes how long to sleep after a 429: until the advertised
// reset, or the default when the header is absent or already in the past.
func resetWait(h http.Header, now time.Time) time.Duration {
	resetRaw := h.Get("x-ratelimit-reset")
	if resetRaw == "" {
		return defaultRateLimitWait
	}

	unix, err := strconv.ParseInt(resetRaw, 10, 64)
	if err != nil {
		return defaultRateLimitWait
	}

	wait := time.Unix(unix, 0).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}
