package githubapi

import "errors"

var (
	// ErrTransient indicates a retryable failure: network error, 5xx, 429
	// or 408. Surfaced only after the retry budget is exhausted.
	ErrTransient = errors.New("transient API error")

	// ErrPermanent indicates a non-retryable failure (4xx other than 429).
	ErrPermanent = errors.New("permanent API error")

	// ErrNotConfigured indicates the client was constructed without a token.
	ErrNotConfigured = errors.New("github token not configured")
)
