package webhook

import "errors"

var (
	// ErrBadSignature indicates the payload signature did not verify.
	// Never retried; a definitive rejection.
	ErrBadSignature = errors.New("bad webhook signature")

	// ErrNotConfigured indicates the webhook shared secret is missing.
	ErrNotConfigured = errors.New("webhook secret not configured")
)
