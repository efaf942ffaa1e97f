package scan

import "errors"

var (
	// ErrInvalidInput indicates a request that fails validation before any work starts.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCloneFailed indicates the git clone step failed (network, auth, timeout).
	ErrCloneFailed = errors.New("clone failed")

	// ErrAnalysisFailed indicates the tree walk over a cloned repository failed.
	ErrAnalysisFailed = errors.New("analysis failed")

	// ErrNotFound indicates a lookup matched no record.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an insert hit a unique constraint.
	ErrAlreadyExists = errors.New("already exists")

	// ErrSaveFailed indicates a persistence operation failed.
	ErrSaveFailed = errors.New("save failed")
)
