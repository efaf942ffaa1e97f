package scan

import (
	"context"
	"fmt"
	"time"
)

// ThreatModelStore persists threat model and system actor records.
// Create returns ErrAlreadyExists on a unique-constraint violation; callers
// treat that as a successful concurrent lookup and re-fetch.
type ThreatModelStore interface {
	FindByName(ctx context.Context, name string) (*ThreatModel, error)
	Create(ctx context.Context, name string, createdBy UUID) (*ThreatModel, error)
	FindOrCreateSystemActor(ctx context.Context, email string) (UUID, error)
	ListStale(ctx context.Context, olderThan time.Duration) ([]StaleModel, error)
}

// SaveAnalysisParams carries one completed analysis to the store.
type SaveAnalysisParams struct {
	ThreatModelID UUID
	Analysis      *RepositoryAnalysis
}

func (p SaveAnalysisParams) Validate() error {
	if p.ThreatModelID == NilUUID {
		return fmt.Errorf("%w: threat model ID is required", ErrInvalidInput)
	}
	if p.Analysis == nil {
		return fmt.Errorf("%w: analysis is required", ErrInvalidInput)
	}
	if p.Analysis.CommitSHA == "" {
		return fmt.Errorf("%w: commit SHA is required", ErrInvalidInput)
	}
	return nil
}

// AnalysisStore persists repository analyses.
type AnalysisStore interface {
	Save(ctx context.Context, params SaveAnalysisParams) (UUID, error)
}

// TaskQueue enqueues background scan jobs.
type TaskQueue interface {
	EnqueueBulkScan(ctx context.Context, urls []string, concurrency int) error
}
