// Package bulkscan defines the river job that fans a batch of repository
// URLs through fetch-and-analyze and persists the survivors.
package bulkscan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/threatcanvas/integrations/internal/domain/scan"
	"github.com/threatcanvas/integrations/internal/usecase/batchscan"
	"github.com/threatcanvas/integrations/internal/usecase/webhookproc"
)

const (
	maxRetryAttempts = 3

	// Duplicate inserts within this window collapse into one job; covers
	// scheduler jitter and operators double-firing the enqueue CLI.
	deduplicationWindow = 15 * time.Minute

	jobTimeout = 30 * time.Minute
)

type Args struct {
	URLs        []string `json:"urls" river:"unique"`
	Concurrency int      `json:"concurrency,omitempty"`
}

func (Args) Kind() string { return "bulk_scan" }

func (Args) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: maxRetryAttempts,
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: deduplicationWindow,
		},
	}
}

type Worker struct {
	river.WorkerDefaults[Args]
	orchestrator *batchscan.Orchestrator
	models       scan.ThreatModelStore
	analyses     scan.AnalysisStore
}

func NewWorker(orchestrator *batchscan.Orchestrator, models scan.ThreatModelStore, analyses scan.AnalysisStore) *Worker {
	return &Worker{
		orchestrator: orchestrator,
		models:       models,
		analyses:     analyses,
	}
}

// Timeout covers the worst case of a full batch of slow clones.
func (w *Worker) Timeout(job *river.Job[Args]) time.Duration {
	return jobTimeout
}

func (w *Worker) Work(ctx context.Context, job *river.Job[Args]) error {
	args := job.Args
	if len(args.URLs) == 0 {
		return river.JobCancel(fmt.Errorf("%w: no repository URLs", scan.ErrInvalidInput))
	}

	concurrency := args.Concurrency
	if concurrency <= 0 {
		concurrency = batchscan.DefaultConcurrency
	}

	slog.InfoContext(ctx, "processing bulk scan job",
		"job_id", job.ID,
		"urls", len(args.URLs),
		"concurrency", concurrency,
	)

	result := w.orchestrator.AnalyzeMany(ctx, args.URLs, concurrency)

	saveFailures := 0
	for url, analysis := range result.Succeeded {
		if err := w.persist(ctx, analysis); err != nil {
			saveFailures++
			slog.ErrorContext(ctx, "failed to persist bulk scan result",
				"job_id", job.ID,
				"url", url,
				"error", err,
			)
		}
	}

	slog.InfoContext(ctx, "bulk scan job completed",
		"job_id", job.ID,
		"succeeded", len(result.Succeeded),
		"failed", len(result.Failed),
		"save_failures", saveFailures,
	)

	if saveFailures > 0 {
		return fmt.Errorf("persist bulk scan: %d of %d results failed to save", saveFailures, len(result.Succeeded))
	}
	if len(result.Failed) == 0 {
		return nil
	}
	if len(result.Succeeded) == 0 && allPermanent(result.Failed) {
		// No retry will change the outcome.
		return river.JobCancel(fmt.Errorf("bulk scan: all %d repositories failed permanently", len(result.Failed)))
	}
	if transient := countTransient(result.Failed); transient > 0 {
		return fmt.Errorf("bulk scan: %d of %d repositories failed transiently", transient, len(args.URLs))
	}
	// Permanent failures alongside successes: retrying would redo the whole
	// batch for repositories that cannot succeed.
	return nil
}

func (w *Worker) persist(ctx context.Context, analysis *scan.RepositoryAnalysis) error {
	fullName := analysis.Repository.FullName()

	model, err := w.ensureThreatModel(ctx, fullName)
	if err != nil {
		return fmt.Errorf("ensure threat model %s: %w", fullName, err)
	}

	if _, err := w.analyses.Save(ctx, scan.SaveAnalysisParams{ThreatModelID: model.ID, Analysis: analysis}); err != nil {
		return fmt.Errorf("%w: %w", scan.ErrSaveFailed, err)
	}
	return nil
}

func (w *Worker) ensureThreatModel(ctx context.Context, fullName string) (*scan.ThreatModel, error) {
	model, err := w.models.FindByName(ctx, fullName)
	if err == nil {
		return model, nil
	}
	if !errors.Is(err, scan.ErrNotFound) {
		return nil, err
	}

	actorID, err := w.models.FindOrCreateSystemActor(ctx, webhookproc.SystemActorEmail)
	if err != nil {
		return nil, err
	}

	model, err = w.models.Create(ctx, fullName, actorID)
	if errors.Is(err, scan.ErrAlreadyExists) {
		return w.models.FindByName(ctx, fullName)
	}
	return model, err
}

func allPermanent(failed map[string]error) bool {
	for _, err := range failed {
		if !isPermanentError(err) {
			return false
		}
	}
	return true
}

func countTransient(failed map[string]error) int {
	n := 0
	for _, err := range failed {
		if !isPermanentError(err) {
			n++
		}
	}
	return n
}

// isPermanentError reports whether retrying the repository could never
// succeed. Clone and analysis failures stay retryable: most are network or
// disk weather.
func isPermanentError(err error) bool {
	return errors.Is(err, scan.ErrInvalidInput)
}
