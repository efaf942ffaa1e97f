// Package app assembles the service dependency graphs.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"

	"github.com/threatcanvas/integrations/internal/adapter/analyzer"
	"github.com/threatcanvas/integrations/internal/adapter/githubapi"
	"github.com/threatcanvas/integrations/internal/adapter/queue/bulkscan"
	"github.com/threatcanvas/integrations/internal/adapter/repository/postgres"
	"github.com/threatcanvas/integrations/internal/adapter/vcs"
	"github.com/threatcanvas/integrations/internal/domain/webhook"
	handlerscheduler "github.com/threatcanvas/integrations/internal/handler/scheduler"
	handlerwebhook "github.com/threatcanvas/integrations/internal/handler/webhook"
	"github.com/threatcanvas/integrations/internal/infra/config"
	infraqueue "github.com/threatcanvas/integrations/internal/infra/queue"
	infrascheduler "github.com/threatcanvas/integrations/internal/infra/scheduler"
	"github.com/threatcanvas/integrations/internal/usecase/batchscan"
	"github.com/threatcanvas/integrations/internal/usecase/rescan"
	"github.com/threatcanvas/integrations/internal/usecase/webhookproc"
)

type ContainerConfig struct {
	Config *config.Config
	Pool   *pgxpool.Pool
}

func (c ContainerConfig) Validate() error {
	if c.Config == nil {
		return fmt.Errorf("config is required")
	}
	if c.Pool == nil {
		return fmt.Errorf("pool is required")
	}
	return nil
}

func (c ContainerConfig) ValidateWebhookd() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Config.WebhookSecret == "" {
		return fmt.Errorf("webhook secret is required")
	}
	return nil
}

// newFetcher builds the clone-then-walk pipeline shared by every service
// that analyzes repositories.
func newFetcher(cfg *config.Config) *vcs.Fetcher {
	cloner := vcs.NewGitCloner(
		vcs.WithCloneTimeout(cfg.CloneTimeout),
		vcs.WithTempRoot(cfg.ScanTempDir),
	)
	return vcs.NewFetcher(cloner, analyzer.NewTreeWalker())
}

// newReporters builds the GitHub API client serving both post-analysis
// surfaces, or nils when no token is configured. Nil reporters disable PR
// comments and summary issues without disabling analysis.
func newReporters(cfg *config.Config) (webhook.CommentPoster, webhook.IssueOpener, error) {
	if cfg.GitHubToken == "" {
		slog.Info("github token not configured, PR comments and summary issues disabled")
		return nil, nil, nil
	}

	client, err := githubapi.New(cfg.GitHubToken, githubapi.WithBaseURL(cfg.GitHubAPIBaseURL))
	if err != nil {
		return nil, nil, fmt.Errorf("create github api client: %w", err)
	}
	return client, client, nil
}

type WebhookdContainer struct {
	Handler *handlerwebhook.Handler
}

func NewWebhookdContainer(ctx context.Context, cfg ContainerConfig) (*WebhookdContainer, error) {
	if err := cfg.ValidateWebhookd(); err != nil {
		return nil, fmt.Errorf("invalid container config: %w", err)
	}

	comments, issues, err := newReporters(cfg.Config)
	if err != nil {
		return nil, err
	}

	processor := webhookproc.NewProcessor(
		postgres.NewAuditSink(cfg.Pool),
		postgres.NewThreatModelStore(cfg.Pool),
		postgres.NewAnalysisStore(cfg.Pool),
		newFetcher(cfg.Config),
		comments,
		issues,
		cfg.Config.WebhookSecret,
		webhookproc.WithMaxConcurrentClones(int64(cfg.Config.MaxConcurrentClones)),
	)

	return &WebhookdContainer{
		Handler: handlerwebhook.NewHandler(processor),
	}, nil
}

type WorkerContainer struct {
	Workers *river.Workers
}

func NewWorkerContainer(ctx context.Context, cfg ContainerConfig) (*WorkerContainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid container config: %w", err)
	}

	orchestrator := batchscan.New(newFetcher(cfg.Config))
	worker := bulkscan.NewWorker(
		orchestrator,
		postgres.NewThreatModelStore(cfg.Pool),
		postgres.NewAnalysisStore(cfg.Pool),
	)

	workers := river.NewWorkers()
	river.AddWorker(workers, worker)

	return &WorkerContainer{
		Workers: workers,
	}, nil
}

type SchedulerContainer struct {
	RescanHandler *handlerscheduler.RescanHandler
	Scheduler     *infrascheduler.Scheduler
	queueClient   *infraqueue.Client
	schedulerLock *infrascheduler.DistributedLock
}

func NewSchedulerContainer(ctx context.Context, cfg ContainerConfig) (*SchedulerContainer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid container config: %w", err)
	}

	queueClient, err := infraqueue.NewClient(ctx, cfg.Pool)
	if err != nil {
		return nil, fmt.Errorf("create queue client: %w", err)
	}

	schedulerLock := infrascheduler.NewDistributedLock(cfg.Pool, handlerscheduler.RescanLockKey)

	rescanner := rescan.New(
		postgres.NewThreatModelStore(cfg.Pool),
		vcs.NewGitCloner(vcs.WithCloneTimeout(cfg.Config.CloneTimeout)),
		queueClient,
		rescan.WithStaleAfter(cfg.Config.RescanStaleAfter),
		rescan.WithScanConcurrency(cfg.Config.BatchConcurrency),
	)

	return &SchedulerContainer{
		RescanHandler: handlerscheduler.NewRescanHandler(rescanner, schedulerLock),
		Scheduler:     infrascheduler.New(),
		queueClient:   queueClient,
		schedulerLock: schedulerLock,
	}, nil
}

func (c *SchedulerContainer) Close() error {
	var errs []error

	if c.schedulerLock != nil {
		if err := c.schedulerLock.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close scheduler lock: %w", err))
		}
	}

	if c.queueClient != nil {
		if err := c.queueClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close queue client: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close scheduler container: %v", errs)
	}
	return nil
}
