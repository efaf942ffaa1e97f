// Package webhookproc drives the webhook event state machine:
// received -> processing -> {processed | failed}, with idempotent resource
// creation and explicitly collected post-analysis side effects.
package webhookproc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/threatcanvas/integrations/internal/domain/scan"
	"github.com/threatcanvas/integrations/internal/domain/webhook"
)

const (
	// SystemActorEmail is the sentinel owner of threat models created by
	// webhook deliveries rather than by a human.
	SystemActorEmail = "system@threatcanvas.local"

	DefaultMaxConcurrentClones = 4
)

// Processor is the webhook event processor. One instance serves all
// deliveries; the clone semaphore caps concurrent fetches across events.
type Processor struct {
	audit    webhook.AuditSink
	models   scan.ThreatModelStore
	analyses scan.AnalysisStore
	fetcher  scan.Fetcher
	comments webhook.CommentPoster
	issues   webhook.IssueOpener
	secret   string
	cloneSem *semaphore.Weighted
}

// Config holds processor tunables.
type Config struct {
	MaxConcurrentClones int64
}

// Option is a functional option for configuring a Processor.
type Option func(*Config)

// WithMaxConcurrentClones caps fetches running concurrently across webhook
// deliveries. Non-positive values are ignored.
func WithMaxConcurrentClones(n int64) Option {
	return func(cfg *Config) {
		if n > 0 {
			cfg.MaxConcurrentClones = n
		}
	}
}

// NewProcessor creates a Processor. comments and issues may be nil when the
// GitHub API integration is not configured; the corresponding post-analysis
// effects are then skipped.
func NewProcessor(
	audit webhook.AuditSink,
	models scan.ThreatModelStore,
	analyses scan.AnalysisStore,
	fetcher scan.Fetcher,
	comments webhook.CommentPoster,
	issues webhook.IssueOpener,
	secret string,
	opts ...Option,
) *Processor {
	cfg := Config{MaxConcurrentClones: DefaultMaxConcurrentClones}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Processor{
		audit:    audit,
		models:   models,
		analyses: analyses,
		fetcher:  fetcher,
		comments: comments,
		issues:   issues,
		secret:   secret,
		cloneSem: semaphore.NewWeighted(cfg.MaxConcurrentClones),
	}
}

// scanPlan is the outcome of classifying an event that needs analysis.
type scanPlan struct {
	repo     webhook.RepositoryInfo
	branch   string
	prNumber int // 0 for push events
}

// ProcessWebhook runs the full state machine for one delivery. Signature
// verification happens before anything is persisted; every authenticated
// event is appended to the audit sink, ignored types included. Analysis and
// persistence failures mark the event failed and propagate; side-effect
// failures (PR comments) are logged and absorbed.
func (p *Processor) ProcessWebhook(ctx context.Context, eventType, deliveryID string, rawBody []byte, signature string) error {
	if p.secret == "" {
		return webhook.ErrNotConfigured
	}
	if !webhook.VerifySignature(rawBody, signature, p.secret) {
		eventsTotal.WithLabelValues(eventType, "rejected").Inc()
		return fmt.Errorf("%w: delivery %s", webhook.ErrBadSignature, deliveryID)
	}

	evt := webhook.NewEvent(eventType, deliveryID, rawBody)
	if err := p.audit.AppendEvent(ctx, evt); err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}

	plan, skipNote, err := p.classify(evt)
	if err != nil {
		return p.fail(ctx, evt, err)
	}
	if plan == nil {
		p.setStatus(ctx, evt, webhook.StatusProcessed, skipNote)
		eventsTotal.WithLabelValues(eventType, "skipped").Inc()
		slog.InfoContext(ctx, "webhook event skipped",
			"delivery_id", deliveryID,
			"event_type", eventType,
			"note", skipNote,
		)
		return nil
	}

	slog.InfoContext(ctx, "processing webhook event",
		"delivery_id", deliveryID,
		"event_type", eventType,
		"repository", plan.repo.FullName,
		"branch", plan.branch,
	)
	p.setStatus(ctx, evt, webhook.StatusProcessing, "")

	model, err := p.ensureThreatModel(ctx, plan.repo.FullName)
	if err != nil {
		return p.fail(ctx, evt, fmt.Errorf("ensure threat model %s: %w", plan.repo.FullName, err))
	}

	analysis, err := p.analyze(ctx, plan)
	if err != nil {
		return p.fail(ctx, evt, err)
	}

	if _, err := p.analyses.Save(ctx, scan.SaveAnalysisParams{ThreatModelID: model.ID, Analysis: analysis}); err != nil {
		return p.fail(ctx, evt, fmt.Errorf("%w: %w", scan.ErrSaveFailed, err))
	}

	note := p.runSideEffects(ctx, evt, plan, analysis)
	p.setStatus(ctx, evt, webhook.StatusProcessed, note)
	eventsTotal.WithLabelValues(eventType, "processed").Inc()

	slog.InfoContext(ctx, "webhook event processed",
		"delivery_id", deliveryID,
		"repository", plan.repo.FullName,
		"total_files", analysis.Report.Stats.TotalFiles,
	)
	return nil
}

// classify dispatches on event type. A nil plan with a note means the event
// terminates as processed without analysis.
func (p *Processor) classify(evt *webhook.Event) (*scanPlan, string, error) {
	switch evt.EventType {
	case "ping":
		return nil, "pong", nil

	case "push":
		var payload webhook.PushPayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return nil, "", fmt.Errorf("%w: malformed push payload: %w", scan.ErrInvalidInput, err)
		}
		if payload.Repository.FullName == "" {
			return nil, "", fmt.Errorf("%w: push payload missing repository", scan.ErrInvalidInput)
		}

		branch := strings.TrimPrefix(payload.Ref, "refs/heads/")
		if !isDefaultBranch(branch, payload.Repository.DefaultBranch) {
			return nil, fmt.Sprintf("skipped: non-default branch %s", branch), nil
		}
		return &scanPlan{repo: payload.Repository, branch: branch}, "", nil

	case "pull_request":
		var payload webhook.PullRequestPayload
		if err := json.Unmarshal(evt.Payload, &payload); err != nil {
			return nil, "", fmt.Errorf("%w: malformed pull_request payload: %w", scan.ErrInvalidInput, err)
		}
		if payload.Action != "opened" && payload.Action != "synchronize" {
			return nil, fmt.Sprintf("skipped: action %s", payload.Action), nil
		}
		if payload.Repository.FullName == "" {
			return nil, "", fmt.Errorf("%w: pull_request payload missing repository", scan.ErrInvalidInput)
		}
		return &scanPlan{
			repo:     payload.Repository,
			branch:   payload.PullRequest.Head.Ref,
			prNumber: payload.Number,
		}, "", nil

	default:
		return nil, fmt.Sprintf("unhandled event type %s", evt.EventType), nil
	}
}

// isDefaultBranch falls back to the conventional names when the payload does
// not carry the repository's default branch.
func isDefaultBranch(branch, defaultBranch string) bool {
	if defaultBranch != "" {
		return branch == defaultBranch
	}
	return branch == "main" || branch == "master"
}

// ensureThreatModel implements the idempotent lookup-then-insert. The window
// between lookup and insert is real but benign: the unique constraint on the
// name turns the losing insert into ErrAlreadyExists, which is treated as a
// successful lookup.
func (p *Processor) ensureThreatModel(ctx context.Context, fullName string) (*scan.ThreatModel, error) {
	model, err := p.models.FindByName(ctx, fullName)
	if err == nil {
		return model, nil
	}
	if !errors.Is(err, scan.ErrNotFound) {
		return nil, err
	}

	actorID, err := p.models.FindOrCreateSystemActor(ctx, SystemActorEmail)
	if err != nil {
		return nil, fmt.Errorf("find or create system actor: %w", err)
	}

	model, err = p.models.Create(ctx, fullName, actorID)
	if err == nil {
		slog.InfoContext(ctx, "threat model created", "repository", fullName)
		return model, nil
	}
	if errors.Is(err, scan.ErrAlreadyExists) {
		// Lost the race to a concurrent delivery; the row exists now.
		return p.models.FindByName(ctx, fullName)
	}
	return nil, err
}

func (p *Processor) analyze(ctx context.Context, plan *scanPlan) (*scan.RepositoryAnalysis, error) {
	if err := p.cloneSem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire clone slot: %w", err)
	}
	defer p.cloneSem.Release(1)

	cloneURL := plan.repo.CloneURL
	if cloneURL == "" {
		cloneURL = "https://github.com/" + plan.repo.FullName
	}
	return p.fetcher.FetchAndAnalyze(ctx, cloneURL, scan.WithBranch(plan.branch))
}

// sideEffect is one post-analysis action attempted independently of the
// event's outcome.
type sideEffect struct {
	name string
	run  func(ctx context.Context) error
}

func (p *Processor) postAnalysisEffects(plan *scanPlan, analysis *scan.RepositoryAnalysis) []sideEffect {
	var effects []sideEffect
	owner, name := splitFullName(plan.repo.FullName)

	if plan.prNumber > 0 && p.comments != nil {
		effects = append(effects, sideEffect{
			name: "pr-comment",
			run: func(ctx context.Context) error {
				return p.comments.PostPullRequestComment(ctx, owner, name, plan.prNumber, summaryComment(analysis))
			},
		})
	}

	// Push-triggered analyses have no PR to comment on; the summary goes to a
	// tracking issue instead.
	if plan.prNumber == 0 && p.issues != nil {
		effects = append(effects, sideEffect{
			name: "summary-issue",
			run: func(ctx context.Context) error {
				title := fmt.Sprintf("Threat model updated: %s@%.12s", plan.repo.FullName, analysis.CommitSHA)
				return p.issues.OpenIssue(ctx, owner, name, title, summaryComment(analysis), []string{"threat-model"})
			},
		})
	}

	return effects
}

// runSideEffects attempts every effect and absorbs individual failures: the
// analysis already succeeded even if a comment did not post.
func (p *Processor) runSideEffects(ctx context.Context, evt *webhook.Event, plan *scanPlan, analysis *scan.RepositoryAnalysis) string {
	effects := p.postAnalysisEffects(plan, analysis)

	failed := 0
	for _, effect := range effects {
		if err := effect.run(ctx); err != nil {
			failed++
			slog.WarnContext(ctx, "post-analysis side effect failed",
				"effect", effect.name,
				"delivery_id", evt.DeliveryID,
				"repository", plan.repo.FullName,
				"error", err,
			)
		}
	}

	note := fmt.Sprintf("analyzed %d files", analysis.Report.Stats.TotalFiles)
	if failed > 0 {
		note = fmt.Sprintf("%s; %d of %d side effects failed", note, failed, len(effects))
	}
	return note
}

// fail marks the event failed and propagates the error. Uses a background
// context so the terminal transition is recorded even when the parent
// context is already cancelled.
func (p *Processor) fail(ctx context.Context, evt *webhook.Event, err error) error {
	p.setStatus(context.Background(), evt, webhook.StatusFailed, err.Error())
	eventsTotal.WithLabelValues(evt.EventType, "failed").Inc()

	slog.ErrorContext(ctx, "webhook event failed",
		"delivery_id", evt.DeliveryID,
		"event_type", evt.EventType,
		"error", err,
	)
	return err
}

func (p *Processor) setStatus(ctx context.Context, evt *webhook.Event, status webhook.Status, note string) {
	if !evt.Status.CanTransitionTo(status) {
		return
	}
	evt.Status = status

	if err := p.audit.UpdateEventStatus(ctx, evt.ID, status, note); err != nil {
		slog.ErrorContext(ctx, "failed to update audit event status",
			"event_id", evt.ID,
			"status", status,
			"error", err,
		)
	}
}

func splitFullName(fullName string) (owner, name string) {
	owner, name, _ = strings.Cut(fullName, "/")
	return owner, name
}

func summaryComment(analysis *scan.RepositoryAnalysis) string {
	stats := analysis.Report.Stats

	var b strings.Builder
	b.WriteString("## Threat model analysis\n\n")
	fmt.Fprintf(&b, "Analyzed `%s` at `%.12s`.\n\n", analysis.Repository.FullName(), analysis.CommitSHA)
	fmt.Fprintf(&b, "| Category | Files |\n|---|---|\n")
	fmt.Fprintf(&b, "| Infrastructure | %d |\n", stats.Infrastructure)
	fmt.Fprintf(&b, "| Code | %d |\n", stats.Code)
	fmt.Fprintf(&b, "| Config | %d |\n", stats.Config)
	fmt.Fprintf(&b, "| Total | %d |\n", stats.TotalFiles)

	if len(analysis.Report.Dependencies) > 0 {
		b.WriteString("\nDependency ecosystems: ")
		ecosystems := make([]string, 0, len(analysis.Report.Dependencies))
		for ecosystem := range analysis.Report.Dependencies {
			ecosystems = append(ecosystems, ecosystem)
		}
		slices.Sort(ecosystems)
		b.WriteString(strings.Join(ecosystems, ", "))
		b.WriteString("\n")
	}
	return b.String()
}
