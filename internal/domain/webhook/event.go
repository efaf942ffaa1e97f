package webhook

import (
	"context"
	"encoding/json"
	"time"

	"github.com/threatcanvas/integrations/internal/domain/scan"
)

// Status is a webhook event's position in the processing state machine:
// received -> processing -> {processed | failed}. Terminal states never
// transition further.
type Status string

const (
	StatusReceived   Status = "received"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

// CanTransitionTo reports whether the state machine allows moving from s to
// next.
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusReceived:
		return next == StatusProcessing || next == StatusProcessed || next == StatusFailed
	case StatusProcessing:
		return next == StatusProcessed || next == StatusFailed
	default:
		return false
	}
}

// Event is one inbound webhook delivery. A redelivery with the same
// DeliveryID is a brand-new event; idempotency is enforced at the resource
// level, not here.
type Event struct {
	ID         scan.UUID
	EventType  string
	DeliveryID string
	Payload    json.RawMessage
	Status     Status
	ReceivedAt time.Time
}

func NewEvent(eventType, deliveryID string, payload []byte) *Event {
	return &Event{
		ID:         scan.NewUUID(),
		EventType:  eventType,
		DeliveryID: deliveryID,
		Payload:    json.RawMessage(payload),
		Status:     StatusReceived,
		ReceivedAt: time.Now().UTC(),
	}
}

// AuditSink is the durable append-only log of every webhook received,
// processed or failed. Consumed collaborator; the Postgres implementation
// lives in adapter/repository/postgres.
type AuditSink interface {
	AppendEvent(ctx context.Context, event *Event) error
	UpdateEventStatus(ctx context.Context, id scan.UUID, status Status, note string) error
}

// CommentPoster posts analysis summaries back to the hosting platform.
type CommentPoster interface {
	PostPullRequestComment(ctx context.Context, owner, repo string, number int, body string) error
}

// IssueOpener opens tracking issues on the hosting platform. Push-triggered
// analyses have no pull request to comment on; their summaries go here.
type IssueOpener interface {
	OpenIssue(ctx context.Context, owner, repo, title, body string, labels []string) error
}
