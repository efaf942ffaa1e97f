package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/threatcanvas/integrations/internal/domain/scan"
	"github.com/threatcanvas/integrations/internal/domain/webhook"
)

var _ webhook.AuditSink = (*AuditSink)(nil)

// AuditSink records every webhook delivery in webhook_events. Appends insert
// the row; status transitions update it in place, so the row always shows the
// event's current position in the state machine.
type AuditSink struct {
	pool *pgxpool.Pool
}

func NewAuditSink(pool *pgxpool.Pool) *AuditSink {
	return &AuditSink{pool: pool}
}

func (s *AuditSink) AppendEvent(ctx context.Context, event *webhook.Event) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO webhook_events (id, delivery_id, event_type, status, payload, received_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		toPgUUID(event.ID),
		pgText(event.DeliveryID),
		event.EventType,
		string(event.Status),
		[]byte(event.Payload),
		event.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("append webhook event: %w", err)
	}
	return nil
}

// UpdateEventStatus moves the event to the given status. The note lands in
// the error column for failed events and the note column otherwise.
func (s *AuditSink) UpdateEventStatus(ctx context.Context, id scan.UUID, status webhook.Status, note string) error {
	query := `UPDATE webhook_events SET status = $2, note = $3, updated_at = now() WHERE id = $1`
	if status == webhook.StatusFailed {
		query = `UPDATE webhook_events SET status = $2, error = $3, updated_at = now() WHERE id = $1`
	}

	tag, err := s.pool.Exec(ctx, query, toPgUUID(id), string(status), pgText(note))
	if err != nil {
		return fmt.Errorf("update webhook event status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: webhook event %s", scan.ErrNotFound, id)
	}
	return nil
}
