package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/threatcanvas/integrations/internal/domain/scan"
)

var _ scan.ThreatModelStore = (*ThreatModelStore)(nil)

type ThreatModelStore struct {
	pool *pgxpool.Pool
}

func NewThreatModelStore(pool *pgxpool.Pool) *ThreatModelStore {
	return &ThreatModelStore{pool: pool}
}

func (s *ThreatModelStore) FindByName(ctx context.Context, name string) (*scan.ThreatModel, error) {
	var model scan.ThreatModel

	err := s.pool.QueryRow(ctx,
		`SELECT id, name, created_by, created_at FROM threat_models WHERE name = $1`,
		name,
	).Scan(&model.ID, &model.Name, &model.CreatedBy, &model.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: threat model %s", scan.ErrNotFound, name)
		}
		return nil, fmt.Errorf("find threat model by name: %w", err)
	}

	return &model, nil
}

// Create inserts a new threat model. The unique constraint on name turns a
// concurrent duplicate insert into ErrAlreadyExists.
func (s *ThreatModelStore) Create(ctx context.Context, name string, createdBy scan.UUID) (*scan.ThreatModel, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: threat model name is required", scan.ErrInvalidInput)
	}

	model := scan.ThreatModel{
		ID:        scan.NewUUID(),
		Name:      name,
		CreatedBy: createdBy,
	}

	err := s.pool.QueryRow(ctx,
		`INSERT INTO threat_models (id, name, created_by) VALUES ($1, $2, $3) RETURNING created_at`,
		toPgUUID(model.ID), name, toPgUUID(createdBy),
	).Scan(&model.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, fmt.Errorf("%w: threat model %s", scan.ErrAlreadyExists, name)
		}
		return nil, fmt.Errorf("create threat model: %w", err)
	}

	return &model, nil
}

// FindOrCreateSystemActor returns the user ID for the system actor email,
// creating the row on first use. The upsert keeps concurrent callers
// convergent on one row.
func (s *ThreatModelStore) FindOrCreateSystemActor(ctx context.Context, email string) (scan.UUID, error) {
	if email == "" {
		return scan.NilUUID, fmt.Errorf("%w: actor email is required", scan.ErrInvalidInput)
	}

	var id scan.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, name) VALUES ($1, $2, 'System')
		 ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		 RETURNING id`,
		toPgUUID(scan.NewUUID()), email,
	).Scan(&id)
	if err != nil {
		return scan.NilUUID, fmt.Errorf("find or create system actor: %w", err)
	}

	return id, nil
}

// ListStale returns threat models whose newest analysis predates the cutoff.
// Models with no analysis at all are excluded: there is no commit to compare
// a remote head against.
func (s *ThreatModelStore) ListStale(ctx context.Context, olderThan time.Duration) ([]scan.StaleModel, error) {
	cutoff := time.Now().Add(-olderThan)

	rows, err := s.pool.Query(ctx,
		`SELECT tm.id, tm.name, latest.commit_sha, latest.created_at
		 FROM threat_models tm
		 JOIN LATERAL (
		     SELECT commit_sha, created_at
		     FROM analyses
		     WHERE threat_model_id = tm.id
		     ORDER BY created_at DESC
		     LIMIT 1
		 ) latest ON true
		 WHERE latest.created_at < $1
		 ORDER BY latest.created_at`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("list stale threat models: %w", err)
	}
	defer rows.Close()

	var stale []scan.StaleModel
	for rows.Next() {
		var m scan.StaleModel
		if err := rows.Scan(&m.ID, &m.Name, &m.LastCommitSHA, &m.LastAnalyzedAt); err != nil {
			return nil, fmt.Errorf("scan stale threat model: %w", err)
		}
		stale = append(stale, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale threat models: %w", err)
	}

	return stale, nil
}
