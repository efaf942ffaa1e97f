package postgres

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/threatcanvas/integrations/internal/domain/scan"
)

var _ scan.AnalysisStore = (*AnalysisStore)(nil)

type AnalysisStore struct {
	pool *pgxpool.Pool
}

func NewAnalysisStore(pool *pgxpool.Pool) *AnalysisStore {
	return &AnalysisStore{pool: pool}
}

var analysisFileColumns = []string{"analysis_id", "path", "category", "checksum"}

// Save persists the analysis row and bulk-loads its file records in one
// transaction. File rows go through CopyFrom; per-row inserts are too slow
// for large trees.
func (s *AnalysisStore) Save(ctx context.Context, params scan.SaveAnalysisParams) (scan.UUID, error) {
	if err := params.Validate(); err != nil {
		return scan.NilUUID, err
	}
	analysis := params.Analysis

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return scan.NilUUID, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.ErrorContext(ctx, "failed to rollback transaction",
				"operation", "SaveAnalysis",
				"repository", analysis.Repository.FullName(),
				"error", rbErr,
			)
		}
	}()

	dependencies, err := json.Marshal(analysis.Report.Dependencies)
	if err != nil {
		return scan.NilUUID, fmt.Errorf("marshal dependencies: %w", err)
	}

	fingerprint, err := hex.DecodeString(analysis.Report.Fingerprint)
	if err != nil {
		return scan.NilUUID, fmt.Errorf("%w: malformed fingerprint: %w", scan.ErrInvalidInput, err)
	}

	analysisID := scan.NewUUID()
	_, err = tx.Exec(ctx,
		`INSERT INTO analyses (id, threat_model_id, repo_full_name, branch, commit_sha,
		                       fingerprint, total_files, total_bytes, dependencies)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		toPgUUID(analysisID),
		toPgUUID(params.ThreatModelID),
		analysis.Repository.FullName(),
		pgText(analysis.Branch),
		analysis.CommitSHA,
		fingerprint,
		analysis.Report.Stats.TotalFiles,
		analysis.Report.Stats.TotalBytes,
		dependencies,
	)
	if err != nil {
		return scan.NilUUID, fmt.Errorf("insert analysis: %w", err)
	}

	if len(analysis.Report.Files) > 0 {
		rows := make([][]any, 0, len(analysis.Report.Files))
		for _, f := range analysis.Report.Files {
			rows = append(rows, []any{toPgUUID(analysisID), f.Path, string(f.Category), f.Checksum})
		}

		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"analysis_files"},
			analysisFileColumns,
			pgx.CopyFromRows(rows),
		); err != nil {
			return scan.NilUUID, fmt.Errorf("copy analysis files: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return scan.NilUUID, fmt.Errorf("commit transaction: %w", err)
	}

	return analysisID, nil
}
