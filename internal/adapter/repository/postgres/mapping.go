// Package postgres implements the domain store interfaces on pgx.
package postgres

import (
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/threatcanvas/integrations/internal/domain/scan"
)

// toPgUUID converts domain UUID (google/uuid) to pgtype.UUID for database operations.
func toPgUUID(id scan.UUID) pgtype.UUID {
	return pgtype.UUID{
		Bytes: id,
		Valid: id != scan.NilUUID,
	}
}

// fromPgUUID converts pgtype.UUID to domain UUID (google/uuid).
func fromPgUUID(id pgtype.UUID) scan.UUID {
	if !id.Valid {
		return scan.NilUUID
	}
	return scan.UUID(id.Bytes)
}

func pgText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
