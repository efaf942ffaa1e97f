package postgres

import (
	_ "embed"
)

//go:embed schema.sql
var rawSchema string

// Schema returns the schema SQL applied to fresh test databases. Kept in
// lockstep with the production migrations.
func Schema() string {
	return rawSchema
}
