package db

import (
	"context"
	"database/sql"

	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the embedded schema: the sessions, dialogue_records and
// triage_records tables. Every statement is IF NOT EXISTS, so running it on
// every startup is safe.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schemaSQL)
	return err
}
