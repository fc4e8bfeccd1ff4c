package store

import (
	"context"
	"database/sql"
	_ "embed"

	"github.com/pkg/errors"
)

//go:embed schema.sql
var schema string

// Migrate applies the bootstrap schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("migrate: no database")
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "migrate")
	}
	return nil
}
