// Package store opens the Postgres and Redis connections and applies the schema.
package store

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
)

const pingTimeout = 5 * time.Second

// Pool bounds the database/sql connection pool.
type Pool struct {
	MaxOpen  int
	MaxIdle  int
	Lifetime time.Duration
}

// DB is the Postgres handle shared by every repository.
type DB struct {
	Client *sql.DB
}

// OpenPostgres opens dsn through the pgx driver and pings it. On a failed ping
// the handle is still returned with the error so the API can start degraded.
func OpenPostgres(ctx context.Context, dsn string, pool Pool) (*DB, error) {
	client, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if pool.MaxOpen > 0 {
		client.SetMaxOpenConns(pool.MaxOpen)
	}
	if pool.MaxIdle > 0 {
		client.SetMaxIdleConns(pool.MaxIdle)
	}
	if pool.Lifetime > 0 {
		client.SetConnMaxLifetime(pool.Lifetime)
	}

	db := &DB{Client: client}
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.PingContext(pctx); err != nil {
		return db, errors.Wrap(err, "ping postgres")
	}
	return db, nil
}

// Healthy reports whether a ping succeeds.
func (d *DB) Healthy(ctx context.Context) bool {
	if d == nil || d.Client == nil {
		return false
	}
	return d.Client.PingContext(ctx) == nil
}

// Close closes the pool. Safe on a nil handle.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

// WithTx runs fn inside a transaction and commits when fn returns nil.
func WithTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.WithStack(tx.Commit())
}
