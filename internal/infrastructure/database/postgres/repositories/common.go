package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/saludplena/claims-engine/internal/infrastructure/monitoring/logging"
	"github.com/saludplena/claims-engine/pkg/errors"
)

// queryExecutor abstracts sql.DB and sql.Tx
type queryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// scanner abstracts sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

// baseRepo carries the shared handle and logger for all repositories.
type baseRepo struct {
	db     *sql.DB
	logger logging.Logger
}

// executor returns tx when a transaction is in flight, otherwise the pool.
func (r *baseRepo) executor(tx *sql.Tx) queryExecutor {
	if tx != nil {
		return tx
	}
	return r.db
}

// withTx runs fn inside a transaction, rolling back on error or panic.
// Aggregate mutations lock the parent row with SELECT ... FOR UPDATE inside
// fn so concurrent mutators of the same aggregate serialize on the row.
func (r *baseRepo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to begin transaction")
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Error("Failed to roll back transaction", logging.Err(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to commit transaction")
	}
	return nil
}

// nullTime converts an optional time pointer for database writes.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullString converts an optional string for database writes. Empty strings
// are stored as NULL so partial indexes and presence checks stay meaningful.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
