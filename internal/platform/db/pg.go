package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Queryable is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock, so repository
// methods can run either standalone or inside a transaction.
type Queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Pool is the subset of *pgxpool.Pool the repositories depend on.
type Pool interface {
	Queryable
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Postgres SQLSTATE codes the repositories classify.
const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeExclusionViolation  = "23P01"
	CodeCheckViolation      = "23514"
)

// SQLState returns the Postgres error code carried by err, if any.
func SQLState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports a unique or exclusion constraint failure.
func IsUniqueViolation(err error) bool {
	switch SQLState(err) {
	case CodeUniqueViolation, CodeExclusionViolation:
		return true
	}
	return false
}

func IsForeignKeyViolation(err error) bool { return SQLState(err) == CodeForeignKeyViolation }

func IsNotFound(err error) bool { return errors.Is(err, pgx.ErrNoRows) }

// WithTx runs fn inside a transaction, committing on success and rolling
// back on error or panic.
func WithTx(ctx context.Context, pool Pool, fn func(tx pgx.Tx) error) (err error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
