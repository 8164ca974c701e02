package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cimillas/furniture-backoffice/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type txKey struct{}

// withTx runs fn inside a transaction carried by the returned context. Nested
// calls join the outer transaction.
func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapCommitError(err)
	}
	return nil
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

// conn routes statements through the context transaction when there is one.
type conn struct {
	pool *pgxpool.Pool
}

func (c conn) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return c.pool.Exec(ctx, sql, args...)
}

func (c conn) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return c.pool.QueryRow(ctx, sql, args...)
}

func (c conn) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return c.pool.Query(ctx, sql, args...)
}

func pgCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

func isUniqueViolation(err error) bool {
	code, _ := pgCode(err)
	return code == "23505"
}

func isInvalidUUID(err error) bool {
	code, _ := pgCode(err)
	return code == "22P02"
}

// isForeignKeyViolation reports a 23503 on the named constraint, or on any
// constraint when constraint is empty.
func isForeignKeyViolation(err error, constraint string) bool {
	code, name := pgCode(err)
	return code == "23503" && (constraint == "" || name == constraint)
}

// isConcurrencyFailure covers serialization failures, deadlocks and lock
// timeouts. The caller may retry the whole operation.
func isConcurrencyFailure(err error) bool {
	code, _ := pgCode(err)
	switch code {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}

func mapCommitError(err error) error {
	if isConcurrencyFailure(err) {
		return fmt.Errorf("%w: %w", domain.ErrConcurrentUpdate, err)
	}
	return fmt.Errorf("commit: %w", err)
}

// wrap annotates err with op, surfacing lock and serialization failures as
// domain.ErrConcurrentUpdate.
func wrap(op string, err error) error {
	if isConcurrencyFailure(err) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrConcurrentUpdate, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
