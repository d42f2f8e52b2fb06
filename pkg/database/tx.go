package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Postgres error codes signalling that a transaction lost a race and is safe to retry.
const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

// ErrSerialization marks a lost race under serializable isolation.
var ErrSerialization = errors.New("transaction serialization failure")

// IsSerializationFailure reports whether err stems from a serialization or deadlock abort.
func IsSerializationFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrSerialization) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		return code == pqSerializationFailure || code == pqDeadlockDetected
	}
	return false
}

// InSerializableTx runs fn inside a serializable transaction. Serialization
// aborts are normalised to ErrSerialization so callers can retry.
func InSerializableTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin serializable tx: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if IsSerializationFailure(err) {
			return fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if IsSerializationFailure(err) {
			return fmt.Errorf("%w: %v", ErrSerialization, err)
		}
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// WithRetry reruns op while it reports a serialization failure, up to attempts
// times. The last error is returned unchanged so callers keep the retryable
// marker when attempts are exhausted.
func WithRetry(ctx context.Context, attempts int, op func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if err = op(); err == nil || !IsSerializationFailure(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return err
}
