package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// ErrTxConflict marks a transaction that kept losing to concurrent writers
// after the bounded retries. It is a transient condition: the caller may
// simply retry the whole operation. It must never be read as a business
// failure such as insufficient stock.
var ErrTxConflict = errors.New("transaction conflict")

const defaultMaxRetries = 3

type TransactionManager struct {
	conn   PostgresPool
	logger *zap.Logger
}

func NewTransactionManager(conn PostgresPool, logger *zap.Logger) *TransactionManager {
	return &TransactionManager{
		conn:   conn,
		logger: logger,
	}
}

// ExecuteTransaction runs fn inside a repeatable-read transaction with
// guaranteed commit-or-rollback on every exit path, panics included.
func (m *TransactionManager) ExecuteTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return m.ExecuteTransactionWithOptions(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead}, fn)
}

// ExecuteTransactionWithRetry is ExecuteTransaction plus a bounded retry
// loop for serialization and deadlock failures. Anything else is returned
// on the first attempt.
func (m *TransactionManager) ExecuteTransactionWithRetry(ctx context.Context, fn func(tx pgx.Tx) error) error {
	var err error
	for i := 0; i < defaultMaxRetries; i++ {
		if err = m.ExecuteTransaction(ctx, fn); err == nil {
			return nil
		}
		if !m.isRetryableError(err) {
			return err
		}
		m.logger.Warn("transaction conflict, retrying",
			zap.Int("attempt", i+1),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * 50 * time.Millisecond):
		}
	}
	return fmt.Errorf("%w: gave up after %d attempts: %s", ErrTxConflict, defaultMaxRetries, err)
}

func (m *TransactionManager) ExecuteTransactionWithOptions(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	dbTx, err := m.conn.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction failed: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			m.rollback(ctx, dbTx)
			m.logger.Error("panic in transaction", zap.Any("panic", p))
			panic(p) // re-throw panic after Rollback
		} else if err != nil {
			m.rollback(ctx, dbTx)
		} else {
			if err = dbTx.Commit(ctx); err != nil {
				m.logger.Error("commit transaction failed", zap.Error(err))
			}
		}
	}()

	err = fn(dbTx)
	return err
}

func (m *TransactionManager) rollback(ctx context.Context, tx pgx.Tx) {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		m.logger.Error("rollback failed", zap.Error(err))
	}
}

// isRetryableError matches serialization failures (40001) and deadlocks
// (40P01), the two SQLSTATEs Postgres raises when concurrent transactions
// on the same ledger row collide.
func (m *TransactionManager) isRetryableError(err error) bool {
	if errors.Is(err, ErrTxConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
