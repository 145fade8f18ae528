package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so repositories run the same
// queries inside and outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxRunner runs fn as one atomic unit. Implementations join an outer unit already
// carried by ctx instead of nesting.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

// Conn returns the transaction carried by ctx, or db when there is none.
func Conn(ctx context.Context, db *sql.DB) DBTX {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// TxManager runs functions inside a Postgres transaction stored in the context.
type TxManager struct {
	db *sql.DB
}

// NewTxManager returns a TxManager backed by db.
func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// RunInTx begins a transaction, calls fn with a context carrying it, and commits when fn
// returns nil. Any error or panic rolls back; a panic is re-raised after rollback.
// A context cancelled before commit leaves the database untouched.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
			}
			return
		}
		if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("commit transaction: %w", commitErr)
		}
	}()
	err = fn(context.WithValue(ctx, txKey{}, tx))
	return
}

type serialKey struct{}

// SerialTxManager serializes units of work with a process-local mutex. It backs the
// in-memory repositories, which have no transactions of their own; nested calls on
// the same context re-enter without deadlocking.
type SerialTxManager struct {
	mu sync.Mutex
}

// NewSerialTxManager returns a SerialTxManager.
func NewSerialTxManager() *SerialTxManager {
	return &SerialTxManager{}
}

// RunInTx calls fn while holding the manager's lock. The context is checked before fn
// runs so a caller that has already timed out changes nothing.
func (m *SerialTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if held, _ := ctx.Value(serialKey{}).(*SerialTxManager); held == m {
		return fn(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(context.WithValue(ctx, serialKey{}, m))
}
