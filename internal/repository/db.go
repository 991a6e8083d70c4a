package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Queryer is satisfied by both *sqlx.DB and *sqlx.Tx, so every accessor can run
// inside or outside a transaction.
type Queryer interface {
	sqlx.ExtContext
}

// TxManager owns transaction boundaries for multi-entity writes.
type TxManager struct {
	db *sqlx.DB
}

// NewTxManager wraps the connection pool.
func NewTxManager(db *sqlx.DB) *TxManager {
	return &TxManager{db: db}
}

// DB exposes the pool for reads outside a transaction.
func (m *TxManager) DB() *sqlx.DB {
	return m.db
}

// WithinTx runs fn in a read-committed transaction. Any error returned by fn,
// or a panic, rolls the transaction back; otherwise it is committed.
func (m *TxManager) WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := m.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
