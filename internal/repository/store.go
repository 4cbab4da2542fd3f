package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict means the row changed since it was read.
	ErrConflict = errors.New("version conflict")
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store groups the repositories over one database and hands out
// transaction-bound copies of them.
type Store struct {
	db        *sql.DB
	Users     *UserRepository
	Sessions  *SessionRepository
	Inventory *InventoryRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:        db,
		Users:     NewUserRepository(db),
		Sessions:  NewSessionRepository(db),
		Inventory: NewInventoryRepository(db),
	}
}

// Tx is a unit of work. Rollback after Commit is a no-op, so callers defer it.
type Tx struct {
	tx        *sql.Tx
	Users     *UserRepository
	Sessions  *SessionRepository
	Inventory *InventoryRepository
}

func (s *Store) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{
		tx:        tx,
		Users:     NewUserRepository(tx),
		Sessions:  NewSessionRepository(tx),
		Inventory: NewInventoryRepository(tx),
	}, nil
}

func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (t *Tx) Rollback() {
	_ = t.tx.Rollback()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// expectOneRow turns a zero-row versioned update into ErrConflict.
func expectOneRow(result sql.Result, what string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if affected == 0 {
		return ErrConflict
	}
	return nil
}
