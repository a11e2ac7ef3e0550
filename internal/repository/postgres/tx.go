package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nd-ahl/envive/internal/repository"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every repository can run
// either standalone or inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// NewRepositories builds the full repository set over the given connection.
func NewRepositories(db DBTX) repository.Repositories {
	return repository.Repositories{
		Members:    &memberRepository{db: db},
		Households: &householdRepository{db: db},
		Profiles:   &profileRepository{db: db},
		Events:     &eventRepository{db: db},
		Tasks:      &taskRepository{db: db},
		Rewards:    &rewardRepository{db: db},
	}
}

// NewTxManager creates a transaction manager over the database.
func NewTxManager(db *sql.DB) repository.TxManager {
	return &txManager{db: db}
}

type txManager struct {
	db *sql.DB
}

// Do runs fn with all repositories bound to one transaction. fn returning an
// error rolls everything back; a commit failure is returned to the caller,
// which must treat the transaction as not applied.
func (t *txManager) Do(ctx context.Context, fn func(r repository.Repositories) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(NewRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
