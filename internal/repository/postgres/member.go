package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nd-ahl/envive/internal/models"
)

type memberRepository struct {
	db DBTX
}

func (r *memberRepository) Create(ctx context.Context, member *models.Member) (*models.Member, error) {
	query := `INSERT INTO members (name, role, telegram_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	now := time.Now()
	if member.CreatedAt.IsZero() {
		member.CreatedAt = now
	}
	if member.UpdatedAt.IsZero() {
		member.UpdatedAt = now
	}
	err := r.db.QueryRowContext(ctx, query,
		member.Name, member.Role, member.TelegramID,
		member.CreatedAt, member.UpdatedAt,
	).Scan(&member.ID, &member.CreatedAt, &member.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create member: %w", err)
	}
	return member, nil
}

func (r *memberRepository) GetByID(ctx context.Context, id int64) (*models.Member, error) {
	query := `SELECT id, name, role, telegram_id, created_at, updated_at
		FROM members WHERE id = $1`
	member := &models.Member{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&member.ID, &member.Name, &member.Role, &member.TelegramID,
		&member.CreatedAt, &member.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

func (r *memberRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.Member, error) {
	query := `SELECT id, name, role, telegram_id, created_at, updated_at
		FROM members WHERE telegram_id = $1`
	member := &models.Member{}
	err := r.db.QueryRowContext(ctx, query, telegramID).Scan(
		&member.ID, &member.Name, &member.Role, &member.TelegramID,
		&member.CreatedAt, &member.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get member by telegram id: %w", err)
	}
	return member, nil
}

func (r *memberRepository) Update(ctx context.Context, member *models.Member) (*models.Member, error) {
	query := `UPDATE members SET name=$2, role=$3, telegram_id=$4, updated_at=$5
		WHERE id=$1 RETURNING updated_at`
	member.UpdatedAt = time.Now()
	err := r.db.QueryRowContext(ctx, query,
		member.ID, member.Name, member.Role, member.TelegramID, member.UpdatedAt,
	).Scan(&member.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update member: %w", err)
	}
	return member, nil
}

func (r *memberRepository) Delete(ctx context.Context, id int64) error {
	// Profile, ledger, balance, and household links cascade in the schema.
	result, err := r.db.ExecContext(ctx, `DELETE FROM members WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("member %d not found", id)
	}
	return nil
}
