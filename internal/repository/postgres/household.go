package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nd-ahl/envive/internal/models"
)

type householdRepository struct {
	db DBTX
}

func (r *householdRepository) Create(ctx context.Context, household *models.Household) (*models.Household, error) {
	query := `INSERT INTO households (chat_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	now := time.Now()
	if household.CreatedAt.IsZero() {
		household.CreatedAt = now
	}
	if household.UpdatedAt.IsZero() {
		household.UpdatedAt = now
	}
	err := r.db.QueryRowContext(ctx, query,
		household.ChatID, household.Name, household.CreatedAt, household.UpdatedAt,
	).Scan(&household.ID, &household.CreatedAt, &household.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create household: %w", err)
	}
	return household, nil
}

func (r *householdRepository) GetByID(ctx context.Context, id int64) (*models.Household, error) {
	query := `SELECT id, chat_id, name, created_at, updated_at
		FROM households WHERE id = $1`
	household := &models.Household{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&household.ID, &household.ChatID, &household.Name,
		&household.CreatedAt, &household.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get household: %w", err)
	}
	return household, nil
}

func (r *householdRepository) GetByChatID(ctx context.Context, chatID int64) (*models.Household, error) {
	query := `SELECT id, chat_id, name, created_at, updated_at
		FROM households WHERE chat_id = $1`
	household := &models.Household{}
	err := r.db.QueryRowContext(ctx, query, chatID).Scan(
		&household.ID, &household.ChatID, &household.Name,
		&household.CreatedAt, &household.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get household by chat id: %w", err)
	}
	return household, nil
}

func (r *householdRepository) Update(ctx context.Context, household *models.Household) (*models.Household, error) {
	query := `UPDATE households SET chat_id=$2, name=$3, updated_at=$4
		WHERE id=$1 RETURNING updated_at`
	household.UpdatedAt = time.Now()
	err := r.db.QueryRowContext(ctx, query,
		household.ID, household.ChatID, household.Name, household.UpdatedAt,
	).Scan(&household.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update household: %w", err)
	}
	return household, nil
}

func (r *householdRepository) AddMember(ctx context.Context, householdID, memberID int64) error {
	query := `INSERT INTO household_members (household_id, member_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (household_id, member_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, householdID, memberID, time.Now()); err != nil {
		return fmt.Errorf("failed to add member %d to household %d: %w", memberID, householdID, err)
	}
	return nil
}

func (r *householdRepository) RemoveMember(ctx context.Context, householdID, memberID int64) error {
	query := `DELETE FROM household_members WHERE household_id = $1 AND member_id = $2`
	result, err := r.db.ExecContext(ctx, query, householdID, memberID)
	if err != nil {
		return fmt.Errorf("failed to remove member %d from household %d: %w", memberID, householdID, err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("member %d is not in household %d", memberID, householdID)
	}
	return nil
}

func (r *householdRepository) GetMembers(ctx context.Context, householdID int64) ([]*models.Member, error) {
	query := `SELECT m.id, m.name, m.role, m.telegram_id, m.created_at, m.updated_at
		FROM members m
		JOIN household_members hm ON hm.member_id = m.id
		WHERE hm.household_id = $1
		ORDER BY m.id`
	rows, err := r.db.QueryContext(ctx, query, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to query household members: %w", err)
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		member := &models.Member{}
		if err := rows.Scan(
			&member.ID, &member.Name, &member.Role, &member.TelegramID,
			&member.CreatedAt, &member.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func (r *householdRepository) IsMember(ctx context.Context, householdID, memberID int64) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM household_members WHERE household_id = $1 AND member_id = $2
	)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, householdID, memberID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return exists, nil
}
