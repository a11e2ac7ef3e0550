package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nd-ahl/envive/internal/models"
)

type rewardRepository struct {
	db DBTX
}

func (r *rewardRepository) Create(ctx context.Context, balance *models.RewardBalance) (*models.RewardBalance, error) {
	query := `INSERT INTO reward_balances (member_id, xp_balance, minutes_balance, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING updated_at`
	if balance.UpdatedAt.IsZero() {
		balance.UpdatedAt = time.Now()
	}
	err := r.db.QueryRowContext(ctx, query,
		balance.MemberID, balance.XPBalance, balance.MinutesBalance, balance.UpdatedAt,
	).Scan(&balance.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create reward balance: %w", err)
	}
	return balance, nil
}

func (r *rewardRepository) GetByMemberID(ctx context.Context, memberID int64) (*models.RewardBalance, error) {
	query := `SELECT member_id, xp_balance, minutes_balance, updated_at
		FROM reward_balances WHERE member_id = $1`
	balance := &models.RewardBalance{}
	err := r.db.QueryRowContext(ctx, query, memberID).Scan(
		&balance.MemberID, &balance.XPBalance, &balance.MinutesBalance, &balance.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get reward balance: %w", err)
	}
	return balance, nil
}

func (r *rewardRepository) Update(ctx context.Context, balance *models.RewardBalance) (*models.RewardBalance, error) {
	query := `UPDATE reward_balances
		SET xp_balance=$2, minutes_balance=$3, updated_at=$4
		WHERE member_id=$1 RETURNING updated_at`
	balance.UpdatedAt = time.Now()
	err := r.db.QueryRowContext(ctx, query,
		balance.MemberID, balance.XPBalance, balance.MinutesBalance, balance.UpdatedAt,
	).Scan(&balance.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update reward balance: %w", err)
	}
	return balance, nil
}
