package memory

import (
	"context"
	"fmt"

	"github.com/nd-ahl/envive/internal/models"
)

type rewardRepository struct {
	store *Store
}

func (r *rewardRepository) Create(_ context.Context, balance *models.RewardBalance) (*models.RewardBalance, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rewards[balance.MemberID]; ok {
		return nil, fmt.Errorf("reward balance for member %d already exists", balance.MemberID)
	}
	c := *balance
	s.rewards[balance.MemberID] = &c
	out := c
	return &out, nil
}

func (r *rewardRepository) GetByMemberID(_ context.Context, memberID int64) (*models.RewardBalance, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.rewards[memberID]
	if !ok {
		return nil, nil
	}
	c := *b
	return &c, nil
}

func (r *rewardRepository) Update(_ context.Context, balance *models.RewardBalance) (*models.RewardBalance, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rewards[balance.MemberID]; !ok {
		return nil, fmt.Errorf("reward balance for member %d not found", balance.MemberID)
	}
	c := *balance
	s.rewards[balance.MemberID] = &c
	out := c
	return &out, nil
}
