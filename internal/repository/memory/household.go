package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/nd-ahl/envive/internal/models"
)

type householdRepository struct {
	store *Store
}

func (r *householdRepository) Create(_ context.Context, household *models.Household) (*models.Household, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cloneHousehold(household)
	c.ID = s.householdSeq.Inc()
	s.households[c.ID] = c
	return cloneHousehold(c), nil
}

func (r *householdRepository) GetByID(_ context.Context, id int64) (*models.Household, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.households[id]
	if !ok {
		return nil, nil
	}
	return cloneHousehold(h), nil
}

func (r *householdRepository) GetByChatID(_ context.Context, chatID int64) (*models.Household, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, h := range s.households {
		if h.ChatID != nil && *h.ChatID == chatID {
			return cloneHousehold(h), nil
		}
	}
	return nil, nil
}

func (r *householdRepository) Update(_ context.Context, household *models.Household) (*models.Household, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.households[household.ID]; !ok {
		return nil, fmt.Errorf("household %d not found", household.ID)
	}
	s.households[household.ID] = cloneHousehold(household)
	return cloneHousehold(household), nil
}

func (r *householdRepository) AddMember(_ context.Context, householdID, memberID int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.links {
		if l.HouseholdID == householdID && l.MemberID == memberID {
			return nil
		}
	}
	id := s.linkSeq.Inc()
	s.links[id] = &models.HouseholdMember{
		ID:          id,
		HouseholdID: householdID,
		MemberID:    memberID,
		JoinedAt:    time.Now(),
	}
	return nil
}

func (r *householdRepository) RemoveMember(_ context.Context, householdID, memberID int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, l := range s.links {
		if l.HouseholdID == householdID && l.MemberID == memberID {
			delete(s.links, id)
			return nil
		}
	}
	return fmt.Errorf("member %d is not in household %d", memberID, householdID)
}

func (r *householdRepository) GetMembers(_ context.Context, householdID int64) ([]*models.Member, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var members []*models.Member
	for _, l := range s.links {
		if l.HouseholdID != householdID {
			continue
		}
		if m, ok := s.members[l.MemberID]; ok {
			members = append(members, cloneMember(m))
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}

func (r *householdRepository) IsMember(_ context.Context, householdID, memberID int64) (bool, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, l := range s.links {
		if l.HouseholdID == householdID && l.MemberID == memberID {
			return true, nil
		}
	}
	return false, nil
}
