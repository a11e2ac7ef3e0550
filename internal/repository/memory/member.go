package memory

import (
	"context"
	"fmt"

	"github.com/nd-ahl/envive/internal/models"
)

type memberRepository struct {
	store *Store
}

func (r *memberRepository) Create(_ context.Context, member *models.Member) (*models.Member, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cloneMember(member)
	c.ID = s.memberSeq.Inc()
	s.members[c.ID] = c
	return cloneMember(c), nil
}

func (r *memberRepository) GetByID(_ context.Context, id int64) (*models.Member, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.members[id]
	if !ok {
		return nil, nil
	}
	return cloneMember(m), nil
}

func (r *memberRepository) GetByTelegramID(_ context.Context, telegramID int64) (*models.Member, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.members {
		if m.TelegramID != nil && *m.TelegramID == telegramID {
			return cloneMember(m), nil
		}
	}
	return nil, nil
}

func (r *memberRepository) Update(_ context.Context, member *models.Member) (*models.Member, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[member.ID]; !ok {
		return nil, fmt.Errorf("member %d not found", member.ID)
	}
	s.members[member.ID] = cloneMember(member)
	return cloneMember(member), nil
}

func (r *memberRepository) Delete(_ context.Context, id int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[id]; !ok {
		return fmt.Errorf("member %d not found", id)
	}
	// Profile, ledger, and balance are lifetime-bound to the member.
	delete(s.members, id)
	delete(s.profiles, id)
	delete(s.events, id)
	delete(s.rewards, id)
	for linkID, l := range s.links {
		if l.MemberID == id {
			delete(s.links, linkID)
		}
	}
	return nil
}
