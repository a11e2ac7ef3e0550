package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/nd-ahl/envive/internal/models"
)

type profileRepository struct {
	store *Store
}

func (r *profileRepository) Create(_ context.Context, profile *models.TrustProfile) (*models.TrustProfile, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[profile.MemberID]; ok {
		return nil, fmt.Errorf("trust profile for member %d already exists", profile.MemberID)
	}
	s.profiles[profile.MemberID] = cloneProfile(profile)
	return cloneProfile(profile), nil
}

func (r *profileRepository) GetByMemberID(_ context.Context, memberID int64) (*models.TrustProfile, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[memberID]
	if !ok {
		return nil, nil
	}
	return cloneProfile(p), nil
}

func (r *profileRepository) Update(_ context.Context, profile *models.TrustProfile) (*models.TrustProfile, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[profile.MemberID]; !ok {
		return nil, fmt.Errorf("trust profile for member %d not found", profile.MemberID)
	}
	s.profiles[profile.MemberID] = cloneProfile(profile)
	return cloneProfile(profile), nil
}

type eventRepository struct {
	store *Store
}

// Append assigns the event ID and stores it. Append order is the read
// order; IDs are monotonic and double as the occurred-at tiebreaker.
func (r *eventRepository) Append(_ context.Context, event *models.TrustEvent) (*models.TrustEvent, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cloneEvent(event)
	c.ID = s.eventSeq.Inc()
	s.events[c.MemberID] = append(s.events[c.MemberID], c)
	return cloneEvent(c), nil
}

func (r *eventRepository) ListByMember(_ context.Context, memberID int64) ([]*models.TrustEvent, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	evs := s.events[memberID]
	out := make([]*models.TrustEvent, len(evs))
	for i, e := range evs {
		out[i] = cloneEvent(e)
	}
	return out, nil
}

func (r *eventRepository) ListByMemberSince(_ context.Context, memberID int64, since time.Time) ([]*models.TrustEvent, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.TrustEvent
	for _, e := range s.events[memberID] {
		if e.OccurredAt.Before(since) {
			continue
		}
		out = append(out, cloneEvent(e))
	}
	return out, nil
}
