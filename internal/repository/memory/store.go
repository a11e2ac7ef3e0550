// Package memory implements the repository interfaces over in-process maps.
// It backs the test suite and embedded deployments that have no PostgreSQL.
package memory

import (
	"context"
	"sync"

	"go.uber.org/atomic"

	"github.com/nd-ahl/envive/internal/models"
	"github.com/nd-ahl/envive/internal/repository"
)

// Store holds all records behind one RWMutex. Reads may run concurrently;
// transactions are serialized by a separate mutex and roll back by restoring
// a snapshot taken before the transaction body ran.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	memberSeq    *atomic.Int64
	householdSeq *atomic.Int64
	eventSeq     *atomic.Int64
	taskSeq      *atomic.Int64
	linkSeq      *atomic.Int64

	members    map[int64]*models.Member
	households map[int64]*models.Household
	links      map[int64]*models.HouseholdMember
	profiles   map[int64]*models.TrustProfile // keyed by member id
	events     map[int64][]*models.TrustEvent // keyed by member id, append order
	tasks      map[int64]*models.TaskAssignment
	rewards    map[int64]*models.RewardBalance // keyed by member id
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		memberSeq:    atomic.NewInt64(0),
		householdSeq: atomic.NewInt64(0),
		eventSeq:     atomic.NewInt64(0),
		taskSeq:      atomic.NewInt64(0),
		linkSeq:      atomic.NewInt64(0),
		members:      make(map[int64]*models.Member),
		households:   make(map[int64]*models.Household),
		links:        make(map[int64]*models.HouseholdMember),
		profiles:     make(map[int64]*models.TrustProfile),
		events:       make(map[int64][]*models.TrustEvent),
		tasks:        make(map[int64]*models.TaskAssignment),
		rewards:      make(map[int64]*models.RewardBalance),
	}
}

// Repositories returns the full repository set over this store.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Members:    &memberRepository{store: s},
		Households: &householdRepository{store: s},
		Profiles:   &profileRepository{store: s},
		Events:     &eventRepository{store: s},
		Tasks:      &taskRepository{store: s},
		Rewards:    &rewardRepository{store: s},
	}
}

// TxManager returns a transaction manager over this store.
func (s *Store) TxManager() repository.TxManager {
	return &txManager{store: s}
}

type txManager struct {
	store *Store
}

// Do runs fn against the live store, restoring the pre-transaction snapshot
// if fn fails. Transactions are serialized; plain reads stay concurrent.
func (t *txManager) Do(ctx context.Context, fn func(r repository.Repositories) error) error {
	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	snap := t.store.snapshot()
	if err := fn(t.store.Repositories()); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	members    map[int64]*models.Member
	households map[int64]*models.Household
	links      map[int64]*models.HouseholdMember
	profiles   map[int64]*models.TrustProfile
	events     map[int64][]*models.TrustEvent
	tasks      map[int64]*models.TaskAssignment
	rewards    map[int64]*models.RewardBalance
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		members:    make(map[int64]*models.Member, len(s.members)),
		households: make(map[int64]*models.Household, len(s.households)),
		links:      make(map[int64]*models.HouseholdMember, len(s.links)),
		profiles:   make(map[int64]*models.TrustProfile, len(s.profiles)),
		events:     make(map[int64][]*models.TrustEvent, len(s.events)),
		tasks:      make(map[int64]*models.TaskAssignment, len(s.tasks)),
		rewards:    make(map[int64]*models.RewardBalance, len(s.rewards)),
	}
	for id, m := range s.members {
		snap.members[id] = cloneMember(m)
	}
	for id, h := range s.households {
		snap.households[id] = cloneHousehold(h)
	}
	for id, l := range s.links {
		c := *l
		snap.links[id] = &c
	}
	for id, p := range s.profiles {
		snap.profiles[id] = cloneProfile(p)
	}
	for id, evs := range s.events {
		list := make([]*models.TrustEvent, len(evs))
		for i, e := range evs {
			list[i] = cloneEvent(e)
		}
		snap.events[id] = list
	}
	for id, t := range s.tasks {
		snap.tasks[id] = cloneTask(t)
	}
	for id, b := range s.rewards {
		c := *b
		snap.rewards[id] = &c
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.members = snap.members
	s.households = snap.households
	s.links = snap.links
	s.profiles = snap.profiles
	s.events = snap.events
	s.tasks = snap.tasks
	s.rewards = snap.rewards
}

func cloneMember(m *models.Member) *models.Member {
	c := *m
	if m.TelegramID != nil {
		v := *m.TelegramID
		c.TelegramID = &v
	}
	return &c
}

func cloneHousehold(h *models.Household) *models.Household {
	c := *h
	if h.ChatID != nil {
		v := *h.ChatID
		c.ChatID = &v
	}
	c.Members = nil
	return &c
}

func cloneProfile(p *models.TrustProfile) *models.TrustProfile {
	c := *p
	if p.LastPenaltyAt != nil {
		v := *p.LastPenaltyAt
		c.LastPenaltyAt = &v
	}
	return &c
}

func cloneEvent(e *models.TrustEvent) *models.TrustEvent {
	c := *e
	if e.RelatedTaskID != nil {
		v := *e.RelatedTaskID
		c.RelatedTaskID = &v
	}
	if e.UndoesEventID != nil {
		v := *e.UndoesEventID
		c.UndoesEventID = &v
	}
	return &c
}

func cloneTask(t *models.TaskAssignment) *models.TaskAssignment {
	c := *t
	if t.DecidedAt != nil {
		v := *t.DecidedAt
		c.DecidedAt = &v
	}
	return &c
}
