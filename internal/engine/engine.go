package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nd-ahl/envive/internal/metrics"
	"github.com/nd-ahl/envive/internal/models"
	"github.com/nd-ahl/envive/internal/repository"
	"github.com/nd-ahl/envive/internal/screentime"
)

// Engine is the trust and task reward engine. It owns the task assignment
// state machine, the trust ledger and scorer, and the reward conversion, and
// serializes all mutations per member. An Engine instance is passed
// explicitly to whoever needs it; there is no shared global instance.
type Engine struct {
	repos   repository.Repositories
	tx      repository.TxManager
	guard   *Guard
	granter screentime.Granter
	metrics *metrics.Metrics
	logger  *logrus.Logger
	locks   *memberLocks

	// Now supplies the current time. Tests override it to make decay
	// deterministic.
	Now func() time.Time
}

// New creates an Engine. metrics may be nil when no collector is wired.
func New(repos repository.Repositories, tx repository.TxManager, granter screentime.Granter, m *metrics.Metrics, logger *logrus.Logger) *Engine {
	return &Engine{
		repos:   repos,
		tx:      tx,
		guard:   NewGuard(repos.Households),
		granter: granter,
		metrics: m,
		logger:  logger,
		locks:   newMemberLocks(),
		Now:     time.Now,
	}
}

// Guard exposes the engine's isolation guard to surfaces that need to make
// their own authorization decisions.
func (e *Engine) Guard() *Guard {
	return e.guard
}

// CurrentTrust returns the member's score, tier, and multiplier, computed
// fresh from the ledger.
func (e *Engine) CurrentTrust(ctx context.Context, sess Session, memberID int64) (models.TrustStatus, error) {
	if err := e.guard.Authorize(ctx, sess, memberID); err != nil {
		return models.TrustStatus{}, err
	}
	profile, err := e.repos.Profiles.GetByMemberID(ctx, memberID)
	if err != nil {
		return models.TrustStatus{}, storageErr(err)
	}
	if profile == nil {
		return models.TrustStatus{}, fmt.Errorf("%w: no trust profile for member %d", ErrInvalidMember, memberID)
	}
	events, err := e.repos.Events.ListByMember(ctx, memberID)
	if err != nil {
		return models.TrustStatus{}, storageErr(err)
	}
	return Evaluate(events, e.Now()), nil
}

// CurrentBalance returns the member's XP and minutes balances.
func (e *Engine) CurrentBalance(ctx context.Context, sess Session, memberID int64) (*models.RewardBalance, error) {
	if err := e.guard.Authorize(ctx, sess, memberID); err != nil {
		return nil, err
	}
	balance, err := e.repos.Rewards.GetByMemberID(ctx, memberID)
	if err != nil {
		return nil, storageErr(err)
	}
	if balance == nil {
		return nil, fmt.Errorf("%w: no reward balance for member %d", ErrInvalidMember, memberID)
	}
	return balance, nil
}

// TrustHistory returns the member's ledger entries at or after since, oldest
// first. A zero since returns the full history.
func (e *Engine) TrustHistory(ctx context.Context, sess Session, memberID int64, since time.Time) ([]*models.TrustEvent, error) {
	if err := e.guard.Authorize(ctx, sess, memberID); err != nil {
		return nil, err
	}
	events, err := e.repos.Events.ListByMemberSince(ctx, memberID, since)
	if err != nil {
		return nil, storageErr(err)
	}
	return events, nil
}

// ListAssignments returns the member's task assignments. Assignments
// belonging to other members are never mixed in; an unauthorized caller gets
// ErrNotAuthorized, not an empty list.
func (e *Engine) ListAssignments(ctx context.Context, sess Session, memberID int64, filters repository.TaskFilters) ([]*models.TaskAssignment, error) {
	if err := e.guard.Authorize(ctx, sess, memberID); err != nil {
		return nil, err
	}
	tasks, err := e.repos.Tasks.GetByMember(ctx, memberID, filters)
	if err != nil {
		return nil, storageErr(err)
	}
	return tasks, nil
}

// GetMember returns a household member.
func (e *Engine) GetMember(ctx context.Context, sess Session, memberID int64) (*models.Member, error) {
	if err := e.guard.Authorize(ctx, sess, memberID); err != nil {
		return nil, err
	}
	member, err := e.repos.Members.GetByID(ctx, memberID)
	if err != nil {
		return nil, storageErr(err)
	}
	if member == nil {
		return nil, fmt.Errorf("%w: member %d", ErrNotFound, memberID)
	}
	return member, nil
}

// SpendMinutes debits minutes from the member's balance (the external
// consumption path). It fails with ErrInvalidAmount if the debit is not
// positive or would overdraw the balance, and returns the remaining minutes.
func (e *Engine) SpendMinutes(ctx context.Context, sess Session, memberID int64, minutes int) (int, error) {
	if err := e.guard.Authorize(ctx, sess, memberID); err != nil {
		return 0, err
	}
	if minutes <= 0 {
		return 0, fmt.Errorf("%w: spend must be positive, got %d", ErrInvalidAmount, minutes)
	}

	unlock := e.locks.lock(memberID)
	defer unlock()

	var remaining int
	err := e.tx.Do(ctx, func(r repository.Repositories) error {
		balance, err := r.Rewards.GetByMemberID(ctx, memberID)
		if err != nil {
			return storageErr(err)
		}
		if balance == nil {
			return fmt.Errorf("%w: no reward balance for member %d", ErrInvalidMember, memberID)
		}
		if balance.MinutesBalance < minutes {
			return fmt.Errorf("%w: %d minutes requested, %d available", ErrInvalidAmount, minutes, balance.MinutesBalance)
		}
		balance.MinutesBalance -= minutes
		balance.UpdatedAt = e.Now()
		if _, err := r.Rewards.Update(ctx, balance); err != nil {
			return storageErr(err)
		}
		remaining = balance.MinutesBalance
		return nil
	})
	if err != nil {
		return 0, err
	}

	e.logger.WithFields(logrus.Fields{
		"member_id": memberID,
		"minutes":   minutes,
		"remaining": remaining,
	}).Info("Minutes spent")
	return remaining, nil
}
