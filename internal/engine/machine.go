package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nd-ahl/envive/internal/models"
	"github.com/nd-ahl/envive/internal/repository"
)

// Task assignment lifecycle:
//
//	assigned -> in_progress -> pending_review -> approved | declined
//
// approved and declined are terminal. Terminal transitions carry side
// effects (ledger append, score recompute, reward credit) that are applied
// in the same transaction as the status change: an assignment is never
// approved without its reward, and never credited twice.

// CreateAssignment creates a task assignment for the member in state
// assigned. The template describing the task lives outside this engine; only
// its id and the XP it is worth at the member's level are recorded here.
func (e *Engine) CreateAssignment(ctx context.Context, sess Session, memberID, templateID int64, baseXP int) (*models.TaskAssignment, error) {
	if err := e.guard.Authorize(ctx, sess, memberID); err != nil {
		return nil, err
	}
	if baseXP <= 0 {
		return nil, fmt.Errorf("%w: base XP must be positive, got %d", ErrInvalidAmount, baseXP)
	}
	member, err := e.repos.Members.GetByID(ctx, memberID)
	if err != nil {
		return nil, storageErr(err)
	}
	if member == nil {
		return nil, fmt.Errorf("%w: member %d does not exist", ErrInvalidMember, memberID)
	}

	now := e.Now()
	task, err := e.repos.Tasks.Create(ctx, &models.TaskAssignment{
		TemplateID: templateID,
		MemberID:   memberID,
		Status:     models.TaskStatusAssigned,
		BaseXP:     baseXP,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return nil, storageErr(err)
	}

	e.logger.WithFields(logrus.Fields{
		"assignment_id": task.ID,
		"member_id":     memberID,
		"template_id":   templateID,
		"base_xp":       baseXP,
	}).Info("Assignment created")
	return task, nil
}

// Start moves an assignment from assigned to in_progress.
func (e *Engine) Start(ctx context.Context, sess Session, assignmentID int64) error {
	task, err := e.loadAuthorizedTask(ctx, sess, assignmentID)
	if err != nil {
		return err
	}

	unlock := e.locks.lock(task.MemberID)
	defer unlock()

	task, err = e.reloadTask(ctx, assignmentID)
	if err != nil {
		return err
	}
	if task.Status != models.TaskStatusAssigned {
		return &TransitionError{AssignmentID: task.ID, From: task.Status, To: models.TaskStatusInProgress}
	}
	task.Status = models.TaskStatusInProgress
	task.UpdatedAt = e.Now()
	if _, err := e.repos.Tasks.Update(ctx, task); err != nil {
		return storageErr(err)
	}
	return nil
}

// SubmitForReview moves an assignment from in_progress to pending_review.
// proofRef may be empty; whether proof is mandatory for a given template is
// the caller's policy, not the machine's.
func (e *Engine) SubmitForReview(ctx context.Context, sess Session, assignmentID int64, proofRef string) error {
	task, err := e.loadAuthorizedTask(ctx, sess, assignmentID)
	if err != nil {
		return err
	}

	unlock := e.locks.lock(task.MemberID)
	defer unlock()

	task, err = e.reloadTask(ctx, assignmentID)
	if err != nil {
		return err
	}
	if task.Status != models.TaskStatusInProgress {
		return &TransitionError{AssignmentID: task.ID, From: task.Status, To: models.TaskStatusPendingReview}
	}
	task.Status = models.TaskStatusPendingReview
	task.ProofRef = proofRef
	task.UpdatedAt = e.Now()
	if _, err := e.repos.Tasks.Update(ctx, task); err != nil {
		return storageErr(err)
	}
	return nil
}

// Approve moves an assignment from pending_review to approved and, in the
// same transaction: appends the approval event (plus the streak bonus when
// earned), recomputes the trust profile, and credits XP and minutes at the
// post-approval multiplier. It returns what was credited.
func (e *Engine) Approve(ctx context.Context, sess Session, assignmentID int64) (xpCredited int, minutesCredited int, err error) {
	task, err := e.loadAuthorizedTask(ctx, sess, assignmentID)
	if err != nil {
		return 0, 0, err
	}

	unlock := e.locks.lock(task.MemberID)
	defer unlock()

	now := e.Now()
	memberID := task.MemberID

	err = e.tx.Do(ctx, func(r repository.Repositories) error {
		task, err := r.Tasks.GetByID(ctx, assignmentID)
		if err != nil {
			return storageErr(err)
		}
		if task == nil {
			return fmt.Errorf("%w: assignment %d", ErrNotFound, assignmentID)
		}
		if task.Status != models.TaskStatusPendingReview {
			return &TransitionError{AssignmentID: task.ID, From: task.Status, To: models.TaskStatusApproved}
		}

		profile, err := loadProfile(ctx, r, memberID)
		if err != nil {
			return err
		}

		profile.ConsecutiveApprovals++
		if _, err := appendEvent(ctx, r, &models.TrustEvent{
			MemberID:      memberID,
			Kind:          models.TrustEventApproval,
			Magnitude:     approvalPoints,
			OccurredAt:    now,
			RelatedTaskID: &task.ID,
		}); err != nil {
			return err
		}
		if profile.ConsecutiveApprovals%streakLength == 0 {
			if _, err := appendEvent(ctx, r, &models.TrustEvent{
				MemberID:      memberID,
				Kind:          models.TrustEventBonus,
				Magnitude:     streakBonus,
				OccurredAt:    now,
				RelatedTaskID: &task.ID,
			}); err != nil {
				return err
			}
		}

		status, err := refreshProfile(ctx, r, profile, now)
		if err != nil {
			return err
		}

		minutes, err := ConvertXP(task.BaseXP, status.Multiplier)
		if err != nil {
			return err
		}
		balance, err := r.Rewards.GetByMemberID(ctx, memberID)
		if err != nil {
			return storageErr(err)
		}
		if balance == nil {
			return fmt.Errorf("%w: no reward balance for member %d", ErrInvalidMember, memberID)
		}
		balance.XPBalance += task.BaseXP
		balance.MinutesBalance += minutes
		balance.UpdatedAt = now
		if _, err := r.Rewards.Update(ctx, balance); err != nil {
			return storageErr(err)
		}

		task.Status = models.TaskStatusApproved
		task.DecidedAt = &now
		task.UpdatedAt = now
		if _, err := r.Tasks.Update(ctx, task); err != nil {
			return storageErr(err)
		}

		xpCredited = task.BaseXP
		minutesCredited = minutes
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	// Fire-and-forget: the reward is already committed; enforcement
	// failures are not this engine's to surface.
	e.granter.GrantMinutes(ctx, memberID, minutesCredited)

	if e.metrics != nil {
		e.metrics.TasksApproved.Inc()
		e.metrics.XPCredited.Add(float64(xpCredited))
		e.metrics.MinutesGranted.Add(float64(minutesCredited))
	}
	e.logger.WithFields(logrus.Fields{
		"assignment_id": assignmentID,
		"member_id":     memberID,
		"xp":            xpCredited,
		"minutes":       minutesCredited,
	}).Info("Assignment approved")
	return xpCredited, minutesCredited, nil
}

// Decline moves an assignment from pending_review to declined and, in the
// same transaction, applies the dishonesty penalty (stacked when the
// previous penalty is less than a week old), resets the approval streak, and
// recomputes the score. No reward is credited. It returns the new score.
func (e *Engine) Decline(ctx context.Context, sess Session, assignmentID int64) (newScore int, err error) {
	task, err := e.loadAuthorizedTask(ctx, sess, assignmentID)
	if err != nil {
		return 0, err
	}

	unlock := e.locks.lock(task.MemberID)
	defer unlock()

	now := e.Now()
	memberID := task.MemberID

	err = e.tx.Do(ctx, func(r repository.Repositories) error {
		task, err := r.Tasks.GetByID(ctx, assignmentID)
		if err != nil {
			return storageErr(err)
		}
		if task == nil {
			return fmt.Errorf("%w: assignment %d", ErrNotFound, assignmentID)
		}
		if task.Status != models.TaskStatusPendingReview {
			return &TransitionError{AssignmentID: task.ID, From: task.Status, To: models.TaskStatusDeclined}
		}

		profile, err := loadProfile(ctx, r, memberID)
		if err != nil {
			return err
		}
		if err := applyPenalty(ctx, r, profile, &task.ID, now); err != nil {
			return err
		}
		status, err := refreshProfile(ctx, r, profile, now)
		if err != nil {
			return err
		}

		task.Status = models.TaskStatusDeclined
		task.DecidedAt = &now
		task.UpdatedAt = now
		if _, err := r.Tasks.Update(ctx, task); err != nil {
			return storageErr(err)
		}

		newScore = status.Score
		return nil
	})
	if err != nil {
		return 0, err
	}

	if e.metrics != nil {
		e.metrics.TasksDeclined.Inc()
		e.metrics.PenaltiesApplied.Inc()
	}
	e.logger.WithFields(logrus.Fields{
		"assignment_id": assignmentID,
		"member_id":     memberID,
		"score":         newScore,
	}).Info("Assignment declined")
	return newScore, nil
}

// applyPenalty appends a penalty event sized by the stacking rule and resets
// the approval streak. The magnitude is fixed at creation time; decay is
// applied to that fixed value at read time.
func applyPenalty(ctx context.Context, r repository.Repositories, profile *models.TrustProfile, relatedTaskID *int64, now time.Time) error {
	magnitude := penaltyMagnitude(profile.LastPenaltyAt, now)
	if _, err := appendEvent(ctx, r, &models.TrustEvent{
		MemberID:      profile.MemberID,
		Kind:          models.TrustEventPenalty,
		Magnitude:     magnitude,
		OccurredAt:    now,
		RelatedTaskID: relatedTaskID,
	}); err != nil {
		return err
	}
	profile.ConsecutiveApprovals = 0
	penaltyAt := now
	profile.LastPenaltyAt = &penaltyAt
	return nil
}

// refreshProfile recomputes the member's status from the ledger and persists
// it on the profile.
func refreshProfile(ctx context.Context, r repository.Repositories, profile *models.TrustProfile, now time.Time) (models.TrustStatus, error) {
	events, err := r.Events.ListByMember(ctx, profile.MemberID)
	if err != nil {
		return models.TrustStatus{}, storageErr(err)
	}
	status := Evaluate(events, now)
	profile.Score = status.Score
	profile.UpdatedAt = now
	if _, err := r.Profiles.Update(ctx, profile); err != nil {
		return models.TrustStatus{}, storageErr(err)
	}
	return status, nil
}

func loadProfile(ctx context.Context, r repository.Repositories, memberID int64) (*models.TrustProfile, error) {
	profile, err := r.Profiles.GetByMemberID(ctx, memberID)
	if err != nil {
		return nil, storageErr(err)
	}
	if profile == nil {
		return nil, fmt.Errorf("%w: no trust profile for member %d", ErrInvalidMember, memberID)
	}
	return profile, nil
}

// loadAuthorizedTask loads an assignment and verifies the caller may act on
// its member.
func (e *Engine) loadAuthorizedTask(ctx context.Context, sess Session, assignmentID int64) (*models.TaskAssignment, error) {
	task, err := e.reloadTask(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if err := e.guard.Authorize(ctx, sess, task.MemberID); err != nil {
		return nil, err
	}
	return task, nil
}

func (e *Engine) reloadTask(ctx context.Context, assignmentID int64) (*models.TaskAssignment, error) {
	task, err := e.repos.Tasks.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, storageErr(err)
	}
	if task == nil {
		return nil, fmt.Errorf("%w: assignment %d", ErrNotFound, assignmentID)
	}
	return task, nil
}
