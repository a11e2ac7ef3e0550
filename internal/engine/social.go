package engine

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/nd-ahl/envive/internal/repository"
)

// ApplySocialPenalty penalizes a member whose shared content was flagged.
// It mirrors Decline's penalty path (stacking rule, streak reset, score
// recompute) without any task transition. Which member to penalize —
// content author or voter — is the caller's policy; the engine applies the
// penalty to whoever it is told to. It returns the new score.
func (e *Engine) ApplySocialPenalty(ctx context.Context, sess Session, memberID int64, relatedTaskID *int64) (int, error) {
	if err := e.guard.Authorize(ctx, sess, memberID); err != nil {
		return 0, err
	}

	unlock := e.locks.lock(memberID)
	defer unlock()

	now := e.Now()
	var newScore int
	err := e.tx.Do(ctx, func(r repository.Repositories) error {
		profile, err := loadProfile(ctx, r, memberID)
		if err != nil {
			return err
		}
		if err := applyPenalty(ctx, r, profile, relatedTaskID, now); err != nil {
			return err
		}
		status, err := refreshProfile(ctx, r, profile, now)
		if err != nil {
			return err
		}
		newScore = status.Score
		return nil
	})
	if err != nil {
		return 0, err
	}

	if e.metrics != nil {
		e.metrics.PenaltiesApplied.Inc()
	}
	e.logger.WithFields(logrus.Fields{
		"member_id": memberID,
		"score":     newScore,
	}).Info("Social penalty applied")
	return newScore, nil
}

// UndoSocialPenalty reverses the member's most recent un-undone penalty by
// appending the mirror undo event, and returns the restored magnitude.
// Undoing a penalty that was never applied fails with ErrNoPenaltyToUndo.
func (e *Engine) UndoSocialPenalty(ctx context.Context, sess Session, memberID int64, relatedTaskID *int64) (int, error) {
	if err := e.guard.Authorize(ctx, sess, memberID); err != nil {
		return 0, err
	}

	unlock := e.locks.lock(memberID)
	defer unlock()

	now := e.Now()
	var restored int
	err := e.tx.Do(ctx, func(r repository.Repositories) error {
		profile, err := loadProfile(ctx, r, memberID)
		if err != nil {
			return err
		}
		delta, err := undoLastPenalty(ctx, r, memberID, relatedTaskID, now)
		if err != nil {
			return err
		}
		if _, err := refreshProfile(ctx, r, profile, now); err != nil {
			return err
		}
		restored = delta
		return nil
	})
	if err != nil {
		return 0, err
	}

	if e.metrics != nil {
		e.metrics.PenaltiesUndone.Inc()
	}
	e.logger.WithFields(logrus.Fields{
		"member_id": memberID,
		"restored":  restored,
	}).Info("Penalty undone")
	return restored, nil
}
