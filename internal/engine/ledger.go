package engine

import (
	"context"
	"time"

	"github.com/nd-ahl/envive/internal/models"
	"github.com/nd-ahl/envive/internal/repository"
)

// validateEvent enforces the magnitude sign rules before anything reaches
// the ledger: penalties negative, undos positive, approvals and bonuses
// non-negative.
func validateEvent(e *models.TrustEvent) error {
	switch e.Kind {
	case models.TrustEventPenalty:
		if e.Magnitude >= 0 {
			return &EventError{Kind: e.Kind, Msg: "penalty magnitude must be negative"}
		}
	case models.TrustEventPenaltyUndo:
		if e.Magnitude <= 0 {
			return &EventError{Kind: e.Kind, Msg: "undo magnitude must be positive"}
		}
	case models.TrustEventApproval, models.TrustEventBonus:
		if e.Magnitude < 0 {
			return &EventError{Kind: e.Kind, Msg: "magnitude must be non-negative"}
		}
	default:
		return &EventError{Kind: e.Kind, Msg: "unknown event kind"}
	}
	if e.MemberID == 0 {
		return &EventError{Kind: e.Kind, Msg: "member id is required"}
	}
	return nil
}

// appendEvent validates and appends one event inside the caller's
// transaction.
func appendEvent(ctx context.Context, r repository.Repositories, e *models.TrustEvent) (*models.TrustEvent, error) {
	if err := validateEvent(e); err != nil {
		return nil, err
	}
	saved, err := r.Events.Append(ctx, e)
	if err != nil {
		return nil, storageErr(err)
	}
	return saved, nil
}

// lastOpenPenalty returns the most recent penalty that has not been undone,
// or nil. Events must be in chronological order.
func lastOpenPenalty(events []*models.TrustEvent) *models.TrustEvent {
	undone := make(map[int64]bool)
	var open []*models.TrustEvent

	for _, e := range events {
		switch e.Kind {
		case models.TrustEventPenalty:
			open = append(open, e)
		case models.TrustEventPenaltyUndo:
			if e.UndoesEventID != nil {
				undone[*e.UndoesEventID] = true
			} else if n := len(open); n > 0 {
				undone[open[n-1].ID] = true
			}
			for len(open) > 0 && undone[open[len(open)-1].ID] {
				open = open[:len(open)-1]
			}
		}
	}
	for i := len(open) - 1; i >= 0; i-- {
		if !undone[open[i].ID] {
			return open[i]
		}
	}
	return nil
}

// undoLastPenalty appends the mirror undo event for the member's most recent
// un-undone penalty and returns the restored magnitude. "Switch the vote
// back" and "tap again to undo" both land here, so both restore exactly the
// same amount.
func undoLastPenalty(ctx context.Context, r repository.Repositories, memberID int64, relatedTaskID *int64, now time.Time) (int, error) {
	events, err := r.Events.ListByMember(ctx, memberID)
	if err != nil {
		return 0, storageErr(err)
	}
	penalty := lastOpenPenalty(events)
	if penalty == nil {
		return 0, ErrNoPenaltyToUndo
	}

	undo := &models.TrustEvent{
		MemberID:      memberID,
		Kind:          models.TrustEventPenaltyUndo,
		Magnitude:     -penalty.Magnitude,
		OccurredAt:    now,
		RelatedTaskID: relatedTaskID,
		UndoesEventID: &penalty.ID,
	}
	if _, err := appendEvent(ctx, r, undo); err != nil {
		return 0, err
	}
	return -penalty.Magnitude, nil
}
