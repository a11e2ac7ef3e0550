package engine

import (
	"errors"
	"fmt"

	"github.com/nd-ahl/envive/internal/models"
)

// Sentinel errors forming the engine's error taxonomy. Callers branch with
// errors.Is; the API and bot layers map these onto their own vocabularies.
var (
	// ErrInvalidTransition means the assignment was not in a state that
	// permits the requested transition. Caller bug; never retried.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInvalidEvent means a trust event failed validation (magnitude
	// sign inconsistent with its kind).
	ErrInvalidEvent = errors.New("invalid trust event")

	// ErrInvalidAmount means a caller-supplied amount was out of domain
	// (negative XP, overdrawn spend).
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNoPenaltyToUndo means the member has no un-undone penalty. The
	// UI uses this to disable the undo affordance.
	ErrNoPenaltyToUndo = errors.New("no penalty to undo")

	// ErrNotAuthorized means the caller's household does not include the
	// member. Deliberately distinct from an empty result: the caller
	// should resynchronize membership, not conclude "no tasks exist".
	ErrNotAuthorized = errors.New("not authorized for member")

	// ErrInvalidMember means the call named a member that does not exist.
	// The engine fails closed instead of substituting any default
	// identity.
	ErrInvalidMember = errors.New("invalid member")

	// ErrNotFound means the named record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStorage wraps collaborator I/O failures. The engine never
	// retries internally; a terminal transition must not risk being
	// applied twice.
	ErrStorage = errors.New("storage failure")
)

// TransitionError reports the state an assignment was actually in when a
// transition was refused.
type TransitionError struct {
	AssignmentID int64
	From         models.TaskStatus
	To           models.TaskStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("assignment %d: cannot move %s -> %s", e.AssignmentID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// EventError reports why a trust event was rejected by the ledger.
type EventError struct {
	Kind models.TrustEventKind
	Msg  string
}

func (e *EventError) Error() string {
	return fmt.Sprintf("trust event (%s): %s", e.Kind, e.Msg)
}

func (e *EventError) Unwrap() error { return ErrInvalidEvent }

func storageErr(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
