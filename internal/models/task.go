package models

import "time"

// TaskStatus represents where an assignment is in its lifecycle.
type TaskStatus string

const (
	TaskStatusAssigned      TaskStatus = "assigned"
	TaskStatusInProgress    TaskStatus = "in_progress"
	TaskStatusPendingReview TaskStatus = "pending_review"
	TaskStatusApproved      TaskStatus = "approved"
	TaskStatusDeclined      TaskStatus = "declined"
)

// IsTerminal reports whether no further transitions may leave the status.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusApproved || s == TaskStatusDeclined
}

// TaskAssignment is one task handed to one member. The task description
// itself (title, proof policy, level) lives in an external template; the
// assignment only carries what the reward engine needs.
type TaskAssignment struct {
	ID         int64      `json:"id" db:"id"`
	TemplateID int64      `json:"template_id" db:"template_id"`
	MemberID   int64      `json:"member_id" db:"member_id"`
	Status     TaskStatus `json:"status" db:"status"`
	BaseXP     int        `json:"base_xp" db:"base_xp"`
	ProofRef   string     `json:"proof_ref" db:"proof_ref"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
	DecidedAt  *time.Time `json:"decided_at" db:"decided_at"`
}

// IsDecided returns true once the assignment reached a terminal state.
func (t *TaskAssignment) IsDecided() bool {
	return t.Status.IsTerminal()
}

// IsPendingReview returns true if the assignment is waiting on a reviewer.
func (t *TaskAssignment) IsPendingReview() bool {
	return t.Status == TaskStatusPendingReview
}
