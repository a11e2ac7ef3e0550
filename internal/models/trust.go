package models

import "time"

// TrustEventKind classifies a trust ledger entry.
type TrustEventKind string

const (
	TrustEventPenalty     TrustEventKind = "penalty"
	TrustEventPenaltyUndo TrustEventKind = "penalty_undo"
	TrustEventApproval    TrustEventKind = "approval"
	TrustEventBonus       TrustEventKind = "bonus"
)

// TrustEvent is a single immutable entry in a member's trust ledger.
// Corrections are modeled as new penalty_undo entries, never as edits.
type TrustEvent struct {
	ID            int64          `json:"id" db:"id"`
	MemberID      int64          `json:"member_id" db:"member_id"`
	Kind          TrustEventKind `json:"kind" db:"kind"`
	Magnitude     int            `json:"magnitude" db:"magnitude"`
	OccurredAt    time.Time      `json:"occurred_at" db:"occurred_at"`
	RelatedTaskID *int64         `json:"related_task_id" db:"related_task_id"`
	UndoesEventID *int64         `json:"undoes_event_id" db:"undoes_event_id"`
}

// IsPenalty returns true for entries that lower the score.
func (e *TrustEvent) IsPenalty() bool {
	return e.Kind == TrustEventPenalty
}

// TrustProfile holds the cached score and the streak bookkeeping for a member.
// The ledger remains the source of truth; the profile is recomputed from it
// on every trust-affecting write.
type TrustProfile struct {
	MemberID             int64      `json:"member_id" db:"member_id"`
	Score                int        `json:"score" db:"score"`
	ConsecutiveApprovals int        `json:"consecutive_approvals" db:"consecutive_approvals"`
	LastPenaltyAt        *time.Time `json:"last_penalty_at" db:"last_penalty_at"`
	UpdatedAt            time.Time  `json:"updated_at" db:"updated_at"`
}

// TrustTier buckets a score into one of five named bands.
type TrustTier string

const (
	TierExcellent TrustTier = "excellent"
	TierGood      TrustTier = "good"
	TierFair      TrustTier = "fair"
	TierPoor      TrustTier = "poor"
	TierVeryPoor  TrustTier = "very_poor"
)

// TrustStatus is the computed view of a member's current standing.
type TrustStatus struct {
	Score      int       `json:"score"`
	Tier       TrustTier `json:"tier"`
	Multiplier float64   `json:"multiplier"`
}
