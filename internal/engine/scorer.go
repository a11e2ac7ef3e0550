package engine

import (
	"time"

	"github.com/nd-ahl/envive/internal/models"
)

// Scoring constants. Penalties decay twice — to half after 30 days and to
// nothing after 60 — while approvals and bonuses never decay.
const (
	baselineScore = 100
	minScore      = 0
	maxScore      = 100

	penaltyBase    = -10 // first penalty, or first after a quiet week
	penaltyStacked = -15 // penalty within the stacking window of the last one
	stackingWindow = 7 * 24 * time.Hour

	halfDecayAge = 30 * 24 * time.Hour
	fullDecayAge = 60 * 24 * time.Hour

	approvalPoints = 2
	streakBonus    = 5
	streakLength   = 10
)

// Score folds a member's ledger into the current score at the given instant.
// It is a pure function of its inputs: the same events and the same now
// always produce the same score.
//
// Undone penalties and their matching undo entries are dropped from the fold
// entirely, so an undone penalty nets to zero at every evaluation time
// regardless of how much decay had applied when the undo happened.
func Score(events []*models.TrustEvent, now time.Time) int {
	total := baselineScore
	for _, e := range liveEvents(events) {
		switch e.Kind {
		case models.TrustEventPenalty:
			total += decayedMagnitude(e.Magnitude, now.Sub(e.OccurredAt))
		case models.TrustEventApproval, models.TrustEventBonus:
			total += e.Magnitude
		}
	}
	return clampScore(total)
}

// Evaluate returns the full trust status (score, tier, multiplier).
func Evaluate(events []*models.TrustEvent, now time.Time) models.TrustStatus {
	score := Score(events, now)
	tier, multiplier := TierFor(score)
	return models.TrustStatus{Score: score, Tier: tier, Multiplier: multiplier}
}

// TierFor maps a score onto its tier and reward multiplier. Bounds are
// inclusive on the low end; the five multipliers are fixed, never
// interpolated.
func TierFor(score int) (models.TrustTier, float64) {
	switch {
	case score >= 90:
		return models.TierExcellent, 1.2
	case score >= 75:
		return models.TierGood, 1.0
	case score >= 60:
		return models.TierFair, 0.8
	case score >= 40:
		return models.TierPoor, 0.5
	default:
		return models.TierVeryPoor, 0.3
	}
}

// liveEvents filters out undone penalties and all undo entries, preserving
// chronological order. An undo names its penalty via UndoesEventID; undo
// entries appended without one cancel the most recent un-undone penalty
// preceding them.
func liveEvents(events []*models.TrustEvent) []*models.TrustEvent {
	undone := make(map[int64]bool)
	var openPenalties []int64 // IDs of penalties not yet undone, oldest first

	for _, e := range events {
		switch e.Kind {
		case models.TrustEventPenalty:
			openPenalties = append(openPenalties, e.ID)
		case models.TrustEventPenaltyUndo:
			if e.UndoesEventID != nil {
				undone[*e.UndoesEventID] = true
				for i := len(openPenalties) - 1; i >= 0; i-- {
					if openPenalties[i] == *e.UndoesEventID {
						openPenalties = append(openPenalties[:i], openPenalties[i+1:]...)
						break
					}
				}
			} else if n := len(openPenalties); n > 0 {
				undone[openPenalties[n-1]] = true
				openPenalties = openPenalties[:n-1]
			}
		}
	}

	live := make([]*models.TrustEvent, 0, len(events))
	for _, e := range events {
		if e.Kind == models.TrustEventPenaltyUndo {
			continue
		}
		if e.Kind == models.TrustEventPenalty && undone[e.ID] {
			continue
		}
		live = append(live, e)
	}
	return live
}

// decayedMagnitude applies the forgiveness schedule to a penalty magnitude.
// Halving truncates toward zero.
func decayedMagnitude(magnitude int, age time.Duration) int {
	switch {
	case age >= fullDecayAge:
		return 0
	case age >= halfDecayAge:
		return magnitude / 2
	default:
		return magnitude
	}
}

// penaltyMagnitude picks the raw magnitude for a new penalty: stacked if the
// previous penalty is within the stacking window, base otherwise.
func penaltyMagnitude(lastPenaltyAt *time.Time, now time.Time) int {
	if lastPenaltyAt != nil && now.Sub(*lastPenaltyAt) <= stackingWindow {
		return penaltyStacked
	}
	return penaltyBase
}

func clampScore(score int) int {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}
