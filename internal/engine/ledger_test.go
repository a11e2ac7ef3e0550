package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/nd-ahl/envive/internal/models"
)

func TestValidateEvent_SignRules(t *testing.T) {
	at := time.Now()
	tests := []struct {
		name    string
		event   *models.TrustEvent
		wantErr bool
	}{
		{"penalty negative ok", &models.TrustEvent{MemberID: 1, Kind: models.TrustEventPenalty, Magnitude: -10, OccurredAt: at}, false},
		{"penalty positive rejected", &models.TrustEvent{MemberID: 1, Kind: models.TrustEventPenalty, Magnitude: 10, OccurredAt: at}, true},
		{"penalty zero rejected", &models.TrustEvent{MemberID: 1, Kind: models.TrustEventPenalty, Magnitude: 0, OccurredAt: at}, true},
		{"undo positive ok", &models.TrustEvent{MemberID: 1, Kind: models.TrustEventPenaltyUndo, Magnitude: 10, OccurredAt: at}, false},
		{"undo negative rejected", &models.TrustEvent{MemberID: 1, Kind: models.TrustEventPenaltyUndo, Magnitude: -10, OccurredAt: at}, true},
		{"approval non-negative ok", &models.TrustEvent{MemberID: 1, Kind: models.TrustEventApproval, Magnitude: 0, OccurredAt: at}, false},
		{"approval negative rejected", &models.TrustEvent{MemberID: 1, Kind: models.TrustEventApproval, Magnitude: -2, OccurredAt: at}, true},
		{"bonus negative rejected", &models.TrustEvent{MemberID: 1, Kind: models.TrustEventBonus, Magnitude: -5, OccurredAt: at}, true},
		{"unknown kind rejected", &models.TrustEvent{MemberID: 1, Kind: "mystery", Magnitude: 1, OccurredAt: at}, true},
		{"missing member rejected", &models.TrustEvent{Kind: models.TrustEventApproval, Magnitude: 2, OccurredAt: at}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEvent(tt.event)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidEvent) {
					t.Fatalf("expected ErrInvalidEvent, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestLastOpenPenalty(t *testing.T) {
	t.Run("no events", func(t *testing.T) {
		if got := lastOpenPenalty(nil); got != nil {
			t.Fatalf("expected nil, got %+v", got)
		}
	})

	t.Run("single penalty", func(t *testing.T) {
		events := []*models.TrustEvent{penaltyAt(1, -10, scoreEpoch)}
		got := lastOpenPenalty(events)
		if got == nil || got.ID != 1 {
			t.Fatalf("expected penalty 1, got %+v", got)
		}
	})

	t.Run("most recent first", func(t *testing.T) {
		events := []*models.TrustEvent{
			penaltyAt(1, -10, scoreEpoch),
			penaltyAt(2, -15, scoreEpoch.Add(time.Hour)),
		}
		got := lastOpenPenalty(events)
		if got == nil || got.ID != 2 {
			t.Fatalf("expected penalty 2, got %+v", got)
		}
	})

	t.Run("undone penalty is skipped", func(t *testing.T) {
		events := []*models.TrustEvent{
			penaltyAt(1, -10, scoreEpoch),
			penaltyAt(2, -15, scoreEpoch.Add(time.Hour)),
			undoOf(3, 2, 15, scoreEpoch.Add(2*time.Hour)),
		}
		got := lastOpenPenalty(events)
		if got == nil || got.ID != 1 {
			t.Fatalf("expected penalty 1, got %+v", got)
		}
	})

	t.Run("all undone", func(t *testing.T) {
		events := []*models.TrustEvent{
			penaltyAt(1, -10, scoreEpoch),
			undoOf(2, 1, 10, scoreEpoch.Add(time.Hour)),
		}
		if got := lastOpenPenalty(events); got != nil {
			t.Fatalf("expected nil, got %+v", got)
		}
	})
}
