package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nd-ahl/envive/internal/models"
)

type profileRepository struct {
	db DBTX
}

func (r *profileRepository) Create(ctx context.Context, profile *models.TrustProfile) (*models.TrustProfile, error) {
	query := `INSERT INTO trust_profiles (member_id, score, consecutive_approvals, last_penalty_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING updated_at`
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = time.Now()
	}
	err := r.db.QueryRowContext(ctx, query,
		profile.MemberID, profile.Score, profile.ConsecutiveApprovals,
		profile.LastPenaltyAt, profile.UpdatedAt,
	).Scan(&profile.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create trust profile: %w", err)
	}
	return profile, nil
}

func (r *profileRepository) GetByMemberID(ctx context.Context, memberID int64) (*models.TrustProfile, error) {
	query := `SELECT member_id, score, consecutive_approvals, last_penalty_at, updated_at
		FROM trust_profiles WHERE member_id = $1`
	profile := &models.TrustProfile{}
	err := r.db.QueryRowContext(ctx, query, memberID).Scan(
		&profile.MemberID, &profile.Score, &profile.ConsecutiveApprovals,
		&profile.LastPenaltyAt, &profile.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trust profile: %w", err)
	}
	return profile, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *models.TrustProfile) (*models.TrustProfile, error) {
	query := `UPDATE trust_profiles
		SET score=$2, consecutive_approvals=$3, last_penalty_at=$4, updated_at=$5
		WHERE member_id=$1 RETURNING updated_at`
	profile.UpdatedAt = time.Now()
	err := r.db.QueryRowContext(ctx, query,
		profile.MemberID, profile.Score, profile.ConsecutiveApprovals,
		profile.LastPenaltyAt, profile.UpdatedAt,
	).Scan(&profile.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update trust profile: %w", err)
	}
	return profile, nil
}

type eventRepository struct {
	db DBTX
}

// Append inserts one immutable ledger entry. There is deliberately no
// update or delete path for trust events.
func (r *eventRepository) Append(ctx context.Context, event *models.TrustEvent) (*models.TrustEvent, error) {
	query := `INSERT INTO trust_events (member_id, kind, magnitude, occurred_at, related_task_id, undoes_event_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	err := r.db.QueryRowContext(ctx, query,
		event.MemberID, event.Kind, event.Magnitude,
		event.OccurredAt, event.RelatedTaskID, event.UndoesEventID,
	).Scan(&event.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to append trust event: %w", err)
	}
	return event, nil
}

func (r *eventRepository) ListByMember(ctx context.Context, memberID int64) ([]*models.TrustEvent, error) {
	query := `SELECT id, member_id, kind, magnitude, occurred_at, related_task_id, undoes_event_id
		FROM trust_events WHERE member_id = $1
		ORDER BY occurred_at, id`
	return r.queryEvents(ctx, query, memberID)
}

func (r *eventRepository) ListByMemberSince(ctx context.Context, memberID int64, since time.Time) ([]*models.TrustEvent, error) {
	query := `SELECT id, member_id, kind, magnitude, occurred_at, related_task_id, undoes_event_id
		FROM trust_events WHERE member_id = $1 AND occurred_at >= $2
		ORDER BY occurred_at, id`
	return r.queryEvents(ctx, query, memberID, since)
}

func (r *eventRepository) queryEvents(ctx context.Context, query string, args ...interface{}) ([]*models.TrustEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trust events: %w", err)
	}
	defer rows.Close()

	var events []*models.TrustEvent
	for rows.Next() {
		event := &models.TrustEvent{}
		if err := rows.Scan(
			&event.ID, &event.MemberID, &event.Kind, &event.Magnitude,
			&event.OccurredAt, &event.RelatedTaskID, &event.UndoesEventID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan trust event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
