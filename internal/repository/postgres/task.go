package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nd-ahl/envive/internal/models"
	"github.com/nd-ahl/envive/internal/repository"
)

type taskRepository struct {
	db DBTX
}

func (r *taskRepository) Create(ctx context.Context, task *models.TaskAssignment) (*models.TaskAssignment, error) {
	query := `INSERT INTO task_assignments (template_id, member_id, status, base_xp, proof_ref, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}
	if task.Status == "" {
		task.Status = models.TaskStatusAssigned
	}
	err := r.db.QueryRowContext(ctx, query,
		task.TemplateID, task.MemberID, task.Status, task.BaseXP,
		task.ProofRef, task.CreatedAt, task.UpdatedAt,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}
	return task, nil
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*models.TaskAssignment, error) {
	query := `SELECT id, template_id, member_id, status, base_xp, proof_ref, created_at, updated_at, decided_at
		FROM task_assignments WHERE id = $1`
	task := &models.TaskAssignment{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&task.ID, &task.TemplateID, &task.MemberID, &task.Status, &task.BaseXP,
		&task.ProofRef, &task.CreatedAt, &task.UpdatedAt, &task.DecidedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return task, nil
}

func (r *taskRepository) GetByMember(ctx context.Context, memberID int64, filters repository.TaskFilters) ([]*models.TaskAssignment, error) {
	query := `SELECT id, template_id, member_id, status, base_xp, proof_ref, created_at, updated_at, decided_at
		FROM task_assignments WHERE member_id = $1`
	args := []interface{}{memberID}
	argIdx := 2

	if filters.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, *filters.Status)
		argIdx++
	}

	query += " ORDER BY created_at DESC, id DESC"
	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, filters.Limit)
		argIdx++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query assignments: %w", err)
	}
	defer rows.Close()

	var tasks []*models.TaskAssignment
	for rows.Next() {
		task := &models.TaskAssignment{}
		if err := rows.Scan(
			&task.ID, &task.TemplateID, &task.MemberID, &task.Status, &task.BaseXP,
			&task.ProofRef, &task.CreatedAt, &task.UpdatedAt, &task.DecidedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

func (r *taskRepository) Update(ctx context.Context, task *models.TaskAssignment) (*models.TaskAssignment, error) {
	query := `UPDATE task_assignments
		SET status=$2, proof_ref=$3, updated_at=$4, decided_at=$5
		WHERE id=$1 RETURNING updated_at`
	task.UpdatedAt = time.Now()
	err := r.db.QueryRowContext(ctx, query,
		task.ID, task.Status, task.ProofRef, task.UpdatedAt, task.DecidedAt,
	).Scan(&task.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}
	return task, nil
}
