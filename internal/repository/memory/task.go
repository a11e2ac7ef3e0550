package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/nd-ahl/envive/internal/models"
	"github.com/nd-ahl/envive/internal/repository"
)

type taskRepository struct {
	store *Store
}

func (r *taskRepository) Create(_ context.Context, task *models.TaskAssignment) (*models.TaskAssignment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cloneTask(task)
	c.ID = s.taskSeq.Inc()
	s.tasks[c.ID] = c
	return cloneTask(c), nil
}

func (r *taskRepository) GetByID(_ context.Context, id int64) (*models.TaskAssignment, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	return cloneTask(t), nil
}

func (r *taskRepository) GetByMember(_ context.Context, memberID int64, filters repository.TaskFilters) ([]*models.TaskAssignment, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []*models.TaskAssignment
	for _, t := range s.tasks {
		if t.MemberID != memberID {
			continue
		}
		if filters.Status != nil && t.Status != *filters.Status {
			continue
		}
		tasks = append(tasks, cloneTask(t))
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	if filters.Offset > 0 {
		if filters.Offset >= len(tasks) {
			return nil, nil
		}
		tasks = tasks[filters.Offset:]
	}
	if filters.Limit > 0 && len(tasks) > filters.Limit {
		tasks = tasks[:filters.Limit]
	}
	return tasks, nil
}

func (r *taskRepository) Update(_ context.Context, task *models.TaskAssignment) (*models.TaskAssignment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; !ok {
		return nil, fmt.Errorf("assignment %d not found", task.ID)
	}
	s.tasks[task.ID] = cloneTask(task)
	return cloneTask(task), nil
}
