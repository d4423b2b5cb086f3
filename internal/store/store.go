// Package store holds current state for every task known to the process.
// State is ephemeral: it lives only as long as the server process.
package store

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tikserziku/welcome-to-visaginas/internal/dto"
	"github.com/tikserziku/welcome-to-visaginas/internal/models"
)

// TaskStore is a thread-safe in-memory task map. The pipeline is the
// single writer for any given task; HTTP readers get copies and must
// tolerate slightly stale snapshots.
type TaskStore struct {
	mu     sync.RWMutex
	tasks  map[string]*models.Task
	logger *zap.Logger
}

func New(logger *zap.Logger) *TaskStore {
	return &TaskStore{
		tasks:  make(map[string]*models.Task),
		logger: logger,
	}
}

// Create inserts a new task. The id generation scheme makes collisions
// practically impossible, but a duplicate is still rejected rather than
// silently overwritten.
func (s *TaskStore) Create(task *models.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; ok {
		return dto.ErrTaskExists
	}

	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

// Get returns a copy of the task so callers never race with the writer.
func (s *TaskStore) Get(id string) (models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return models.Task{}, dto.ErrTaskNotFound
	}
	return *task, nil
}

// Update applies mutate to the task under the lock. A missing id is
// logged and reported but never crashes the process; with no deletion
// before the TTL sweep this is purely a correctness guard.
func (s *TaskStore) Update(id string, mutate func(*models.Task)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		s.logger.Warn("update for unknown task", zap.String("task_id", id))
		return dto.ErrTaskNotFound
	}

	mutate(task)
	task.UpdatedAt = time.Now()
	return nil
}

// Len reports the number of tasks currently held.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Sweep removes terminal tasks that have not been touched for ttl and
// returns how many were evicted. In-flight tasks are never evicted.
func (s *TaskStore) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	removed := 0
	for id, task := range s.tasks {
		if task.Status.Terminal() && task.UpdatedAt.Before(cutoff) {
			delete(s.tasks, id)
			removed++
		}
	}
	return removed
}
