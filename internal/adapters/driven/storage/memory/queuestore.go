package memory

import (
	"context"
	"sync"

	"github.com/tably-labs/tably-cli/internal/core/domain"
	"github.com/tably-labs/tably-cli/internal/core/ports/driven"
)

// Ensure QueueStore implements the interface.
var _ driven.QueueStore = (*QueueStore)(nil)

// QueueStore is an in-memory implementation of driven.QueueStore.
type QueueStore struct {
	mu    sync.RWMutex
	tasks map[string]domain.SyncTask
}

// NewQueueStore creates a new in-memory queue store.
func NewQueueStore() *QueueStore {
	return &QueueStore{
		tasks: make(map[string]domain.SyncTask),
	}
}

// Append adds a task to the queue.
func (s *QueueStore) Append(_ context.Context, task domain.SyncTask) error {
	if task.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[task.ID] = task
	return nil
}

// List returns all queued tasks in no particular order.
func (s *QueueStore) List(_ context.Context) ([]domain.SyncTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := make([]domain.SyncTask, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// Update persists a task's mutated retry count.
func (s *QueueStore) Update(_ context.Context, task domain.SyncTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[task.ID]; !ok {
		return domain.ErrNotFound
	}
	s.tasks[task.ID] = task
	return nil
}

// Remove deletes a task by ID.
func (s *QueueStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tasks, id)
	return nil
}

// Clear empties the queue.
func (s *QueueStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[string]domain.SyncTask)
	return nil
}

// Count returns the number of queued tasks.
func (s *QueueStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks), nil
}
