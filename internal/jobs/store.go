// Package jobs runs script generation tasks asynchronously and tracks their status.
package jobs

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonathan/script-generator/internal/types"
)

var (
	// ErrTaskNotFound is returned when a task id is unknown.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskFinalized is returned when updating a task that already completed or failed.
	ErrTaskFinalized = errors.New("task already finished")
	// ErrTaskExists is returned when creating a task whose id is taken.
	ErrTaskExists = errors.New("task already exists")
)

// Store persists tasks. Implementations must be safe for concurrent use and
// must refuse to modify a task whose stored status is terminal.
type Store interface {
	Create(ctx context.Context, task *types.ScriptTask) error
	Get(ctx context.Context, id string) (*types.ScriptTask, error)
	Update(ctx context.Context, task *types.ScriptTask) error
	// DeleteFinishedBefore removes terminal tasks last updated before cutoff.
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}

// MemoryStore keeps tasks in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	tasks map[string]*types.ScriptTask
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tasks: make(map[string]*types.ScriptTask)}
}

// Create stores a copy of task.
func (s *MemoryStore) Create(_ context.Context, task *types.ScriptTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tasks[task.ID]; exists {
		return ErrTaskExists
	}
	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

// Get returns a copy of the stored task.
func (s *MemoryStore) Get(_ context.Context, id string) (*types.ScriptTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	cp := *task
	return &cp, nil
}

// Update replaces the stored task unless it is already terminal.
func (s *MemoryStore) Update(_ context.Context, task *types.ScriptTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tasks[task.ID]
	if !ok {
		return ErrTaskNotFound
	}
	if existing.Status.Terminal() {
		return ErrTaskFinalized
	}
	cp := *task
	s.tasks[task.ID] = &cp
	return nil
}

// DeleteFinishedBefore removes terminal tasks not updated since cutoff.
func (s *MemoryStore) DeleteFinishedBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, task := range s.tasks {
		if task.Status.Terminal() && task.UpdatedAt.Before(cutoff) {
			delete(s.tasks, id)
			removed++
		}
	}
	return removed, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// Len returns the number of stored tasks.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}
