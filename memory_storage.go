package tasklane

import (
	"context"
	"fmt"
	"sync"

	"github.com/mashiike/tasklane/a2a"
)

// InMemoryTaskStore is the reference TaskStore. A single mutex linearizes every call,
// and tasks are deep copied on the way in and out.
type InMemoryTaskStore struct {
	mu    sync.Mutex
	tasks map[string]*StoredTask
}

// NewInMemoryTaskStore creates an empty in-memory store.
func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{
		tasks: make(map[string]*StoredTask),
	}
}

func (s *InMemoryTaskStore) CreateTask(ctx context.Context, task *a2a.Task, callerID *string) (*StoredTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(task, callerID)
}

func (s *InMemoryTaskStore) createLocked(task *a2a.Task, callerID *string) (*StoredTask, error) {
	if task != nil {
		if _, exists := s.tasks[task.ID]; exists {
			return nil, fmt.Errorf("task %s: %w", task.ID, ErrTaskConflict)
		}
	}
	stored, err := NewStoredTask(task, callerID)
	if err != nil {
		return nil, err
	}
	s.tasks[stored.ID] = stored
	return cloneStoredTask(stored)
}

func (s *InMemoryTaskStore) UpsertTask(ctx context.Context, params a2a.TaskSendParams, callerID *string) (*StoredTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.tasks[params.ID]; ok {
		if !VisibleTo(existing, callerID) {
			return nil, ErrTaskNotFound
		}
		return cloneStoredTask(existing)
	}
	task := NewTaskFromParams(params)
	stored, err := s.createLocked(task, callerID)
	if err != nil {
		return nil, err
	}
	if params.PushNotification != nil {
		config := *params.PushNotification
		s.tasks[stored.ID].PushNotification = &config
		stored.PushNotification = &config
	}
	return stored, nil
}

func (s *InMemoryTaskStore) GetTask(ctx context.Context, taskID string, callerID *string, historyLength int) (*StoredTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[taskID]
	if !ok || !VisibleTo(stored, callerID) {
		return nil, ErrTaskNotFound
	}
	return WithHistory(stored, historyLength)
}

func (s *InMemoryTaskStore) UpdateTask(ctx context.Context, taskID string, callerID *string, patch TaskPatch) (*StoredTask, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tasks[taskID]
	if !ok || !VisibleTo(stored, callerID) {
		return nil, ErrTaskNotFound
	}
	next, err := PatchStoredTask(stored, patch)
	if err != nil {
		return nil, err
	}
	s.tasks[taskID] = next
	return cloneStoredTask(next)
}

func (s *InMemoryTaskStore) ListTasks(ctx context.Context, params ListTasksParams) (*Page[*StoredTask], error) {
	params, err := NormalizeListParams(params)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*StoredTask, 0, len(s.tasks))
	for _, t := range s.tasks {
		all = append(all, t)
	}
	page := Paginate(all, params)
	for i, item := range page.Items {
		cloned, err := cloneStoredTask(item)
		if err != nil {
			return nil, err
		}
		page.Items[i] = cloned
	}
	return page, nil
}
