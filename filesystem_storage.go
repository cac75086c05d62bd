package tasklane

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mashiike/tasklane/a2a"
)

// FileSystemTaskStore implements TaskStore using one JSON file per task
type FileSystemTaskStore struct {
	basePath string
	mu       sync.RWMutex
}

// NewFileSystemTaskStore creates a new FileSystemTaskStore instance
func NewFileSystemTaskStore(basePath string) (*FileSystemTaskStore, error) {
	// Create base directory if it doesn't exist
	if err := os.MkdirAll(filepath.Join(basePath, "tasks"), 0750); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileSystemTaskStore{
		basePath: basePath,
	}, nil
}

func (fs *FileSystemTaskStore) CreateTask(ctx context.Context, task *a2a.Task, callerID *string) (*StoredTask, error) {
	if task == nil {
		return nil, fmt.Errorf("task id is required")
	}
	if err := validateTaskID(task.ID); err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	return fs.createWithoutLock(task, callerID)
}

func (fs *FileSystemTaskStore) UpsertTask(ctx context.Context, params a2a.TaskSendParams, callerID *string) (*StoredTask, error) {
	if err := validateTaskID(params.ID); err != nil {
		return nil, err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	existing, err := fs.readWithoutLock(params.ID)
	switch {
	case err == nil:
		if !VisibleTo(existing, callerID) {
			return nil, ErrTaskNotFound
		}
		return existing, nil
	case !errors.Is(err, ErrTaskNotFound):
		return nil, err
	}

	stored, err := NewStoredTask(NewTaskFromParams(params), callerID)
	if err != nil {
		return nil, err
	}
	if params.PushNotification != nil {
		config := *params.PushNotification
		stored.PushNotification = &config
	}
	if err := fs.writeWithoutLock(stored); err != nil {
		return nil, err
	}
	return stored, nil
}

func (fs *FileSystemTaskStore) GetTask(ctx context.Context, taskID string, callerID *string, historyLength int) (*StoredTask, error) {
	if validateTaskID(taskID) != nil {
		return nil, ErrTaskNotFound
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	stored, err := fs.readWithoutLock(taskID)
	if err != nil {
		return nil, err
	}
	if !VisibleTo(stored, callerID) {
		return nil, ErrTaskNotFound
	}
	stored.Task.TrimHistory(historyLength)
	return stored, nil
}

func (fs *FileSystemTaskStore) UpdateTask(ctx context.Context, taskID string, callerID *string, patch TaskPatch) (*StoredTask, error) {
	if validateTaskID(taskID) != nil {
		return nil, ErrTaskNotFound
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	stored, err := fs.readWithoutLock(taskID)
	if err != nil {
		return nil, err
	}
	if !VisibleTo(stored, callerID) {
		return nil, ErrTaskNotFound
	}
	next, err := PatchStoredTask(stored, patch)
	if err != nil {
		return nil, err
	}
	if err := fs.writeWithoutLock(next); err != nil {
		return nil, err
	}
	return next, nil
}

func (fs *FileSystemTaskStore) ListTasks(ctx context.Context, params ListTasksParams) (*Page[*StoredTask], error) {
	params, err := NormalizeListParams(params)
	if err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	entries, err := os.ReadDir(fs.getTasksDir())
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks directory: %w", err)
	}

	var tasks []*StoredTask
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		taskID := strings.TrimSuffix(entry.Name(), ".json")
		stored, err := fs.readWithoutLock(taskID)
		if err != nil {
			if errors.Is(err, ErrTaskNotFound) {
				continue
			}
			return nil, err
		}
		tasks = append(tasks, stored)
	}

	return Paginate(tasks, params), nil
}

// Helper methods

func (fs *FileSystemTaskStore) getTasksDir() string {
	return filepath.Join(fs.basePath, "tasks")
}

func (fs *FileSystemTaskStore) getTaskPath(taskID string) string {
	return filepath.Join(fs.getTasksDir(), taskID+".json")
}

func (fs *FileSystemTaskStore) createWithoutLock(task *a2a.Task, callerID *string) (*StoredTask, error) {
	if _, err := os.Stat(fs.getTaskPath(task.ID)); err == nil {
		return nil, fmt.Errorf("task %s: %w", task.ID, ErrTaskConflict)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat task file: %w", err)
	}
	stored, err := NewStoredTask(task, callerID)
	if err != nil {
		return nil, err
	}
	if err := fs.writeWithoutLock(stored); err != nil {
		return nil, err
	}
	return stored, nil
}

func (fs *FileSystemTaskStore) readWithoutLock(taskID string) (*StoredTask, error) {
	data, err := os.ReadFile(fs.getTaskPath(taskID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}
	return DecodeStoredTask(data)
}

// writeWithoutLock replaces the task file through a temporary file and rename,
// so readers never observe a partially written task.
func (fs *FileSystemTaskStore) writeWithoutLock(stored *StoredTask) error {
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	tmp, err := os.CreateTemp(fs.getTasksDir(), "."+stored.ID+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write task file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close task file: %w", err)
	}
	if err := os.Rename(tmpPath, fs.getTaskPath(stored.ID)); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename task file: %w", err)
	}
	return nil
}

func validateTaskID(taskID string) error {
	if taskID == "" {
		return fmt.Errorf("task id is required")
	}
	if strings.ContainsAny(taskID, `/\`) || taskID == "." || taskID == ".." {
		return fmt.Errorf("invalid task id %q", taskID)
	}
	return nil
}
