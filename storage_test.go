package tasklane_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mashiike/tasklane"
	"github.com/mashiike/tasklane/a2a"
	"github.com/mashiike/tasklane/tasklanetest"
)

func TestInMemoryTaskStore(t *testing.T) {
	tasklanetest.RunTaskStoreTests(t, func(t *testing.T) tasklane.TaskStore {
		return tasklane.NewInMemoryTaskStore()
	})
}

func TestFileSystemTaskStore(t *testing.T) {
	tasklanetest.RunTaskStoreTests(t, func(t *testing.T) tasklane.TaskStore {
		store, err := tasklane.NewFileSystemTaskStore(t.TempDir())
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		return store
	})
}

func TestFileSystemTaskStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store, err := tasklane.NewFileSystemTaskStore(dir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if _, err := store.CreateTask(t.Context(), &a2a.Task{ID: "task-1"}, nil); err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "tasks"))
	if err != nil {
		t.Fatalf("Failed to read tasks dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "task-1.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("Expected only task-1.json, got %s", strings.Join(names, ","))
	}

	// a new store over the same directory sees the task
	reopened, err := tasklane.NewFileSystemTaskStore(dir)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	if _, err := reopened.GetTask(t.Context(), "task-1", nil, tasklane.HistoryLengthAll); err != nil {
		t.Errorf("Expected task after reopen, got %v", err)
	}
}

func TestFileSystemTaskStore_RejectsPathLikeIDs(t *testing.T) {
	store, err := tasklane.NewFileSystemTaskStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	for _, id := range []string{"../escape", "a/b", ".."} {
		if _, err := store.CreateTask(t.Context(), &a2a.Task{ID: id}, nil); err == nil {
			t.Errorf("Expected error for id %q", id)
		}
		if _, err := store.GetTask(t.Context(), id, nil, tasklane.HistoryLengthAll); err != tasklane.ErrTaskNotFound {
			t.Errorf("Expected ErrTaskNotFound for id %q, got %v", id, err)
		}
	}
}

func TestInMemoryTaskStore_ReturnsCopies(t *testing.T) {
	store := tasklane.NewInMemoryTaskStore()
	ctx := t.Context()

	created, err := store.CreateTask(ctx, &a2a.Task{ID: "task-1", Metadata: map[string]any{"k": "v"}}, nil)
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	created.Task.Metadata["k"] = "mutated"

	got, err := store.GetTask(ctx, "task-1", nil, tasklane.HistoryLengthAll)
	if err != nil {
		t.Fatalf("Failed to get task: %v", err)
	}
	if got.Task.Metadata["k"] != "v" {
		t.Errorf("Expected stored metadata to be unchanged, got %v", got.Task.Metadata["k"])
	}
}
