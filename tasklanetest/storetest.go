package tasklanetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Songmu/flextime"
	"github.com/mashiike/tasklane"
	"github.com/mashiike/tasklane/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunTaskStoreTests runs the behavior every tasklane.TaskStore must share.
// newStore must return an empty store for each call.
//
// The suite pins the clock with flextime, so it must not run in parallel with
// other tests that depend on it.
func RunTaskStoreTests(t *testing.T, newStore func(t *testing.T) tasklane.TaskStore) {
	t.Helper()

	t.Run("CreateAndGet", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		owner := "alice"

		created, err := store.CreateTask(ctx, &a2a.Task{
			ID:       "task-create",
			Metadata: map[string]any{"k": "v"},
		}, &owner)
		require.NoError(t, err)
		assert.Equal(t, "task-create", created.ID)
		assert.Equal(t, a2a.TaskStateSubmitted, created.Task.Status.State)
		require.NotNil(t, created.CallerID)
		assert.Equal(t, owner, *created.CallerID)

		got, err := store.GetTask(ctx, "task-create", &owner, tasklane.HistoryLengthAll)
		require.NoError(t, err)
		assert.Equal(t, "v", got.Task.Metadata["k"])

		_, err = store.CreateTask(ctx, &a2a.Task{ID: "task-create"}, nil)
		assert.True(t, errors.Is(err, tasklane.ErrTaskConflict), "got %v", err)
	})

	t.Run("GetUnknown", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetTask(context.Background(), "missing", nil, tasklane.HistoryLengthAll)
		assert.True(t, errors.Is(err, tasklane.ErrTaskNotFound), "got %v", err)
	})

	t.Run("UpsertCreatesSubmittedTask", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		params := a2a.TaskSendParams{
			ID:        "task-upsert",
			SessionID: "session-1",
			Message:   a2a.NewTextMessage(a2a.RoleUser, "hello"),
			PushNotification: &a2a.PushNotificationConfig{
				URL: "https://example.com/hook",
			},
		}

		stored, err := store.UpsertTask(ctx, params, nil)
		require.NoError(t, err)
		assert.Equal(t, a2a.TaskStateSubmitted, stored.Task.Status.State)
		assert.Equal(t, "session-1", stored.Task.SessionID)
		require.Len(t, stored.Task.History, 1)
		assert.Equal(t, "hello", stored.Task.History[0].Parts[0].Text)
		require.NotNil(t, stored.PushNotification)
		assert.Equal(t, "https://example.com/hook", stored.PushNotification.URL)

		// second upsert returns the stored task unchanged
		params.Message = a2a.NewTextMessage(a2a.RoleUser, "again")
		again, err := store.UpsertTask(ctx, params, nil)
		require.NoError(t, err)
		require.Len(t, again.Task.History, 1)
		assert.Equal(t, "hello", again.Task.History[0].Parts[0].Text)
	})

	t.Run("OwnershipIsHidden", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		alice, bob := "alice", "bob"

		_, err := store.CreateTask(ctx, &a2a.Task{ID: "task-owned"}, &alice)
		require.NoError(t, err)

		_, err = store.GetTask(ctx, "task-owned", &bob, tasklane.HistoryLengthAll)
		assert.True(t, errors.Is(err, tasklane.ErrTaskNotFound), "got %v", err)

		_, err = store.UpdateTask(ctx, "task-owned", &bob, tasklane.TaskPatch{
			Metadata: map[string]any{"x": "y"},
		})
		assert.True(t, errors.Is(err, tasklane.ErrTaskNotFound), "got %v", err)

		_, err = store.UpsertTask(ctx, a2a.TaskSendParams{
			ID:      "task-owned",
			Message: a2a.NewTextMessage(a2a.RoleUser, "hi"),
		}, &bob)
		assert.True(t, errors.Is(err, tasklane.ErrTaskNotFound), "got %v", err)

		// trusted caller sees everything
		_, err = store.GetTask(ctx, "task-owned", nil, tasklane.HistoryLengthAll)
		assert.NoError(t, err)

		// an anonymous task is invisible to identified callers
		_, err = store.CreateTask(ctx, &a2a.Task{ID: "task-anon"}, nil)
		require.NoError(t, err)
		_, err = store.GetTask(ctx, "task-anon", &alice, tasklane.HistoryLengthAll)
		assert.True(t, errors.Is(err, tasklane.ErrTaskNotFound), "got %v", err)
	})

	t.Run("UpdateMergesPatch", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		yes := true

		_, err := store.UpsertTask(ctx, a2a.TaskSendParams{
			ID:       "task-patch",
			Message:  a2a.NewTextMessage(a2a.RoleUser, "q"),
			Metadata: map[string]any{"a": "1"},
		}, nil)
		require.NoError(t, err)

		working := a2a.TaskStatus{State: a2a.TaskStateWorking}
		updated, err := store.UpdateTask(ctx, "task-patch", nil, tasklane.TaskPatch{
			Status: &working,
			Artifacts: []a2a.Artifact{
				{Index: 1, Parts: []a2a.Part{a2a.NewTextPart("one")}},
				{Index: 0, Parts: []a2a.Part{a2a.NewTextPart("zero")}},
			},
			Messages: []a2a.Message{a2a.NewTextMessage(a2a.RoleAgent, "a")},
			Metadata: map[string]any{"b": "2"},
		})
		require.NoError(t, err)
		assert.Equal(t, a2a.TaskStateWorking, updated.Task.Status.State)
		assert.NotNil(t, updated.Task.Status.Timestamp)
		require.Len(t, updated.Task.Artifacts, 2)
		assert.Equal(t, 0, updated.Task.Artifacts[0].Index)
		require.Len(t, updated.Task.History, 2)
		assert.Equal(t, "1", updated.Task.Metadata["a"])
		assert.Equal(t, "2", updated.Task.Metadata["b"])

		updated, err = store.UpdateTask(ctx, "task-patch", nil, tasklane.TaskPatch{
			Artifacts: []a2a.Artifact{
				{Index: 0, Parts: []a2a.Part{a2a.NewTextPart("zero-v2")}},
				{Index: 1, Append: &yes, Parts: []a2a.Part{a2a.NewTextPart("more")}},
			},
			PushNotification: &a2a.PushNotificationConfig{URL: "https://example.com/p"},
		})
		require.NoError(t, err)
		require.Len(t, updated.Task.Artifacts, 2)
		assert.Equal(t, "zero-v2", updated.Task.Artifacts[0].Parts[0].Text)
		require.Len(t, updated.Task.Artifacts[1].Parts, 2)
		require.NotNil(t, updated.PushNotification)

		got, err := store.GetTask(ctx, "task-patch", nil, tasklane.HistoryLengthAll)
		require.NoError(t, err)
		assert.Equal(t, updated.Task.Artifacts, got.Task.Artifacts)
	})

	t.Run("CreateNormalizesArtifacts", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		created, err := store.CreateTask(ctx, &a2a.Task{
			ID: "task-unsorted",
			Artifacts: []a2a.Artifact{
				{Index: 2, Parts: []a2a.Part{a2a.NewTextPart("two")}},
				{Index: 0, Parts: []a2a.Part{a2a.NewTextPart("zero")}},
			},
		}, nil)
		require.NoError(t, err)
		require.Len(t, created.Task.Artifacts, 2)
		assert.Equal(t, 0, created.Task.Artifacts[0].Index)
		assert.Equal(t, 2, created.Task.Artifacts[1].Index)

		updated, err := store.UpdateTask(ctx, "task-unsorted", nil, tasklane.TaskPatch{
			Artifacts: []a2a.Artifact{{Index: 0, Parts: []a2a.Part{a2a.NewTextPart("zero-v2")}}},
		})
		require.NoError(t, err)
		require.Len(t, updated.Task.Artifacts, 2)
		assert.Equal(t, "zero-v2", updated.Task.Artifacts[0].Parts[0].Text)

		repeated, err := store.CreateTask(ctx, &a2a.Task{
			ID: "task-repeated",
			Artifacts: []a2a.Artifact{
				{Index: 0, Parts: []a2a.Part{a2a.NewTextPart("first")}},
				{Index: 0, Parts: []a2a.Part{a2a.NewTextPart("second")}},
			},
		}, nil)
		require.NoError(t, err)
		require.Len(t, repeated.Task.Artifacts, 1)
		assert.Equal(t, "second", repeated.Task.Artifacts[0].Parts[0].Text)

		got, err := store.GetTask(ctx, "task-repeated", nil, tasklane.HistoryLengthAll)
		require.NoError(t, err)
		require.Len(t, got.Task.Artifacts, 1)
	})

	t.Run("UpdateRejectsIllegalTransition", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.CreateTask(ctx, &a2a.Task{ID: "task-guard"}, nil)
		require.NoError(t, err)

		completed := a2a.TaskStatus{State: a2a.TaskStateCompleted}
		_, err = store.UpdateTask(ctx, "task-guard", nil, tasklane.TaskPatch{
			Status:   &completed,
			Messages: []a2a.Message{a2a.NewTextMessage(a2a.RoleAgent, "should not persist")},
		})
		assert.True(t, errors.Is(err, tasklane.ErrInvalidStateTransition), "got %v", err)

		got, err := store.GetTask(ctx, "task-guard", nil, tasklane.HistoryLengthAll)
		require.NoError(t, err)
		assert.Equal(t, a2a.TaskStateSubmitted, got.Task.Status.State)
		assert.Empty(t, got.Task.History)

		for _, state := range []a2a.TaskState{a2a.TaskStateWorking, a2a.TaskStateWorking, a2a.TaskStateCompleted} {
			status := a2a.TaskStatus{State: state}
			_, err = store.UpdateTask(ctx, "task-guard", nil, tasklane.TaskPatch{Status: &status})
			require.NoError(t, err, "transition to %s", state)
		}

		canceled := a2a.TaskStatus{State: a2a.TaskStateCanceled}
		_, err = store.UpdateTask(ctx, "task-guard", nil, tasklane.TaskPatch{Status: &canceled})
		assert.True(t, errors.Is(err, tasklane.ErrInvalidStateTransition), "got %v", err)

		_, err = store.UpdateTask(ctx, "missing", nil, tasklane.TaskPatch{Status: &canceled})
		assert.True(t, errors.Is(err, tasklane.ErrTaskNotFound), "got %v", err)
	})

	t.Run("HistoryLength", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.UpsertTask(ctx, a2a.TaskSendParams{
			ID:      "task-history",
			Message: a2a.NewTextMessage(a2a.RoleUser, "1"),
		}, nil)
		require.NoError(t, err)
		_, err = store.UpdateTask(ctx, "task-history", nil, tasklane.TaskPatch{
			Messages: []a2a.Message{
				a2a.NewTextMessage(a2a.RoleAgent, "2"),
				a2a.NewTextMessage(a2a.RoleUser, "3"),
			},
		})
		require.NoError(t, err)

		all, err := store.GetTask(ctx, "task-history", nil, tasklane.HistoryLengthAll)
		require.NoError(t, err)
		assert.Len(t, all.Task.History, 3)

		none, err := store.GetTask(ctx, "task-history", nil, 0)
		require.NoError(t, err)
		assert.Empty(t, none.Task.History)

		last, err := store.GetTask(ctx, "task-history", nil, 2)
		require.NoError(t, err)
		require.Len(t, last.Task.History, 2)
		assert.Equal(t, "2", last.Task.History[0].Parts[0].Text)

		// trimming on read does not change what is stored
		again, err := store.GetTask(ctx, "task-history", nil, tasklane.HistoryLengthAll)
		require.NoError(t, err)
		assert.Len(t, again.Task.History, 3)
	})

	t.Run("ListTasks", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		alice, bob := "alice", "bob"
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

		for i := range 5 {
			owner := &alice
			if i%2 == 1 {
				owner = &bob
			}
			restore := flextime.Fix(base.Add(time.Duration(i) * time.Second))
			_, err := store.CreateTask(ctx, &a2a.Task{ID: fmt.Sprintf("task-%d", i)}, owner)
			restore()
			require.NoError(t, err)
		}

		page, err := store.ListTasks(ctx, tasklane.ListTasksParams{Page: 1, PageSize: 2})
		require.NoError(t, err)
		require.NotNil(t, page.Pagination.Total)
		assert.Equal(t, 5, *page.Pagination.Total)
		assert.Equal(t, []string{"task-0", "task-1"}, ids(page.Items))

		page, err = store.ListTasks(ctx, tasklane.ListTasksParams{Page: 3, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"task-4"}, ids(page.Items))

		page, err = store.ListTasks(ctx, tasklane.ListTasksParams{Page: 1, PageSize: 10, Order: tasklane.SortDesc})
		require.NoError(t, err)
		assert.Equal(t, []string{"task-4", "task-3", "task-2", "task-1", "task-0"}, ids(page.Items))

		page, err = store.ListTasks(ctx, tasklane.ListTasksParams{Page: 1, PageSize: 10, CallerID: &alice})
		require.NoError(t, err)
		assert.Equal(t, []string{"task-0", "task-2", "task-4"}, ids(page.Items))
		assert.Equal(t, 3, *page.Pagination.Total)

		page, err = store.ListTasks(ctx, tasklane.ListTasksParams{Page: 9, PageSize: 10})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Equal(t, 5, *page.Pagination.Total)
	})

	t.Run("ListTasksTiesByID", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		restore := flextime.Fix(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
		defer restore()
		for _, id := range []string{"b", "c", "a"} {
			_, err := store.CreateTask(ctx, &a2a.Task{ID: id}, nil)
			require.NoError(t, err)
		}

		asc, err := store.ListTasks(ctx, tasklane.ListTasksParams{PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, ids(asc.Items))

		desc, err := store.ListTasks(ctx, tasklane.ListTasksParams{PageSize: 10, Order: tasklane.SortDesc})
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b", "a"}, ids(desc.Items))
	})

	t.Run("ConcurrentUpdatesAreLinearized", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		_, err := store.CreateTask(ctx, &a2a.Task{ID: "task-concurrent"}, nil)
		require.NoError(t, err)

		const writers = 8
		var wg sync.WaitGroup
		errs := make(chan error, writers)
		for i := range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := store.UpdateTask(ctx, "task-concurrent", nil, tasklane.TaskPatch{
					Messages: []a2a.Message{a2a.NewTextMessage(a2a.RoleAgent, fmt.Sprintf("m%d", i))},
				})
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := store.GetTask(ctx, "task-concurrent", nil, tasklane.HistoryLengthAll)
		require.NoError(t, err)
		assert.Len(t, got.Task.History, writers)
	})
}

func ids(items []*tasklane.StoredTask) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}
