package tasklanetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mashiike/tasklane"
	"github.com/mashiike/tasklane/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunEventQueueTests runs the behavior every tasklane.EventQueue must share.
// newQueue must return an empty queue for each call.
//
// Context cancellation is only required to be observed within two seconds,
// so implementations that poll a blocking backend pass too.
func RunEventQueueTests(t *testing.T, newQueue func(t *testing.T) tasklane.EventQueue) {
	t.Helper()

	t.Run("FanOutKeepsOrder", func(t *testing.T) {
		q := newQueue(t)
		ctx := context.Background()
		for _, sub := range []string{"s1", "s2"} {
			require.NoError(t, q.AddSubscriber(ctx, "task-1", sub, false))
		}

		events := []a2a.TaskEvent{
			statusEvent("task-1", a2a.TaskStateWorking, false),
			a2a.NewArtifactEvent("task-1", a2a.Artifact{Index: 0, Parts: []a2a.Part{a2a.NewTextPart("x")}}),
			statusEvent("task-1", a2a.TaskStateCompleted, true),
		}
		for _, ev := range events {
			require.NoError(t, q.Enqueue(ctx, "task-1", ev))
		}

		for _, sub := range []string{"s1", "s2"} {
			for i, want := range events {
				got, err := q.Dequeue(ctx, "task-1", sub)
				require.NoError(t, err, "Dequeue(%s) #%d", sub, i)
				assert.Equal(t, want.Status != nil, got.Status != nil, "Dequeue(%s) #%d kind", sub, i)
				assert.Equal(t, want.IsFinal(), got.IsFinal(), "Dequeue(%s) #%d final", sub, i)
			}
		}
	})

	t.Run("Errors", func(t *testing.T) {
		q := newQueue(t)
		ctx := context.Background()

		assert.ErrorIs(t, q.AddSubscriber(ctx, "task-1", "s1", true), tasklane.ErrNoSubscriptionHistory)
		assert.ErrorIs(t, q.Enqueue(ctx, "task-1", statusEvent("task-1", a2a.TaskStateWorking, false)), tasklane.ErrNoSubscribers)
		assert.ErrorIs(t, q.RemoveSubscriber(ctx, "task-1", "s1"), tasklane.ErrUnknownTask)
		assert.ErrorIs(t, q.Close(ctx, "task-1"), tasklane.ErrUnknownTask)
		_, err := q.Dequeue(ctx, "task-1", "s1")
		assert.ErrorIs(t, err, tasklane.ErrUnknownTask)

		require.NoError(t, q.AddSubscriber(ctx, "task-1", "s1", false))
		require.NoError(t, q.AddSubscriber(ctx, "task-1", "s1", false), "adding twice is a no-op")
		assert.ErrorIs(t, q.RemoveSubscriber(ctx, "task-1", "nobody"), tasklane.ErrUnknownSubscriber)
		_, err = q.Dequeue(ctx, "task-1", "nobody")
		assert.ErrorIs(t, err, tasklane.ErrUnknownSubscriber)
		assert.Error(t, q.Enqueue(ctx, "task-1", a2a.TaskEvent{}), "empty event")

		// the queue outlives its last subscriber until it is closed
		require.NoError(t, q.RemoveSubscriber(ctx, "task-1", "s1"))
		assert.ErrorIs(t, q.Enqueue(ctx, "task-1", statusEvent("task-1", a2a.TaskStateWorking, false)), tasklane.ErrNoSubscribers)
		assert.NoError(t, q.AddSubscriber(ctx, "task-1", "s2", true))
	})

	t.Run("RemovedSubscriberLosesQueuedEvents", func(t *testing.T) {
		q := newQueue(t)
		ctx := context.Background()
		require.NoError(t, q.AddSubscriber(ctx, "task-1", "s1", false))
		require.NoError(t, q.Enqueue(ctx, "task-1", statusEvent("task-1", a2a.TaskStateWorking, false)))
		require.NoError(t, q.RemoveSubscriber(ctx, "task-1", "s1"))

		require.NoError(t, q.AddSubscriber(ctx, "task-1", "s1", true))
		require.NoError(t, q.Enqueue(ctx, "task-1", statusEvent("task-1", a2a.TaskStateCompleted, true)))
		ev, err := q.Dequeue(ctx, "task-1", "s1")
		require.NoError(t, err)
		assert.True(t, ev.IsFinal(), "expected only the event enqueued after rejoining")
	})

	t.Run("DequeueBlocksUntilEnqueue", func(t *testing.T) {
		q := newQueue(t)
		ctx := context.Background()
		require.NoError(t, q.AddSubscriber(ctx, "task-1", "s1", false))

		done := make(chan a2a.TaskEvent, 1)
		go func() {
			ev, err := q.Dequeue(ctx, "task-1", "s1")
			assert.NoError(t, err)
			done <- ev
		}()

		select {
		case <-done:
			t.Fatal("Dequeue returned before any event was enqueued")
		case <-time.After(50 * time.Millisecond):
		}

		require.NoError(t, q.Enqueue(ctx, "task-1", statusEvent("task-1", a2a.TaskStateWorking, false)))
		select {
		case ev := <-done:
			require.NotNil(t, ev.Status)
			assert.Equal(t, a2a.TaskStateWorking, ev.Status.Status.State)
		case <-time.After(2 * time.Second):
			t.Fatal("Dequeue did not return after enqueue")
		}
	})

	t.Run("DequeueHonorsContext", func(t *testing.T) {
		q := newQueue(t)
		require.NoError(t, q.AddSubscriber(context.Background(), "task-1", "s1", false))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		start := time.Now()
		_, err := q.Dequeue(ctx, "task-1", "s1")
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 2*time.Second)
	})

	t.Run("CloseDrainsThenReportsClosed", func(t *testing.T) {
		q := newQueue(t)
		ctx := context.Background()
		require.NoError(t, q.AddSubscriber(ctx, "task-1", "s1", false))
		require.NoError(t, q.Enqueue(ctx, "task-1", statusEvent("task-1", a2a.TaskStateCompleted, true)))

		require.NoError(t, q.Close(ctx, "task-1"))
		assert.ErrorIs(t, q.Enqueue(ctx, "task-1", statusEvent("task-1", a2a.TaskStateWorking, false)), tasklane.ErrQueueClosed)
		assert.ErrorIs(t, q.AddSubscriber(ctx, "task-1", "late", true), tasklane.ErrQueueClosed)

		ev, err := q.Dequeue(ctx, "task-1", "s1")
		require.NoError(t, err)
		assert.True(t, ev.IsFinal())
		_, err = q.Dequeue(ctx, "task-1", "s1")
		assert.ErrorIs(t, err, tasklane.ErrQueueClosed)
		_, err = q.Dequeue(ctx, "task-1", "s1")
		assert.ErrorIs(t, err, tasklane.ErrQueueClosed, "closed is sticky")

		// removing the last subscriber frees the task
		require.NoError(t, q.RemoveSubscriber(ctx, "task-1", "s1"))
		assert.ErrorIs(t, q.AddSubscriber(ctx, "task-1", "again", true), tasklane.ErrNoSubscriptionHistory)
	})

	t.Run("CloseWakesWaiters", func(t *testing.T) {
		q := newQueue(t)
		ctx := context.Background()
		require.NoError(t, q.AddSubscriber(ctx, "task-1", "s1", false))

		errCh := make(chan error, 1)
		go func() {
			_, err := q.Dequeue(ctx, "task-1", "s1")
			errCh <- err
		}()

		time.Sleep(20 * time.Millisecond)
		require.NoError(t, q.Close(ctx, "task-1"))
		select {
		case err := <-errCh:
			assert.ErrorIs(t, err, tasklane.ErrQueueClosed)
		case <-time.After(2 * time.Second):
			t.Fatal("waiter was not woken by Close")
		}
	})

	t.Run("NewStreamAfterClose", func(t *testing.T) {
		q := newQueue(t)
		ctx := context.Background()
		require.NoError(t, q.AddSubscriber(ctx, "task-1", "old", false))
		require.NoError(t, q.Close(ctx, "task-1"))

		// a new primary subscriber reopens the task while the old one still lingers
		require.NoError(t, q.AddSubscriber(ctx, "task-1", "new", false))
		require.NoError(t, q.Enqueue(ctx, "task-1", statusEvent("task-1", a2a.TaskStateWorking, false)))
		_, err := q.Dequeue(ctx, "task-1", "old")
		assert.ErrorIs(t, err, tasklane.ErrQueueClosed, "old subscriber stays closed")
		_, err = q.Dequeue(ctx, "task-1", "new")
		assert.NoError(t, err)
	})

	t.Run("ConcurrentProducers", func(t *testing.T) {
		q := newQueue(t)
		ctx := context.Background()
		require.NoError(t, q.AddSubscriber(ctx, "task-1", "s1", false))

		const producers, perProducer = 4, 25
		var wg sync.WaitGroup
		for p := range producers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range perProducer {
					ev := a2a.NewArtifactEvent("task-1", a2a.Artifact{
						Index: i,
						Name:  fmt.Sprintf("p%d", p),
						Parts: []a2a.Part{a2a.NewTextPart("x")},
					})
					assert.NoError(t, q.Enqueue(ctx, "task-1", ev))
				}
			}()
		}
		wg.Wait()

		// per producer order is preserved
		last := map[string]int{}
		for range producers * perProducer {
			ev, err := q.Dequeue(ctx, "task-1", "s1")
			require.NoError(t, err)
			require.NotNil(t, ev.Artifact)
			name := ev.Artifact.Artifact.Name
			if prev, ok := last[name]; ok {
				assert.Greater(t, ev.Artifact.Artifact.Index, prev, "producer %s out of order", name)
			}
			last[name] = ev.Artifact.Artifact.Index
		}
	})
}

func statusEvent(taskID string, state a2a.TaskState, final bool) a2a.TaskEvent {
	return a2a.NewStatusEvent(taskID, a2a.TaskStatus{State: state}, final)
}
