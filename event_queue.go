package tasklane

import (
	"context"
	"fmt"
	"sync"

	"github.com/mashiike/tasklane/a2a"
)

//go:generate go tool mockgen -source=event_queue.go -destination=mock_event_queue_test.go -package=tasklane

// EventQueue fans task events out to every subscriber of a task.
//
// Each subscriber owns a private FIFO, so a slow subscriber never drops or reorders
// events for another one. Errors returned by an EventQueue signal misuse and are not retried.
type EventQueue interface {
	// AddSubscriber registers subscriberID on taskID, creating the task's queue on first use.
	// A resubscribe requires an existing queue (ErrNoSubscriptionHistory) that is still open (ErrQueueClosed).
	AddSubscriber(ctx context.Context, taskID, subscriberID string, isResubscribe bool) error
	// RemoveSubscriber drops the subscriber and anything still queued for it.
	RemoveSubscriber(ctx context.Context, taskID, subscriberID string) error
	// Enqueue appends event to every open subscriber of taskID.
	Enqueue(ctx context.Context, taskID string, event a2a.TaskEvent) error
	// Dequeue blocks until an event is available for the subscriber or ctx ends.
	// Once the task's stream is closed and the subscriber is drained it returns ErrQueueClosed.
	Dequeue(ctx context.Context, taskID, subscriberID string) (a2a.TaskEvent, error)
	// Close marks the task's current stream as finished and wakes every waiting subscriber.
	Close(ctx context.Context, taskID string) error
}

type queueSubscriber struct {
	items  []a2a.TaskEvent
	notify chan struct{}
	closed bool
}

func (s *queueSubscriber) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

type taskSubscriptions struct {
	subscribers map[string]*queueSubscriber
	closed      bool
}

// InMemoryEventQueue is a process-local EventQueue.
// One mutex guards the subscriber maps and the fan-out loop; Dequeue waits outside of it.
type InMemoryEventQueue struct {
	mu    sync.Mutex
	tasks map[string]*taskSubscriptions
}

// NewInMemoryEventQueue creates an empty event queue.
func NewInMemoryEventQueue() *InMemoryEventQueue {
	return &InMemoryEventQueue{
		tasks: make(map[string]*taskSubscriptions),
	}
}

func (q *InMemoryEventQueue) AddSubscriber(ctx context.Context, taskID, subscriberID string, isResubscribe bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	subs, ok := q.tasks[taskID]
	switch {
	case !ok && isResubscribe:
		return ErrNoSubscriptionHistory
	case !ok:
		subs = &taskSubscriptions{subscribers: make(map[string]*queueSubscriber)}
		q.tasks[taskID] = subs
	case subs.closed && isResubscribe:
		return ErrQueueClosed
	case subs.closed:
		// a new primary subscriber starts the next stream of the task;
		// subscribers of the finished stream keep draining until they leave
		subs.closed = false
	}

	if _, exists := subs.subscribers[subscriberID]; exists {
		return nil
	}
	subs.subscribers[subscriberID] = &queueSubscriber{
		notify: make(chan struct{}, 1),
	}
	return nil
}

func (q *InMemoryEventQueue) RemoveSubscriber(ctx context.Context, taskID, subscriberID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	subs, ok := q.tasks[taskID]
	if !ok {
		return ErrUnknownTask
	}
	if _, ok := subs.subscribers[subscriberID]; !ok {
		return ErrUnknownSubscriber
	}
	delete(subs.subscribers, subscriberID)
	if subs.closed && len(subs.subscribers) == 0 {
		delete(q.tasks, taskID)
	}
	return nil
}

func (q *InMemoryEventQueue) Enqueue(ctx context.Context, taskID string, event a2a.TaskEvent) error {
	if event.Status == nil && event.Artifact == nil {
		return fmt.Errorf("empty task event")
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	subs, ok := q.tasks[taskID]
	if !ok {
		return ErrNoSubscribers
	}
	if subs.closed {
		return ErrQueueClosed
	}

	delivered := 0
	for _, sub := range subs.subscribers {
		if sub.closed {
			continue
		}
		cloned, err := cloneValue(event)
		if err != nil {
			return fmt.Errorf("failed to copy event: %w", err)
		}
		sub.items = append(sub.items, cloned)
		sub.wake()
		delivered++
	}
	if delivered == 0 {
		return ErrNoSubscribers
	}
	return nil
}

func (q *InMemoryEventQueue) Dequeue(ctx context.Context, taskID, subscriberID string) (a2a.TaskEvent, error) {
	for {
		q.mu.Lock()
		subs, ok := q.tasks[taskID]
		if !ok {
			q.mu.Unlock()
			return a2a.TaskEvent{}, ErrUnknownTask
		}
		sub, ok := subs.subscribers[subscriberID]
		if !ok {
			q.mu.Unlock()
			return a2a.TaskEvent{}, ErrUnknownSubscriber
		}
		if len(sub.items) > 0 {
			event := sub.items[0]
			sub.items[0] = a2a.TaskEvent{}
			sub.items = sub.items[1:]
			q.mu.Unlock()
			return event, nil
		}
		if sub.closed {
			q.mu.Unlock()
			return a2a.TaskEvent{}, ErrQueueClosed
		}
		notify := sub.notify
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return a2a.TaskEvent{}, ctx.Err()
		case <-notify:
		}
	}
}

func (q *InMemoryEventQueue) Close(ctx context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	subs, ok := q.tasks[taskID]
	if !ok {
		return ErrUnknownTask
	}
	subs.closed = true
	for _, sub := range subs.subscribers {
		sub.closed = true
		sub.wake()
	}
	if len(subs.subscribers) == 0 {
		delete(q.tasks, taskID)
	}
	return nil
}
