package tasklane

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Songmu/flextime"
	"github.com/mashiike/tasklane/a2a"
	"github.com/mashiike/tasklane/transport"
)

// canceledMessageText is the status message of a task canceled through CancelTask.
const canceledMessageText = "Task canceled by user"

// TaskManager runs the A2A task lifecycle on top of a TaskStore and a Handler.
type TaskManager struct {
	Store   TaskStore
	Handler Handler

	// EventQueue fans streamed events out to resubscribers (optional).
	// Without it tasks/resubscribe is not implemented.
	EventQueue EventQueue

	// PushNotifier delivers task events to push notification endpoints (optional).
	PushNotifier PushNotifier

	// TaskLocker guarantees a single running handler per task
	TaskLocker TaskLocker

	// IDGenerator issues task ids for requests without one, and subscriber ids
	IDGenerator IDGenerator

	// Card is the agent card. Its capabilities gate streaming and push notifications.
	Card a2a.AgentCard

	// Logging
	Logger *slog.Logger

	// Metrics is optional; nil records nothing.
	Metrics *Metrics

	// LockRetryInterval is the wait between attempts to acquire a busy task lock
	LockRetryInterval time.Duration

	mu      sync.Mutex
	running map[string]*taskModifier
}

// NewTaskManager creates a TaskManager with an in-memory event queue and task locker,
// delivering push notifications over HTTP once the card enables them.
func NewTaskManager(store TaskStore, handler Handler) *TaskManager {
	return &TaskManager{
		Store:        store,
		Handler:      handler,
		EventQueue:   NewInMemoryEventQueue(),
		PushNotifier: NewDefaultPushNotifier(),
		TaskLocker:   NewInMemoryTaskLocker(),
		IDGenerator:  &DefaultIDGenerator{},
		Card: a2a.AgentCard{
			Name:    "tasklane agent",
			URL:     transport.PlaceholderURL,
			Version: "1.0.0",
			Capabilities: a2a.AgentCapabilities{
				Streaming: true,
			},
			DefaultInputModes:  []string{"text"},
			DefaultOutputModes: []string{"text"},
			Skills:             []a2a.AgentSkill{},
		},
		Logger:            slog.Default(),
		LockRetryInterval: time.Second,
		running:           make(map[string]*taskModifier),
	}
}

// GetAgentCard returns the agent card with capabilities reflecting the configured components.
func (s *TaskManager) GetAgentCard(ctx context.Context) (*a2a.AgentCard, error) {
	card := s.Card
	card.Capabilities.PushNotifications = s.pushNotificationsEnabled()
	card.Capabilities.StateTransitionHistory = false
	if card.DefaultInputModes == nil {
		card.DefaultInputModes = []string{"text"}
	}
	if card.DefaultOutputModes == nil {
		card.DefaultOutputModes = []string{"text"}
	}
	if card.Skills == nil {
		card.Skills = []a2a.AgentSkill{}
	}
	return &card, nil
}

// SendTask creates or continues a task and runs the handler to completion of this request.
func (s *TaskManager) SendTask(ctx context.Context, params a2a.TaskSendParams) (*a2a.Task, error) {
	stored, err := s.prepareSend(ctx, &params)
	if err != nil {
		return nil, err
	}
	historyLength := historyLengthOf(params.HistoryLength)
	if stored.Task.Status.State.IsTerminal() {
		s.Logger.Debug("Task is already in terminal state, skipping handler", "taskID", params.ID, "state", stored.Task.Status.State)
		return s.trimmed(stored, historyLength)
	}

	unlock, err := s.acquireTaskLockWithRetry(ctx, params.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire task lock: %w", err)
	}
	defer unlock()

	handlerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := s.newModifier(ctx, params, nil, cancel)
	started, current, err := s.start(ctx, m, params)
	if err != nil {
		return nil, err
	}
	if !started {
		return s.trimmed(current, historyLength)
	}

	s.register(m)
	s.runHandler(handlerCtx, m)
	s.unregister(m)

	result, err := s.Store.GetTask(context.WithoutCancel(ctx), params.ID, nil, historyLength)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &result.Task, nil
}

// SendTaskStreaming creates or continues a task and streams its events.
// The returned channel is closed after the final event or when the handler returns.
func (s *TaskManager) SendTaskStreaming(ctx context.Context, params a2a.TaskSendParams) (<-chan a2a.TaskEvent, error) {
	if !s.Card.Capabilities.Streaming {
		return nil, a2a.NewJSONRPCError(a2a.ErrorCodeUnsupportedOperation, nil)
	}
	stored, err := s.prepareSend(ctx, &params)
	if err != nil {
		return nil, err
	}
	if stored.Task.Status.State.IsTerminal() {
		return finalStatusStream(stored), nil
	}

	unlock, err := s.acquireTaskLockWithRetry(ctx, params.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire task lock: %w", err)
	}

	handlerCtx, cancel := context.WithCancel(ctx)
	stream := &eventStream{
		ctx:          ctx,
		taskID:       params.ID,
		subscriberID: s.IDGenerator.GenerateSubscriberID(),
		out:          make(chan a2a.TaskEvent),
	}
	if s.EventQueue != nil {
		if err := s.EventQueue.AddSubscriber(ctx, params.ID, stream.subscriberID, false); err != nil {
			s.Logger.Error("Failed to subscribe to event queue, streaming without fan-out", "error", err, "taskID", params.ID, "subscriberID", stream.subscriberID)
		} else {
			stream.queue = s.EventQueue
		}
	}
	m := s.newModifier(ctx, params, stream, cancel)

	s.register(m)
	s.Metrics.streamOpened()
	go func() {
		defer func() {
			s.unregister(m)
			m.finish()
			s.closeQueue(context.WithoutCancel(ctx), stream)
			unlock()
			cancel()
			s.Metrics.streamClosed()
		}()

		started, current, err := s.start(handlerCtx, m, params)
		if err != nil {
			s.Logger.Error("Failed to start task", "error", err, "taskID", params.ID)
			return
		}
		if !started {
			s.emitSnapshot(m, current)
			return
		}
		s.runHandler(handlerCtx, m)
	}()
	return stream.out, nil
}

// ResubscribeToTask attaches to the live stream of a task.
func (s *TaskManager) ResubscribeToTask(ctx context.Context, params a2a.TaskIDParams) (<-chan a2a.TaskEvent, error) {
	if s.EventQueue == nil {
		return nil, fmt.Errorf("tasks/resubscribe requires an event queue: %w", ErrNotImplemented)
	}
	if !s.Card.Capabilities.Streaming {
		return nil, a2a.NewJSONRPCError(a2a.ErrorCodeUnsupportedOperation, nil)
	}
	callerID := RequestContextFrom(ctx).CallerID
	stored, err := s.Store.GetTask(ctx, params.ID, callerID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if stored.Task.Status.State.IsTerminal() {
		return finalStatusStream(stored), nil
	}

	subscriberID := s.IDGenerator.GenerateSubscriberID()
	if err := s.EventQueue.AddSubscriber(ctx, params.ID, subscriberID, true); err != nil {
		if errors.Is(err, ErrQueueClosed) {
			// the stream finished between the read and the subscription
			current, getErr := s.Store.GetTask(ctx, params.ID, nil, 0)
			if getErr != nil {
				return nil, fmt.Errorf("failed to get task: %w", getErr)
			}
			return finalStatusStream(current), nil
		}
		return nil, fmt.Errorf("failed to resubscribe to task %s: %w", params.ID, err)
	}

	out := make(chan a2a.TaskEvent)
	s.Metrics.streamOpened()
	go func() {
		defer func() {
			if err := s.EventQueue.RemoveSubscriber(context.WithoutCancel(ctx), params.ID, subscriberID); err != nil && !errors.Is(err, ErrUnknownTask) {
				s.Logger.Error("Failed to remove subscriber", "error", err, "taskID", params.ID, "subscriberID", subscriberID)
			}
			close(out)
			s.Metrics.streamClosed()
		}()
		for received := false; ; received = true {
			event, err := s.EventQueue.Dequeue(ctx, params.ID, subscriberID)
			if errors.Is(err, ErrQueueClosed) && !received {
				// attached after the final event was enqueued, before the stream closed
				current, getErr := s.Store.GetTask(ctx, params.ID, nil, 0)
				if getErr != nil {
					s.Logger.Error("Failed to get task after its stream closed", "error", getErr, "taskID", params.ID)
					return
				}
				event, err = a2a.NewStatusEvent(current.ID, current.Task.Status, true), nil
			}
			if err != nil {
				if !errors.Is(err, ErrQueueClosed) && ctx.Err() == nil {
					s.Logger.Error("Failed to dequeue task event", "error", err, "taskID", params.ID, "subscriberID", subscriberID)
				}
				return
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
			s.Metrics.streamEvent(event)
			if event.IsFinal() {
				return
			}
		}
	}()
	return out, nil
}

// GetTask returns a task owned by the caller.
func (s *TaskManager) GetTask(ctx context.Context, params a2a.TaskQueryParams) (*a2a.Task, error) {
	callerID := RequestContextFrom(ctx).CallerID
	stored, err := s.Store.GetTask(ctx, params.ID, callerID, historyLengthOf(params.HistoryLength))
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &stored.Task, nil
}

// ListTasks returns a page of the caller's tasks ordered by creation time.
func (s *TaskManager) ListTasks(ctx context.Context, params a2a.TaskListParams) (*a2a.TaskListResult, error) {
	listParams, err := NormalizeListParams(ListTasksParams{
		Page:     params.Page,
		PageSize: params.PageSize,
		Order:    SortOrder(params.Order),
		CallerID: RequestContextFrom(ctx).CallerID,
	})
	if err != nil {
		return nil, a2a.NewJSONRPCInvalidParamsError(err.Error())
	}
	page, err := s.Store.ListTasks(ctx, listParams)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	result := &a2a.TaskListResult{
		Items: make([]a2a.Task, 0, len(page.Items)),
		Pagination: a2a.Pagination{
			Page:     page.Pagination.Page,
			PageSize: page.Pagination.PageSize,
			Total:    page.Pagination.Total,
		},
	}
	for _, stored := range page.Items {
		result.Items = append(result.Items, stored.Task)
	}
	return result, nil
}

// CancelTask cancels a task. Canceling a task in a terminal state returns it unchanged.
func (s *TaskManager) CancelTask(ctx context.Context, params a2a.TaskIDParams) (*a2a.Task, error) {
	callerID := RequestContextFrom(ctx).CallerID
	stored, err := s.Store.GetTask(ctx, params.ID, callerID, HistoryLengthAll)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if stored.Task.Status.State.IsTerminal() {
		return &stored.Task, nil
	}

	message := a2a.NewTextMessage(a2a.RoleAgent, canceledMessageText)
	if m := s.lookup(params.ID); m != nil {
		err := m.cancel(ctx, &message)
		if err == nil {
			return s.getTask(ctx, params.ID)
		}
		if !errors.Is(err, ErrStreamClosed) && !errors.Is(err, ErrInvalidStateTransition) {
			current, getErr := s.Store.GetTask(ctx, params.ID, nil, HistoryLengthAll)
			if getErr == nil && current.Task.Status.State.IsTerminal() {
				return &current.Task, nil
			}
			return nil, fmt.Errorf("failed to cancel task: %w", err)
		}
		s.Logger.Debug("Running task finished before cancel, canceling through the store", "taskID", params.ID, "error", err)
	}

	status := a2a.NewTaskStatus(a2a.TaskStateCanceled, &message, flextime.Now())
	updated, err := s.Store.UpdateTask(ctx, params.ID, callerID, TaskPatch{Status: &status})
	if errors.Is(err, ErrInvalidStateTransition) {
		// lost the race against completion
		return s.getTask(ctx, params.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to cancel task: %w", err)
	}
	s.Metrics.taskTransition(a2a.TaskStateCanceled)
	s.notifyPush(ctx, updated, a2a.NewStatusEvent(params.ID, updated.Task.Status, true))
	return &updated.Task, nil
}

// SetTaskPushNotification replaces the push notification config of a task.
func (s *TaskManager) SetTaskPushNotification(ctx context.Context, params a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	if !s.pushNotificationsEnabled() {
		return nil, fmt.Errorf("push notifications are disabled: %w", ErrCapabilityNotSupported)
	}
	config := params.PushNotificationConfig
	if err := config.Validate(); err != nil {
		return nil, a2a.NewJSONRPCInvalidParamsError(err.Error())
	}
	if err := s.PushNotifier.ValidateEndpoint(ctx, config); err != nil {
		return nil, a2a.NewJSONRPCInvalidParamsError(err.Error())
	}

	callerID := RequestContextFrom(ctx).CallerID
	updated, err := s.Store.UpdateTask(ctx, params.ID, callerID, TaskPatch{PushNotification: &config})
	if err != nil {
		return nil, fmt.Errorf("failed to set push notification config: %w", err)
	}
	return &a2a.TaskPushNotificationConfig{
		ID:                     params.ID,
		PushNotificationConfig: *updated.PushNotification,
	}, nil
}

// GetTaskPushNotification returns the push notification config of a task.
func (s *TaskManager) GetTaskPushNotification(ctx context.Context, params a2a.TaskIDParams) (*a2a.TaskPushNotificationConfig, error) {
	if !s.pushNotificationsEnabled() {
		return nil, fmt.Errorf("push notifications are disabled: %w", ErrCapabilityNotSupported)
	}
	callerID := RequestContextFrom(ctx).CallerID
	stored, err := s.Store.GetTask(ctx, params.ID, callerID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	if stored.PushNotification == nil {
		return nil, fmt.Errorf("task %s: %w", params.ID, ErrPushNotificationConfigNotFound)
	}
	return &a2a.TaskPushNotificationConfig{
		ID:                     params.ID,
		PushNotificationConfig: *stored.PushNotification,
	}, nil
}

// Close releases the push notifier and task locker.
func (s *TaskManager) Close() error {
	var errs []error
	if s.PushNotifier != nil {
		if err := s.PushNotifier.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close push notifier: %w", err))
		}
	}
	if s.TaskLocker != nil {
		if err := s.TaskLocker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close task locker: %w", err))
		}
	}
	return errors.Join(errs...)
}

// prepareSend validates params, assigns a task id when missing and upserts the task.
func (s *TaskManager) prepareSend(ctx context.Context, params *a2a.TaskSendParams) (*StoredTask, error) {
	if params.ID == "" {
		params.ID = s.IDGenerator.GenerateTaskID()
	}
	if err := params.Validate(); err != nil {
		return nil, a2a.NewJSONRPCInvalidParamsError(err.Error())
	}
	if params.PushNotification != nil {
		if !s.pushNotificationsEnabled() {
			return nil, fmt.Errorf("push notifications are disabled: %w", ErrCapabilityNotSupported)
		}
		if err := s.PushNotifier.ValidateEndpoint(ctx, *params.PushNotification); err != nil {
			return nil, a2a.NewJSONRPCInvalidParamsError(err.Error())
		}
	}

	callerID := RequestContextFrom(ctx).CallerID
	stored, err := s.Store.UpsertTask(ctx, *params, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert task: %w", err)
	}
	s.Metrics.taskSubmitted()
	return stored, nil
}

// start re-reads the task under the lock and moves it to working.
// It reports false with the current task when the task reached a terminal state meanwhile.
func (s *TaskManager) start(ctx context.Context, m *taskModifier, params a2a.TaskSendParams) (bool, *StoredTask, error) {
	current, err := s.Store.GetTask(ctx, params.ID, nil, HistoryLengthAll)
	if err != nil {
		return false, nil, fmt.Errorf("failed to get task: %w", err)
	}
	if current.Task.Status.State.IsTerminal() {
		return false, current, nil
	}

	var patch TaskPatch
	if current.Task.Status.State != a2a.TaskStateSubmitted {
		// a continued task records the new message; a fresh one already holds it
		patch.Messages = []a2a.Message{params.Message}
		patch.PushNotification = params.PushNotification
	}
	if err := m.begin(ctx, patch); err != nil {
		if errors.Is(err, ErrInvalidStateTransition) || errors.Is(err, ErrStreamClosed) {
			current, getErr := s.Store.GetTask(ctx, params.ID, nil, HistoryLengthAll)
			if getErr == nil && current.Task.Status.State.IsTerminal() {
				return false, current, nil
			}
		}
		return false, nil, fmt.Errorf("failed to set task to working state: %w", err)
	}
	return true, current, nil
}

func (s *TaskManager) runHandler(ctx context.Context, m *taskModifier) {
	start := flextime.Now()
	err := s.callHandler(ctx, m)
	s.Metrics.observeHandler(start)
	if err == nil {
		return
	}

	s.Metrics.handlerFault()
	fault := &HandlerFaultError{TaskID: m.taskID, Err: err}
	s.Logger.Error("Handler failed", "error", fault, "taskID", m.taskID)
	if failErr := m.fail(context.WithoutCancel(ctx), err); failErr != nil {
		if errors.Is(failErr, ErrInvalidStateTransition) {
			s.Logger.Debug("Task already left a non-terminal state, failure not recorded", "taskID", m.taskID)
			return
		}
		s.Logger.Error("Failed to mark task as failed", "error", failErr, "taskID", m.taskID)
	}
}

func (s *TaskManager) callHandler(ctx context.Context, m *taskModifier) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return s.Handler.HandleTask(ctx, m)
}

func (s *TaskManager) newModifier(ctx context.Context, params a2a.TaskSendParams, stream *eventStream, cancel context.CancelFunc) *taskModifier {
	return &taskModifier{
		mgr:                 s,
		taskID:              params.ID,
		sessionID:           params.SessionID,
		message:             params.Message,
		acceptedOutputModes: params.AcceptedOutputModes,
		reqCtx:              RequestContextFrom(ctx),
		stream:              stream,
		cancelHandler:       cancel,
	}
}

// emitSnapshot reports the current status as the final event of a stream
// whose task finished before the handler could start.
func (s *TaskManager) emitSnapshot(m *taskModifier, stored *StoredTask) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if err := m.emitLocked(m.stream.ctx, a2a.NewStatusEvent(m.taskID, stored.Task.Status, true)); err != nil {
		s.Logger.Debug("Failed to deliver task snapshot", "error", err, "taskID", m.taskID)
	}
}

func (s *TaskManager) closeQueue(ctx context.Context, stream *eventStream) {
	if stream.queue == nil {
		return
	}
	if err := stream.queue.Close(ctx, stream.taskID); err != nil {
		s.Logger.Error("Failed to close event queue", "error", err, "taskID", stream.taskID)
	}
	if err := stream.queue.RemoveSubscriber(ctx, stream.taskID, stream.subscriberID); err != nil && !errors.Is(err, ErrUnknownTask) {
		s.Logger.Error("Failed to remove subscriber", "error", err, "taskID", stream.taskID, "subscriberID", stream.subscriberID)
	}
}

func (s *TaskManager) register(m *taskModifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running == nil {
		s.running = make(map[string]*taskModifier)
	}
	s.running[m.taskID] = m
}

func (s *TaskManager) unregister(m *taskModifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[m.taskID] == m {
		delete(s.running, m.taskID)
	}
}

func (s *TaskManager) lookup(taskID string) *taskModifier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running[taskID]
}

func (s *TaskManager) getTask(ctx context.Context, taskID string) (*a2a.Task, error) {
	stored, err := s.Store.GetTask(ctx, taskID, nil, HistoryLengthAll)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &stored.Task, nil
}

func (s *TaskManager) trimmed(stored *StoredTask, historyLength int) (*a2a.Task, error) {
	result, err := WithHistory(stored, historyLength)
	if err != nil {
		return nil, fmt.Errorf("failed to copy task: %w", err)
	}
	return &result.Task, nil
}

func (s *TaskManager) pushNotificationsEnabled() bool {
	return s.Card.Capabilities.PushNotifications && s.PushNotifier != nil
}

// notifyPush delivers event to the task's push notification endpoint, if any.
// Delivery failures are logged and never fail the task.
func (s *TaskManager) notifyPush(ctx context.Context, stored *StoredTask, event a2a.TaskEvent) {
	if !s.pushNotificationsEnabled() || stored == nil || stored.PushNotification == nil {
		return
	}
	if err := s.PushNotifier.Notify(ctx, *stored.PushNotification, event); err != nil {
		s.Logger.Warn("Failed to send push notification", "error", err, "taskID", stored.ID)
	}
}

// acquireTaskLockWithRetry attempts to acquire a task lock until ctx ends
func (s *TaskManager) acquireTaskLockWithRetry(ctx context.Context, taskID string) (func(), error) {
	if s.TaskLocker == nil {
		return func() {}, nil
	}
	retryInterval := s.LockRetryInterval
	if retryInterval <= 0 {
		retryInterval = time.Second
	}
	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()

	for {
		unlock, err := s.TaskLocker.Lock(ctx, taskID)
		if err == nil {
			return unlock, nil
		}
		if !errors.Is(err, ErrTaskLockAlreadyAcquired) {
			return nil, err
		}

		s.Logger.Debug("Failed to acquire task lock, retrying", "error", err, "taskID", taskID)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func historyLengthOf(historyLength *int) int {
	if historyLength == nil {
		return HistoryLengthAll
	}
	return *historyLength
}

// finalStatusStream returns a closed stream carrying the task's status as its only event.
func finalStatusStream(stored *StoredTask) <-chan a2a.TaskEvent {
	ch := make(chan a2a.TaskEvent, 1)
	ch <- a2a.NewStatusEvent(stored.ID, stored.Task.Status, true)
	close(ch)
	return ch
}
