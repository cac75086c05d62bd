package tasklane

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Songmu/flextime"
	"github.com/mashiike/tasklane/a2a"
)

// TaskModifier is handed to a Handler to read and change the task it is processing.
//
// Every change is persisted before it is reported. On a streaming request the change is
// then fanned out to all subscribers and delivered to the caller, and a call does not
// return until the caller received it. After a final status has been streamed, further
// changes return ErrStreamClosed and are not persisted.
type TaskModifier interface {
	TaskID() string
	SessionID() string
	// Message returns the message that triggered this run of the handler.
	Message() a2a.Message
	AcceptedOutputModes() []string
	RequestContext() RequestContext

	// Task returns the currently stored task.
	Task(ctx context.Context, historyLength int) (*a2a.Task, error)
	// SetStatus replaces the task status. The state machine is enforced and a rejected
	// transition returns ErrInvalidStateTransition. Terminal states are always final.
	SetStatus(ctx context.Context, status a2a.TaskStatus, final bool) error
	// UpsertArtifacts merges artifacts by index, emitting one event per artifact.
	UpsertArtifacts(ctx context.Context, artifacts ...a2a.Artifact) error
	// AddMessage appends a message to the task history. An empty role defaults to agent.
	AddMessage(ctx context.Context, message a2a.Message) error
}

// eventStream is the delivery side of a streaming request.
type eventStream struct {
	ctx          context.Context
	taskID       string
	subscriberID string
	queue        EventQueue
	out          chan a2a.TaskEvent
	closeOnce    sync.Once
}

func (s *eventStream) close() {
	s.closeOnce.Do(func() {
		close(s.out)
	})
}

// taskModifier serializes every call with mu, including cancellation coming from CancelTask.
type taskModifier struct {
	mgr                 *TaskManager
	taskID              string
	sessionID           string
	message             a2a.Message
	acceptedOutputModes []string
	reqCtx              RequestContext

	mu            sync.Mutex
	stream        *eventStream
	closed        bool
	cancelHandler context.CancelFunc
}

func (m *taskModifier) TaskID() string {
	return m.taskID
}

func (m *taskModifier) SessionID() string {
	return m.sessionID
}

func (m *taskModifier) Message() a2a.Message {
	return m.message
}

func (m *taskModifier) AcceptedOutputModes() []string {
	return m.acceptedOutputModes
}

func (m *taskModifier) RequestContext() RequestContext {
	return m.reqCtx
}

func (m *taskModifier) Task(ctx context.Context, historyLength int) (*a2a.Task, error) {
	stored, err := m.mgr.Store.GetTask(ctx, m.taskID, nil, historyLength)
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return &stored.Task, nil
}

func (m *taskModifier) SetStatus(ctx context.Context, status a2a.TaskStatus, final bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setStatusLocked(ctx, TaskPatch{Status: &status}, final)
}

// setStatusLocked persists patch, whose Status must be set, and emits the status event.
// The caller holds mu.
func (m *taskModifier) setStatusLocked(ctx context.Context, patch TaskPatch, final bool) error {
	if m.closed {
		return ErrStreamClosed
	}
	status := *patch.Status
	if err := status.Validate(); err != nil {
		return fmt.Errorf("invalid task status: %w", err)
	}
	if status.Timestamp == nil {
		status.SetTimestamp(flextime.Now())
	}
	if status.State.IsTerminal() {
		final = true
	}
	patch.Status = &status

	stored, err := m.mgr.Store.UpdateTask(ctx, m.taskID, nil, patch)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	m.mgr.Metrics.taskTransition(status.State)

	event := a2a.NewStatusEvent(m.taskID, stored.Task.Status, final)
	m.mgr.notifyPush(ctx, stored, event)
	return m.emitLocked(ctx, event)
}

func (m *taskModifier) UpsertArtifacts(ctx context.Context, artifacts ...a2a.Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}
	for i := range artifacts {
		if err := artifacts[i].Validate(); err != nil {
			return fmt.Errorf("invalid artifact[%d]: %w", i, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStreamClosed
	}
	stored, err := m.mgr.Store.UpdateTask(ctx, m.taskID, nil, TaskPatch{Artifacts: artifacts})
	if err != nil {
		return fmt.Errorf("failed to upsert artifacts: %w", err)
	}
	for _, artifact := range artifacts {
		event := a2a.NewArtifactEvent(m.taskID, artifact)
		m.mgr.notifyPush(ctx, stored, event)
		if err := m.emitLocked(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (m *taskModifier) AddMessage(ctx context.Context, message a2a.Message) error {
	if message.Role == "" {
		message.Role = a2a.RoleAgent
	}
	if err := message.Validate(); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStreamClosed
	}
	if _, err := m.mgr.Store.UpdateTask(ctx, m.taskID, nil, TaskPatch{Messages: []a2a.Message{message}}); err != nil {
		return fmt.Errorf("failed to add message: %w", err)
	}
	return nil
}

// emitLocked delivers a persisted event on the streaming path.
// The caller holds mu.
func (m *taskModifier) emitLocked(ctx context.Context, event a2a.TaskEvent) error {
	if m.stream == nil {
		return nil
	}
	if event.IsFinal() {
		m.closed = true
	}

	s := m.stream
	delivered := event
	if s.queue != nil {
		if err := s.queue.Enqueue(ctx, s.taskID, event); err != nil {
			m.mgr.Logger.Error("Failed to fan out task event", "error", err, "taskID", s.taskID)
		} else if own, err := s.queue.Dequeue(ctx, s.taskID, s.subscriberID); err != nil {
			m.mgr.Logger.Error("Failed to dequeue own task event", "error", err, "taskID", s.taskID, "subscriberID", s.subscriberID)
		} else {
			delivered = own
		}
	}

	select {
	case s.out <- delivered:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
	m.mgr.Metrics.streamEvent(delivered)
	if delivered.IsFinal() {
		s.close()
	}
	return nil
}

// begin moves the task to working together with patch. On the streaming path
// this is the first event the caller receives.
func (m *taskModifier) begin(ctx context.Context, patch TaskPatch) error {
	status := a2a.NewTaskStatus(a2a.TaskStateWorking, nil, flextime.Now())
	patch.Status = &status

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setStatusLocked(ctx, patch, false)
}

// cancel moves the task to canceled through this modifier so that streaming
// subscribers receive the final event, then stops the handler.
func (m *taskModifier) cancel(ctx context.Context, message *a2a.Message) error {
	status := a2a.NewTaskStatus(a2a.TaskStateCanceled, message, flextime.Now())
	m.mu.Lock()
	err := m.setStatusLocked(ctx, TaskPatch{Status: &status}, true)
	cancelHandler := m.cancelHandler
	m.mu.Unlock()

	if err != nil {
		return err
	}
	if cancelHandler != nil {
		cancelHandler()
	}
	return nil
}

// fail records a handler error as a failed status.
// A stream that already ended gets the status persisted without an event.
func (m *taskModifier) fail(ctx context.Context, cause error) error {
	message := a2a.NewTextMessage(a2a.RoleAgent, cause.Error())
	status := a2a.NewTaskStatus(a2a.TaskStateFailed, &message, flextime.Now())

	err := m.SetStatus(ctx, status, true)
	if errors.Is(err, ErrStreamClosed) {
		var stored *StoredTask
		stored, err = m.mgr.Store.UpdateTask(ctx, m.taskID, nil, TaskPatch{Status: &status})
		if err == nil {
			m.mgr.Metrics.taskTransition(status.State)
			m.mgr.notifyPush(ctx, stored, a2a.NewStatusEvent(m.taskID, stored.Task.Status, true))
		}
	}
	return err
}

// finish ends the stream after the handler returned. Later calls report ErrStreamClosed.
func (m *taskModifier) finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil {
		return
	}
	m.closed = true
	m.stream.close()
}
