package tasklanetest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/Songmu/flextime"
	"github.com/mashiike/tasklane"
	"github.com/mashiike/tasklane/a2a"
)

// TaskRecorder implements tasklane.TaskModifier in memory and records every change,
// similar to how httptest.ResponseRecorder works for HTTP handlers.
//
// It behaves like the modifier of a streaming request: the state machine is enforced
// and every change after a final status returns tasklane.ErrStreamClosed.
type TaskRecorder struct {
	mu sync.RWMutex

	task                a2a.Task
	message             a2a.Message
	acceptedOutputModes []string
	reqCtx              tasklane.RequestContext

	statuses []RecordedStatus
	messages []a2a.Message
	events   []a2a.TaskEvent
	closed   bool
}

// RecordedStatus is a status set by the handler.
type RecordedStatus struct {
	Status a2a.TaskStatus
	Final  bool
}

var _ tasklane.TaskModifier = (*TaskRecorder)(nil)

// RecorderOption configures a TaskRecorder.
type RecorderOption func(*TaskRecorder)

// WithRequestContext sets what the handler sees as its caller.
func WithRequestContext(rc tasklane.RequestContext) RecorderOption {
	return func(r *TaskRecorder) {
		r.reqCtx = rc
	}
}

// WithTask replaces the recorded task, e.g. to start from a task with history or
// in the input-required state.
func WithTask(task a2a.Task) RecorderOption {
	return func(r *TaskRecorder) {
		r.task = task
	}
}

// NewRecorder creates a recorder for a request with params, holding the task as a
// TaskManager hands it to the handler: working, with the params message in history.
func NewRecorder(params a2a.TaskSendParams, opts ...RecorderOption) *TaskRecorder {
	if params.ID == "" {
		params.ID = (&tasklane.DefaultIDGenerator{}).GenerateTaskID()
	}
	if params.Message.Role == "" {
		params.Message.Role = a2a.RoleUser
	}
	task := tasklane.NewTaskFromParams(params)
	task.Status = a2a.NewTaskStatus(a2a.TaskStateWorking, nil, flextime.Now())

	r := &TaskRecorder{
		task:                *task,
		message:             params.Message,
		acceptedOutputModes: params.AcceptedOutputModes,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *TaskRecorder) TaskID() string {
	return r.task.ID
}

func (r *TaskRecorder) SessionID() string {
	return r.task.SessionID
}

func (r *TaskRecorder) Message() a2a.Message {
	return r.message
}

func (r *TaskRecorder) AcceptedOutputModes() []string {
	return r.acceptedOutputModes
}

func (r *TaskRecorder) RequestContext() tasklane.RequestContext {
	return r.reqCtx
}

func (r *TaskRecorder) Task(ctx context.Context, historyLength int) (*a2a.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task := r.snapshotLocked()
	task.TrimHistory(historyLength)
	return &task, nil
}

func (r *TaskRecorder) SetStatus(ctx context.Context, status a2a.TaskStatus, final bool) error {
	if err := status.Validate(); err != nil {
		return fmt.Errorf("invalid task status: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return tasklane.ErrStreamClosed
	}
	if from := r.task.Status.State; !from.CanTransitionTo(status.State) {
		return &tasklane.StateTransitionError{From: from, To: status.State}
	}
	if status.Timestamp == nil {
		status.SetTimestamp(flextime.Now())
	}
	if status.State.IsTerminal() {
		final = true
	}

	r.task.Status = status
	r.statuses = append(r.statuses, RecordedStatus{Status: status, Final: final})
	r.events = append(r.events, a2a.NewStatusEvent(r.task.ID, status, final))
	r.closed = final
	return nil
}

func (r *TaskRecorder) UpsertArtifacts(ctx context.Context, artifacts ...a2a.Artifact) error {
	for i := range artifacts {
		if err := artifacts[i].Validate(); err != nil {
			return fmt.Errorf("invalid artifact[%d]: %w", i, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return tasklane.ErrStreamClosed
	}
	r.task.UpsertArtifacts(artifacts...)
	for _, artifact := range artifacts {
		r.events = append(r.events, a2a.NewArtifactEvent(r.task.ID, artifact))
	}
	return nil
}

func (r *TaskRecorder) AddMessage(ctx context.Context, message a2a.Message) error {
	if message.Role == "" {
		message.Role = a2a.RoleAgent
	}
	if err := message.Validate(); err != nil {
		return fmt.Errorf("invalid message: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return tasklane.ErrStreamClosed
	}
	r.task.History = append(r.task.History, message)
	r.messages = append(r.messages, message)
	return nil
}

// Snapshot returns a copy of the task with every recorded change applied.
func (r *TaskRecorder) Snapshot() a2a.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *TaskRecorder) snapshotLocked() a2a.Task {
	task := r.task
	task.History = slices.Clone(r.task.History)
	task.Artifacts = slices.Clone(r.task.Artifacts)
	return task
}

// State returns the current task state.
func (r *TaskRecorder) State() a2a.TaskState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.task.Status.State
}

// Statuses returns the statuses set by the handler in order.
func (r *TaskRecorder) Statuses() []RecordedStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.statuses)
}

// Messages returns the messages added by the handler.
func (r *TaskRecorder) Messages() []a2a.Message {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.messages)
}

// Events returns the events a streaming caller would have received.
func (r *TaskRecorder) Events() []a2a.TaskEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.events)
}

// Closed reports whether a final status was set.
func (r *TaskRecorder) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}
