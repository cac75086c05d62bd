package tasklane

import (
	"errors"
	"fmt"

	"github.com/mashiike/tasklane/a2a"
)

// Task lifecycle errors
var (
	// ErrTaskNotFound is returned when a task does not exist or is owned by another caller
	ErrTaskNotFound = errors.New("task not found")
	// ErrTaskConflict is returned when creating a task whose id already exists
	ErrTaskConflict = errors.New("task already exists")
	// ErrConcurrentUpdate is returned when a store keeps losing an update to other writers
	ErrConcurrentUpdate = errors.New("task updated concurrently")
	// ErrInvalidStateTransition is returned when a status update violates the task state machine
	ErrInvalidStateTransition = errors.New("invalid task state transition")
	// ErrCapabilityNotSupported is returned when a request needs a disabled agent capability
	ErrCapabilityNotSupported = errors.New("capability not supported")
	// ErrNotImplemented is returned when an optional component needed by the request is not configured
	ErrNotImplemented = errors.New("not implemented")
	// ErrStreamClosed is returned by a streaming TaskModifier after a final status was emitted
	ErrStreamClosed = errors.New("event stream already closed")
	// ErrPushNotificationConfigNotFound is returned when a task has no push notification config
	ErrPushNotificationConfigNotFound = errors.New("push notification config not found")
)

// Event queue errors. These signal misuse of the queue and are never retried.
var (
	// ErrNoSubscriptionHistory is returned when resubscribing to a task nobody subscribed to
	ErrNoSubscriptionHistory = errors.New("no subscription history for task")
	// ErrUnknownTask is returned when removing a subscriber of a task the queue does not know
	ErrUnknownTask = errors.New("unknown task")
	// ErrUnknownSubscriber is returned when the subscriber is not registered for the task
	ErrUnknownSubscriber = errors.New("unknown subscriber")
	// ErrNoSubscribers is returned when enqueueing an event for a task nobody listens to
	ErrNoSubscribers = errors.New("no subscribers for task")
	// ErrQueueClosed is returned once a task's stream has finished and its events are drained
	ErrQueueClosed = errors.New("event queue closed")
)

// StateTransitionError describes a rejected status update.
type StateTransitionError struct {
	From a2a.TaskState
	To   a2a.TaskState
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("invalid task state transition from %q to %q", e.From, e.To)
}

func (e *StateTransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}

// HandlerFaultError wraps an error returned by a Handler.
type HandlerFaultError struct {
	TaskID string
	Err    error
}

func (e *HandlerFaultError) Error() string {
	return fmt.Sprintf("handler failed for task %s: %v", e.TaskID, e.Err)
}

func (e *HandlerFaultError) Unwrap() error {
	return e.Err
}

// ToJSONRPCError converts an error returned by the TaskManager into a JSON-RPC error.
// Errors that are already *a2a.JSONRPCError are returned as is.
func ToJSONRPCError(err error, taskID string) *a2a.JSONRPCError {
	if err == nil {
		return nil
	}
	var rpcErr *a2a.JSONRPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	var idData map[string]string
	if taskID != "" {
		idData = map[string]string{"taskId": taskID}
	}
	switch {
	case errors.Is(err, ErrTaskNotFound):
		return a2a.NewJSONRPCError(a2a.ErrorCodeTaskNotFound, idData)
	case errors.Is(err, ErrInvalidStateTransition):
		return a2a.NewJSONRPCError(a2a.ErrorCodeInvalidStateTransition, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrCapabilityNotSupported):
		return a2a.NewJSONRPCError(a2a.ErrorCodePushNotificationNotSupported, nil)
	case errors.Is(err, ErrNotImplemented):
		return a2a.NewJSONRPCError(a2a.ErrorCodeUnsupportedOperation, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrTaskConflict):
		return a2a.NewJSONRPCError(a2a.ErrorCodeInvalidRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrPushNotificationConfigNotFound):
		return a2a.NewJSONRPCError(a2a.ErrorCodeInvalidParams, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrNoSubscriptionHistory):
		return a2a.NewJSONRPCError(a2a.ErrorCodeInvalidRequest, map[string]string{"error": err.Error()})
	default:
		return a2a.NewJSONRPCInternalError("Internal error", err.Error())
	}
}
