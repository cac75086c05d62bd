package transport

import (
	"context"

	"github.com/mashiike/tasklane/a2a"
)

// PlaceholderURL is used as a default URL for AgentCard when the actual URL is managed by transport layer
const PlaceholderURL = "http://0.0.0.0"

//go:generate go tool mockgen -source=agent_service.go -destination=mock_agent_service_test.go -package=transport

// AgentService is the A2A task API served by Handler.
// Errors that are *a2a.JSONRPCError are written as is; others go through the handler's error mapper.
type AgentService interface {
	// SendTask sends a message to a task and returns the task once the agent finished this request.
	SendTask(ctx context.Context, params a2a.TaskSendParams) (*a2a.Task, error)

	// SendTaskStreaming sends a message to a task and streams its events.
	// The channel is closed after the final event.
	SendTaskStreaming(ctx context.Context, params a2a.TaskSendParams) (<-chan a2a.TaskEvent, error)

	// GetTask retrieves the current state of a task.
	GetTask(ctx context.Context, params a2a.TaskQueryParams) (*a2a.Task, error)

	// ListTasks returns a page of tasks visible to the caller.
	ListTasks(ctx context.Context, params a2a.TaskListParams) (*a2a.TaskListResult, error)

	// CancelTask cancels a task.
	CancelTask(ctx context.Context, params a2a.TaskIDParams) (*a2a.Task, error)

	// ResubscribeToTask attaches to the event stream of a running task.
	ResubscribeToTask(ctx context.Context, params a2a.TaskIDParams) (<-chan a2a.TaskEvent, error)

	// SetTaskPushNotification sets the push notification config of a task.
	SetTaskPushNotification(ctx context.Context, params a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error)

	// GetTaskPushNotification gets the push notification config of a task.
	GetTaskPushNotification(ctx context.Context, params a2a.TaskIDParams) (*a2a.TaskPushNotificationConfig, error)

	// GetAgentCard returns the agent card for this agent.
	GetAgentCard(ctx context.Context) (*a2a.AgentCard, error)
}
