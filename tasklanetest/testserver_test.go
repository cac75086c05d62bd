package tasklanetest

import (
	"context"
	"net/http"
	"testing"

	"github.com/mashiike/tasklane"
	"github.com/mashiike/tasklane/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	ctx := context.Background()
	server := NewServer(t, tasklane.HandlerFunc(echoHandler))

	task, err := server.Client().SendTask(ctx, a2a.TaskSendParams{
		ID:      "task-1",
		Message: a2a.NewTextMessage(a2a.RoleUser, "hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
	require.Len(t, task.Artifacts, 1)

	stored, err := server.Store.GetTask(ctx, "task-1", nil, tasklane.HistoryLengthAll)
	require.NoError(t, err)
	assert.Len(t, stored.Task.History, 2)
}

func TestNewServer_Streaming(t *testing.T) {
	ctx := context.Background()
	server := NewServer(t, tasklane.HandlerFunc(echoHandler), WithStore(tasklane.NewInMemoryTaskStore()))

	events, err := server.Client().SendTaskStreaming(ctx, a2a.TaskSendParams{
		ID:      "task-1",
		Message: a2a.NewTextMessage(a2a.RoleUser, "hello"),
	})
	require.NoError(t, err)

	var got []a2a.TaskEvent
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, 3, "working, artifact, completed")
	assert.Equal(t, a2a.TaskStateWorking, got[0].Status.Status.State)
	assert.NotNil(t, got[1].Artifact)
	assert.True(t, got[2].IsFinal())
}

func TestNewServer_ClientWithHeaders(t *testing.T) {
	ctx := context.Background()
	seen := make(chan http.Header, 1)
	server := NewServer(t, tasklane.HandlerFunc(func(ctx context.Context, m tasklane.TaskModifier) error {
		seen <- m.RequestContext().Headers
		return m.SetStatus(ctx, a2a.TaskStatus{State: a2a.TaskStateCompleted}, true)
	}))

	client := server.ClientWithHeaders(http.Header{"X-Request-Id": []string{"req-123"}})
	_, err := client.SendTask(ctx, a2a.TaskSendParams{Message: a2a.NewTextMessage(a2a.RoleUser, "hi")})
	require.NoError(t, err)
	assert.Equal(t, "req-123", (<-seen).Get("X-Request-Id"))
}

func TestNewServer_WithManager(t *testing.T) {
	server := NewServer(t, tasklane.HandlerFunc(echoHandler), WithManager(func(m *tasklane.TaskManager) {
		m.Card.Name = "echo agent"
	}))

	card, err := server.Client().GetAgentCard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "echo agent", card.Name)
	assert.Equal(t, server.URL()+"/", card.URL)
}
