package transport

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mashiike/tasklane/a2a"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestClient(t *testing.T, service AgentService, handlerOptions []HandlerOption, clientOptions ...ClientOption) *Client {
	t.Helper()
	server := httptest.NewServer(newQuietHandler(service, handlerOptions...))
	t.Cleanup(server.Close)
	return NewClient(server.URL, clientOptions...)
}

func TestClient_SendTask(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := NewMockAgentService(ctrl)
	client := newTestClient(t, service, nil)

	params := a2a.TaskSendParams{
		ID:      "task-1",
		Message: a2a.NewTextMessage(a2a.RoleUser, "hello"),
	}
	service.EXPECT().SendTask(gomock.Any(), params).
		DoAndReturn(func(ctx context.Context, params a2a.TaskSendParams) (*a2a.Task, error) {
			assert.Equal(t, "tasklane-client/1.0", GetHTTPHeaders(ctx).Get("User-Agent"))
			return &a2a.Task{
				ID:      params.ID,
				Status:  a2a.NewTaskStatus(a2a.TaskStateCompleted, nil, testTime),
				History: []a2a.Message{params.Message},
			}, nil
		})

	task, err := client.SendTask(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, "task-1", task.ID)
	assert.Equal(t, a2a.TaskStateCompleted, task.Status.State)
	require.Len(t, task.History, 1)
	assert.Equal(t, "hello", a2a.TextOf(&task.History[0]))
}

func TestClient_RPCError(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := NewMockAgentService(ctrl)
	client := newTestClient(t, service, nil)

	service.EXPECT().GetTask(gomock.Any(), a2a.TaskQueryParams{ID: "missing"}).
		Return(nil, a2a.NewJSONRPCTaskNotFoundError("missing"))

	_, err := client.GetTask(context.Background(), a2a.TaskQueryParams{ID: "missing"})
	var rpcErr *a2a.JSONRPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, a2a.ErrorCodeTaskNotFound, rpcErr.Code)
}

func TestClient_Methods(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := NewMockAgentService(ctrl)
	client := newTestClient(t, service, []HandlerOption{WithRPCPath("/a2a")}, WithClientRPCPath("/a2a"))
	ctx := context.Background()

	canceled := &a2a.Task{ID: "task-1", Status: a2a.NewTaskStatus(a2a.TaskStateCanceled, nil, testTime)}
	service.EXPECT().CancelTask(gomock.Any(), a2a.TaskIDParams{ID: "task-1"}).Return(canceled, nil)
	task, err := client.CancelTask(ctx, a2a.TaskIDParams{ID: "task-1"})
	require.NoError(t, err)
	assert.Equal(t, a2a.TaskStateCanceled, task.Status.State)

	service.EXPECT().ListTasks(gomock.Any(), a2a.TaskListParams{Page: 1, PageSize: 10}).Return(&a2a.TaskListResult{
		Items:      []a2a.Task{*canceled},
		Pagination: a2a.Pagination{Page: 1, PageSize: 10},
	}, nil)
	list, err := client.ListTasks(ctx, a2a.TaskListParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "task-1", list.Items[0].ID)

	config := a2a.TaskPushNotificationConfig{
		ID:                     "task-1",
		PushNotificationConfig: a2a.PushNotificationConfig{URL: "https://hooks.example.com/a2a"},
	}
	service.EXPECT().SetTaskPushNotification(gomock.Any(), config).Return(&config, nil)
	service.EXPECT().GetTaskPushNotification(gomock.Any(), a2a.TaskIDParams{ID: "task-1"}).Return(&config, nil)

	set, err := client.SetTaskPushNotification(ctx, config)
	require.NoError(t, err)
	assert.Equal(t, config, *set)
	got, err := client.GetTaskPushNotification(ctx, a2a.TaskIDParams{ID: "task-1"})
	require.NoError(t, err)
	assert.Equal(t, config, *got)
}

func TestClient_SendTaskStreaming(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := NewMockAgentService(ctrl)
	client := newTestClient(t, service, nil)

	service.EXPECT().SendTaskStreaming(gomock.Any(), gomock.Any()).Return(eventStream(
		a2a.NewStatusEvent("task-1", a2a.NewTaskStatus(a2a.TaskStateWorking, nil, testTime), false),
		a2a.NewArtifactEvent("task-1", a2a.Artifact{Parts: []a2a.Part{a2a.NewTextPart("partial")}}),
		a2a.NewStatusEvent("task-1", a2a.NewTaskStatus(a2a.TaskStateCompleted, nil, testTime), true),
	), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events, err := client.SendTaskStreaming(ctx, a2a.TaskSendParams{
		ID:      "task-1",
		Message: a2a.NewTextMessage(a2a.RoleUser, "stream"),
	})
	require.NoError(t, err)

	var got []a2a.TaskEvent
	for event := range events {
		got = append(got, event)
	}
	require.Len(t, got, 3)
	require.NotNil(t, got[0].Status)
	assert.Equal(t, a2a.TaskStateWorking, got[0].Status.Status.State)
	require.NotNil(t, got[1].Artifact)
	assert.Equal(t, "partial", got[1].Artifact.Artifact.Parts[0].Text)
	assert.True(t, got[2].IsFinal())
}

func TestClient_StreamingError(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := NewMockAgentService(ctrl)
	client := newTestClient(t, service, nil)

	service.EXPECT().ResubscribeToTask(gomock.Any(), a2a.TaskIDParams{ID: "task-1"}).
		Return(nil, a2a.NewJSONRPCError(a2a.ErrorCodeUnsupportedOperation, nil))

	events, err := client.ResubscribeToTask(context.Background(), a2a.TaskIDParams{ID: "task-1"})
	assert.Nil(t, events)
	var rpcErr *a2a.JSONRPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, a2a.ErrorCodeUnsupportedOperation, rpcErr.Code)
}

func TestClient_BearerToken(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := NewMockAgentService(ctrl)
	auth := []HandlerOption{WithAuthenticator(&stubAuthenticator{token: "good"})}

	service.EXPECT().GetTask(gomock.Any(), a2a.TaskQueryParams{ID: "task-1"}).
		DoAndReturn(func(ctx context.Context, params a2a.TaskQueryParams) (*a2a.Task, error) {
			callerID, _ := GetCallerID(ctx)
			assert.Equal(t, "alice", callerID)
			return &a2a.Task{ID: "task-1", Status: a2a.NewTaskStatus(a2a.TaskStateWorking, nil, testTime)}, nil
		})

	authorized := newTestClient(t, service, auth, WithBearerToken("good"))
	_, err := authorized.GetTask(context.Background(), a2a.TaskQueryParams{ID: "task-1"})
	require.NoError(t, err)

	anonymous := newTestClient(t, service, auth)
	_, err = anonymous.GetTask(context.Background(), a2a.TaskQueryParams{ID: "task-1"})
	var rpcErr *a2a.JSONRPCError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, a2a.ErrorCodeUnauthorized, rpcErr.Code)
}

func TestClient_GetAgentCard(t *testing.T) {
	ctrl := gomock.NewController(t)
	service := NewMockAgentService(ctrl)
	client := newTestClient(t, service, nil)

	service.EXPECT().GetAgentCard(gomock.Any()).Return(&a2a.AgentCard{
		Name:    "echo",
		URL:     PlaceholderURL,
		Version: "1.0.0",
	}, nil)

	card, err := client.GetAgentCard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "echo", card.Name)
	assert.Equal(t, client.baseURL+"/", card.URL)
}
