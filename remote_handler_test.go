package tasklane_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mashiike/tasklane"
	"github.com/mashiike/tasklane/a2a"
	"github.com/mashiike/tasklane/tasklanetest"
)

func remoteAgent(ctx context.Context, m tasklane.TaskModifier) error {
	msg := m.Message()
	switch text := a2a.TextOf(&msg); text {
	case "ask":
		question := a2a.NewTextMessage(a2a.RoleAgent, "which one?")
		return m.SetStatus(ctx, a2a.TaskStatus{State: a2a.TaskStateInputRequired, Message: &question}, true)
	case "fail":
		return errors.New("remote exploded")
	default:
		if err := m.UpsertArtifacts(ctx, a2a.Artifact{Index: 0, Parts: []a2a.Part{a2a.NewTextPart("remote: " + text)}}); err != nil {
			return err
		}
		return m.SetStatus(ctx, a2a.TaskStatus{State: a2a.TaskStateCompleted}, true)
	}
}

func TestRemoteHandler(t *testing.T) {
	for _, streaming := range []bool{true, false} {
		name := "streaming"
		if !streaming {
			name = "non-streaming"
		}
		t.Run(name, func(t *testing.T) {
			remote := tasklanetest.NewServer(t, tasklane.HandlerFunc(remoteAgent), tasklanetest.WithManager(func(m *tasklane.TaskManager) {
				m.Card.Capabilities.Streaming = streaming
			}))
			handler := tasklane.NewRemoteHandler(remote.URL())
			ctx := context.Background()

			rec := tasklanetest.NewRecorder(a2a.TaskSendParams{ID: "task-1", Message: a2a.NewTextMessage(a2a.RoleUser, "hello")})
			if err := handler.HandleTask(ctx, rec); err != nil {
				t.Fatalf("HandleTask failed: %v", err)
			}
			if rec.State() != a2a.TaskStateCompleted {
				t.Errorf("expected completed, got %s", rec.State())
			}
			task := rec.Snapshot()
			if len(task.Artifacts) != 1 || a2a.TextOf(&a2a.Message{Parts: task.Artifacts[0].Parts}) != "remote: hello" {
				t.Errorf("unexpected artifacts: %+v", task.Artifacts)
			}
			if _, err := remote.Store.GetTask(ctx, "task-1", nil, tasklane.HistoryLengthAll); err != nil {
				t.Errorf("expected remote task with the local id: %v", err)
			}

			rec = tasklanetest.NewRecorder(a2a.TaskSendParams{ID: "task-2", Message: a2a.NewTextMessage(a2a.RoleUser, "ask")})
			if err := handler.HandleTask(ctx, rec); err != nil {
				t.Fatalf("HandleTask failed: %v", err)
			}
			statuses := rec.Statuses()
			if len(statuses) != 1 || statuses[0].Status.State != a2a.TaskStateInputRequired || !statuses[0].Final {
				t.Errorf("expected final input-required, got %+v", statuses)
			}

			rec = tasklanetest.NewRecorder(a2a.TaskSendParams{ID: "task-3", Message: a2a.NewTextMessage(a2a.RoleUser, "fail")})
			if err := handler.HandleTask(ctx, rec); err != nil {
				t.Fatalf("HandleTask failed: %v", err)
			}
			if rec.State() != a2a.TaskStateFailed {
				t.Errorf("expected the remote failure mirrored, got %s", rec.State())
			}
		})
	}
}

func TestRemoteHandler_CardIsCached(t *testing.T) {
	remote := tasklanetest.NewServer(t, tasklane.HandlerFunc(remoteAgent))
	handler := tasklane.NewRemoteHandler(remote.URL())
	ctx := context.Background()

	first, err := handler.AgentCard(ctx)
	if err != nil {
		t.Fatalf("AgentCard failed: %v", err)
	}
	remote.Close()
	second, err := handler.AgentCard(ctx)
	if err != nil {
		t.Fatalf("expected cached card after the remote went away: %v", err)
	}
	if first != second {
		t.Error("expected the first card to be cached")
	}
}

func TestRemoteHandler_Unreachable(t *testing.T) {
	remote := tasklanetest.NewServer(t, tasklane.HandlerFunc(remoteAgent))
	url := remote.URL()
	remote.Close()

	rec := tasklanetest.NewRecorder(a2a.TaskSendParams{Message: a2a.NewTextMessage(a2a.RoleUser, "hello")})
	if err := tasklane.NewRemoteHandler(url).HandleTask(context.Background(), rec); err == nil {
		t.Fatal("expected error for unreachable remote agent")
	}
}
