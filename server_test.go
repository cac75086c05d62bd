package tasklane

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mashiike/tasklane/a2a"
	"github.com/mashiike/tasklane/transport"
)

func newTestServer(t *testing.T, s *Server) *httptest.Server {
	t.Helper()
	if s.Logger == nil {
		s.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		ts.Close()
		if err := s.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown failed: %v", err)
		}
	})
	return ts
}

func TestServer_SendTaskAndMetrics(t *testing.T) {
	s := &Server{
		Handler: completeWithArtifact,
		Store:   NewInMemoryTaskStore(),
	}
	ts := newTestServer(t, s)
	client := transport.NewClient(ts.URL)

	task, err := client.SendTask(context.Background(), sendParams("task-1", "hello"))
	if err != nil {
		t.Fatalf("SendTask failed: %v", err)
	}
	if task.Status.State != a2a.TaskStateCompleted {
		t.Errorf("expected completed, got %s", task.Status.State)
	}

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read metrics: %v", err)
	}
	if !strings.Contains(string(body), "tasklane_tasks_submitted_total 1") {
		t.Errorf("expected submitted counter in metrics output, got:\n%s", body)
	}
	if !strings.Contains(string(body), `tasklane_task_transitions_total{state="completed"} 1`) {
		t.Errorf("expected completed transition in metrics output, got:\n%s", body)
	}
}

func TestServer_ErrorMapping(t *testing.T) {
	s := &Server{
		Handler: completeWithArtifact,
		Store:   NewInMemoryTaskStore(),
	}
	ts := newTestServer(t, s)
	client := transport.NewClient(ts.URL)

	_, err := client.GetTask(context.Background(), a2a.TaskQueryParams{ID: "missing"})
	rpcErr, ok := err.(*a2a.JSONRPCError)
	if !ok {
		t.Fatalf("expected *a2a.JSONRPCError, got %T: %v", err, err)
	}
	if rpcErr.Code != a2a.ErrorCodeTaskNotFound {
		t.Errorf("expected code %d, got %d", a2a.ErrorCodeTaskNotFound, rpcErr.Code)
	}
}

func TestServer_AgentCard(t *testing.T) {
	s := &Server{
		Handler: completeWithArtifact,
		Store:   NewInMemoryTaskStore(),
		RPCPath: "/rpc",
	}
	ts := newTestServer(t, s)

	card, err := transport.NewClient(ts.URL).GetAgentCard(context.Background())
	if err != nil {
		t.Fatalf("GetAgentCard failed: %v", err)
	}
	if card.URL != ts.URL+"/rpc" {
		t.Errorf("expected card url %s/rpc, got %s", ts.URL, card.URL)
	}
	if !card.Capabilities.Streaming {
		t.Error("expected streaming capability")
	}
}

func TestServer_CustomHandlersAndMiddleware(t *testing.T) {
	s := &Server{
		Handler: completeWithArtifact,
		Store:   NewInMemoryTaskStore(),
	}
	s.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	s.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Served-By", "tasklane")
			next.ServeHTTP(w, r)
		})
	})
	ts := newTestServer(t, s)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("X-Served-By"); got != "tasklane" {
		t.Errorf("expected middleware header, got %q", got)
	}
}

func TestServer_HandleProtectedPattern(t *testing.T) {
	for _, pattern := range []string{"/", "/.well-known/agent.json", "/metrics"} {
		t.Run(pattern, func(t *testing.T) {
			s := &Server{Handler: completeWithArtifact}
			defer func() {
				if r := recover(); r == nil {
					t.Errorf("expected panic for %s", pattern)
				}
			}()
			s.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {})
		})
	}
}

func TestServer_RequiresHandler(t *testing.T) {
	s := &Server{}
	if err := s.initialize(); err == nil {
		t.Fatal("expected error without Handler or Manager")
	}
}

func TestServer_DefaultStorageFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TASKLANE_STORAGE_DIR", dir)
	t.Setenv("TASKLANE_ADDR", "127.0.0.1:0")

	s := &Server{Handler: completeWithArtifact, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	if err := s.initialize(); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	defer s.Shutdown(context.Background())

	if s.Addr != "127.0.0.1:0" {
		t.Errorf("expected addr from env, got %s", s.Addr)
	}
	if _, ok := s.Store.(*FileSystemTaskStore); !ok {
		t.Fatalf("expected FileSystemTaskStore, got %T", s.Store)
	}
	if _, err := s.Manager.SendTask(context.Background(), sendParams("task-1", "hello")); err != nil {
		t.Fatalf("SendTask failed: %v", err)
	}
	if _, err := s.Store.GetTask(context.Background(), "task-1", nil, HistoryLengthAll); err != nil {
		t.Errorf("expected task persisted under %s: %v", dir, err)
	}
}
