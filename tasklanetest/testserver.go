package tasklanetest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mashiike/tasklane"
	"github.com/mashiike/tasklane/transport"
)

// TestServer wraps httptest.Server to serve a tasklane.Handler over the A2A protocol.
type TestServer struct {
	*httptest.Server

	// App is the tasklane server behind the listener
	App *tasklane.Server

	// Manager runs the task lifecycle; tests may inspect or reconfigure it
	Manager *tasklane.TaskManager

	// Store holds the tasks created through the server
	Store tasklane.TaskStore
}

type serverConfig struct {
	store         tasklane.TaskStore
	authenticator transport.Authenticator
	configure     []func(*tasklane.TaskManager)
}

// ServerOption configures a TestServer.
type ServerOption func(*serverConfig)

// WithStore replaces the FileSystemTaskStore under tb.TempDir().
func WithStore(store tasklane.TaskStore) ServerOption {
	return func(c *serverConfig) {
		c.store = store
	}
}

// WithAuthenticator requires every request to authenticate.
func WithAuthenticator(authenticator transport.Authenticator) ServerOption {
	return func(c *serverConfig) {
		c.authenticator = authenticator
	}
}

// WithManager adjusts the TaskManager before the server starts,
// e.g. to enable push notifications on its card.
func WithManager(fn func(*tasklane.TaskManager)) ServerOption {
	return func(c *serverConfig) {
		c.configure = append(c.configure, fn)
	}
}

// NewServer starts a test server for handler. It is closed when the test ends.
//
// Example usage:
//
//	server := tasklanetest.NewServer(t, tasklane.HandlerFunc(handle))
//	client := server.Client()
//	task, err := client.SendTask(ctx, params)
func NewServer(tb testing.TB, handler tasklane.Handler, opts ...ServerOption) *TestServer {
	tb.Helper()
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.store == nil {
		store, err := tasklane.NewFileSystemTaskStore(tb.TempDir())
		if err != nil {
			tb.Fatalf("failed to create FileSystemTaskStore: %v", err)
		}
		cfg.store = store
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := tasklane.NewTaskManager(cfg.store, handler)
	manager.Logger = logger
	manager.LockRetryInterval = 10 * time.Millisecond
	for _, fn := range cfg.configure {
		fn(manager)
	}

	server := &tasklane.Server{
		Manager:       manager,
		Store:         cfg.store,
		Authenticator: cfg.authenticator,
		Logger:        logger,
	}
	ts := &TestServer{
		Server:  httptest.NewServer(server),
		App:     server,
		Manager: manager,
		Store:   cfg.store,
	}
	tb.Cleanup(ts.Close)
	return ts
}

// URL returns the base URL of the test server.
func (s *TestServer) URL() string {
	return s.Server.URL
}

// Close shuts down the test server. It is safe to call more than once.
func (s *TestServer) Close() {
	s.Server.Close()
	_ = s.App.Shutdown(context.Background())
}

// Client creates a transport.Client for this test server.
func (s *TestServer) Client(opts ...transport.ClientOption) *transport.Client {
	return transport.NewClient(s.URL(), opts...)
}

// ClientWithHeaders creates a transport.Client that adds headers to every request.
// Handlers observe them through TaskModifier.RequestContext().Headers.
func (s *TestServer) ClientWithHeaders(headers http.Header, opts ...transport.ClientOption) *transport.Client {
	for key, values := range headers {
		for _, value := range values {
			opts = append(opts, transport.WithClientHeader(key, value))
		}
	}
	return s.Client(opts...)
}
