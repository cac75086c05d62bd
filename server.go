package tasklane

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/fujiwara/ridge"
	"github.com/mashiike/tasklane/transport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultAddr        = ":8080"
	defaultStorageDir  = "/tmp/tasklane"
	defaultMetricsPath = "/metrics"
)

// Server serves a TaskManager over JSON-RPC with sensible defaults,
// similar to http.Server. On the AWS Lambda runtime it serves HTTP events through ridge.
type Server struct {
	// Addr specifies the TCP address for the server to listen on.
	// If empty, TASKLANE_ADDR or ":8080" is used.
	Addr string

	// RPCPath specifies the path of the JSON-RPC endpoint.
	RPCPath string

	// AgentCardPath specifies the path for the agent card endpoint.
	AgentCardPath string

	// MetricsPath specifies where Prometheus metrics are exposed.
	// If empty, TASKLANE_METRICS_PATH or "/metrics" is used.
	MetricsPath string

	// Handler processes tasks. Required unless Manager is set.
	Handler Handler

	// Store specifies the task store.
	// If nil, a FileSystemTaskStore under TASKLANE_STORAGE_DIR or /tmp/tasklane is used.
	Store TaskStore

	// Manager is built from Store and Handler when nil.
	Manager *TaskManager

	// Authenticator specifies the authentication provider for the server.
	// If nil, no authentication is required.
	Authenticator transport.Authenticator

	// Registry receives the task metrics. If nil, a new registry is created.
	Registry *prometheus.Registry

	LambdaOptions []lambda.Option // Options for AWS Lambda integration

	Logger *slog.Logger

	// Internal fields
	httpServer     *http.Server
	mux            *http.ServeMux
	handler        http.Handler
	customHandlers map[string]http.Handler
	middlewares    []func(http.Handler) http.Handler
	initialized    bool
	mu             sync.Mutex
}

// Use adds HTTP middlewares to the server.
// Middlewares are applied to all HTTP requests in the order they are added.
func (s *Server) Use(middlewares ...func(http.Handler) http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.middlewares = append(s.middlewares, middlewares...)
}

// Run starts the server and blocks until the server shuts down.
func (s *Server) Run() error {
	return s.RunWithContext(context.Background())
}

// RunWithContext starts the server with the given context and blocks until
// the server shuts down or the context is cancelled.
func (s *Server) RunWithContext(ctx context.Context) error {
	if err := s.initialize(); err != nil {
		return err
	}

	if ridge.OnLambdaRuntime() {
		return s.runOnLambdaRuntime(ctx)
	}

	errChan := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting server", "addr", s.Addr, "rpcPath", s.RPCPath, "metricsPath", s.MetricsPath)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

func (s *Server) runOnLambdaRuntime(ctx context.Context) error {
	card, err := s.Manager.GetAgentCard(ctx)
	if err != nil {
		return fmt.Errorf("failed to get agent card: %w", err)
	}
	opts := append([]lambda.Option{
		lambda.WithContext(ctx),
	}, s.LambdaOptions...)
	lambda.StartWithOptions(
		func(ctx context.Context, event json.RawMessage) (interface{}, error) {
			req, err := ridge.NewRequest(event)
			if err != nil || req.Method == "" || req.URL.Path == "" {
				s.Logger.ErrorContext(ctx, "Unsupported Lambda event", "payload", string(event))
				return nil, errors.New("unsupported event: only HTTP events are served")
			}
			if card.Capabilities.Streaming {
				w := ridge.NewStreamingResponseWriter()
				go func() {
					defer func() {
						if r := recover(); r != nil {
							s.Logger.ErrorContext(ctx, "Panic in streaming handler", "panic", r)
						}
						w.Close()
					}()
					s.handler.ServeHTTP(w, req.WithContext(ctx))
				}()
				w.Wait()
				return w.Response(), nil
			}
			w := ridge.NewResponseWriter()
			s.handler.ServeHTTP(w, req.WithContext(ctx))
			return w.Response(), nil
		},
		opts...,
	)
	return nil
}

// Shutdown gracefully shuts down the server without interrupting any
// active connections, then closes the task manager.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
		}
	}
	if s.Manager != nil {
		if err := s.Manager.Close(); err != nil {
			errs = append(errs, fmt.Errorf("task manager close error: %w", err))
		}
	}
	return errors.Join(errs...)
}

// ServeHTTP serves a request with the middleware chain applied, initializing the server first.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := s.initialize(); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.handler.ServeHTTP(w, r)
}

// initialize sets up the server with default values if not configured
func (s *Server) initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}

	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Manager == nil && s.Handler == nil {
		return errors.New("Handler field is required when Manager is nil")
	}
	if s.Addr == "" {
		s.Addr = envOr("TASKLANE_ADDR", defaultAddr)
	}
	if s.MetricsPath == "" {
		s.MetricsPath = envOr("TASKLANE_METRICS_PATH", defaultMetricsPath)
	}
	if s.RPCPath == "" {
		s.RPCPath = transport.DefaultRPCPath
	}
	if s.AgentCardPath == "" {
		s.AgentCardPath = transport.DefaultAgentCardPath
	}
	if s.Registry == nil {
		s.Registry = prometheus.NewRegistry()
	}

	if s.Manager == nil {
		if s.Store == nil {
			store, err := NewFileSystemTaskStore(envOr("TASKLANE_STORAGE_DIR", defaultStorageDir))
			if err != nil {
				return fmt.Errorf("failed to create default task store: %w", err)
			}
			s.Store = store
		}
		s.Manager = NewTaskManager(s.Store, s.Handler)
		s.Manager.Logger = s.Logger
	}
	if s.Manager.Metrics == nil {
		metrics, err := NewMetrics(s.Registry)
		if err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		s.Manager.Metrics = metrics
	}

	handlerOptions := []transport.HandlerOption{
		transport.WithRPCPath(s.RPCPath),
		transport.WithAgentCardPath(s.AgentCardPath),
		transport.WithLogger(s.Logger),
		transport.WithErrorMapper(ToJSONRPCError),
	}
	if s.Authenticator != nil {
		handlerOptions = append(handlerOptions, transport.WithAuthenticator(s.Authenticator))
	}
	rpcHandler := transport.NewHandler(s.Manager, handlerOptions...)

	s.mux = http.NewServeMux()
	s.mux.Handle(s.RPCPath, rpcHandler)
	s.mux.Handle(s.AgentCardPath, rpcHandler)
	s.mux.Handle(s.MetricsPath, promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))
	for pattern, customHandler := range s.customHandlers {
		s.mux.Handle(pattern, customHandler)
	}
	s.customHandlers = nil

	s.handler = s.applyMiddleware(s.mux)
	s.httpServer = &http.Server{
		Addr:              s.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 30 * time.Second,
	}
	s.initialized = true
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// isProtectedPattern checks if the pattern conflicts with the served endpoints
func (s *Server) isProtectedPattern(pattern string) bool {
	rpcPath := s.RPCPath
	if rpcPath == "" {
		rpcPath = transport.DefaultRPCPath
	}
	agentCardPath := s.AgentCardPath
	if agentCardPath == "" {
		agentCardPath = transport.DefaultAgentCardPath
	}
	metricsPath := s.MetricsPath
	if metricsPath == "" {
		metricsPath = envOr("TASKLANE_METRICS_PATH", defaultMetricsPath)
	}
	return pattern == rpcPath || pattern == agentCardPath || pattern == metricsPath
}

// Handle registers a handler for the given pattern.
// It panics if the pattern is already registered or conflicts with A2A endpoints.
func (s *Server) Handle(pattern string, handler http.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isProtectedPattern(pattern) {
		panic(fmt.Sprintf("pattern %s conflicts with A2A endpoints", pattern))
	}
	if s.mux != nil {
		s.mux.Handle(pattern, handler)
		return
	}
	if s.customHandlers == nil {
		s.customHandlers = make(map[string]http.Handler)
	}
	if _, exists := s.customHandlers[pattern]; exists {
		panic(fmt.Sprintf("http: multiple registrations for %s", pattern))
	}
	s.customHandlers[pattern] = handler
}

// HandleFunc registers a handler function for the given pattern.
// It panics if the pattern is already registered or conflicts with A2A endpoints.
func (s *Server) HandleFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.Handle(pattern, http.HandlerFunc(handler))
}

// applyMiddleware applies all registered middlewares to the given handler
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	// first registered wraps outermost
	result := handler
	for i := len(s.middlewares) - 1; i >= 0; i-- {
		result = s.middlewares[i](result)
	}
	return result
}
