package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/mashiike/tasklane/a2a"
)

const (
	// DefaultRPCPath is the default JSON-RPC endpoint path
	DefaultRPCPath = "/"
	// DefaultAgentCardPath is the default agent card endpoint path
	DefaultAgentCardPath = "/.well-known/agent.json"
)

// JSONRPCMethodHandler defines the signature for JSON-RPC method handlers
type JSONRPCMethodHandler func(ctx context.Context, params json.RawMessage) (any, error)

// ErrorMapper converts an error returned by the AgentService into a JSON-RPC error.
// taskID is the id of the task the request referred to, if any.
type ErrorMapper func(err error, taskID string) *a2a.JSONRPCError

// HandlerOption defines configuration option for Handler
type HandlerOption func(*handlerConfig)

// handlerConfig holds internal configuration for Handler
type handlerConfig struct {
	rpcPath              string
	agentCardPath        string
	agentCardCacheMaxAge int
	logger               *slog.Logger
	authenticator        Authenticator
	errorMapper          ErrorMapper
}

// WithRPCPath sets the JSON-RPC endpoint path (default: "/")
func WithRPCPath(path string) HandlerOption {
	return func(c *handlerConfig) {
		c.rpcPath = path
	}
}

// WithAgentCardPath sets the agent card endpoint path (default: "/.well-known/agent.json")
func WithAgentCardPath(path string) HandlerOption {
	return func(c *handlerConfig) {
		c.agentCardPath = path
	}
}

// WithAgentCardCacheMaxAge sets cache max-age for agent card in seconds (default: 3600)
func WithAgentCardCacheMaxAge(seconds int) HandlerOption {
	return func(c *handlerConfig) {
		c.agentCardCacheMaxAge = seconds
	}
}

// WithAuthenticator sets the authenticator for the handler
func WithAuthenticator(auth Authenticator) HandlerOption {
	return func(c *handlerConfig) {
		c.authenticator = auth
	}
}

// WithLogger sets an optional logger for debug output
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(c *handlerConfig) {
		c.logger = logger
	}
}

// WithErrorMapper sets how service errors become JSON-RPC errors.
// By default only *a2a.JSONRPCError is preserved and everything else is an internal error.
func WithErrorMapper(mapper ErrorMapper) HandlerOption {
	return func(c *handlerConfig) {
		c.errorMapper = mapper
	}
}

// methodDescriptor represents an A2A method with its properties and handler
type methodDescriptor struct {
	method    string                                                                                 // Method name (e.g., "tasks/send")
	mediaType string                                                                                 // Response media type ("application/json" or "text/event-stream")
	handler   func(ctx context.Context, params json.RawMessage, w http.ResponseWriter, id any) error // Handler function
}

// Handler wraps an AgentService and provides JSON-RPC over HTTP handling
type Handler struct {
	mu             sync.RWMutex
	service        AgentService
	methodRegistry map[string]methodDescriptor
	config         handlerConfig
}

// NewHandler creates a new A2A JSON-RPC handler with options
func NewHandler(service AgentService, options ...HandlerOption) *Handler {
	config := handlerConfig{
		rpcPath:              DefaultRPCPath,
		agentCardPath:        DefaultAgentCardPath,
		agentCardCacheMaxAge: 3600,
		logger:               slog.Default(),
		errorMapper:          defaultErrorMapper,
	}
	for _, option := range options {
		option(&config)
	}

	h := &Handler{
		service: service,
		config:  config,
	}
	h.initMethodRegistry()
	return h
}

func defaultErrorMapper(err error, taskID string) *a2a.JSONRPCError {
	var rpcErr *a2a.JSONRPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return a2a.NewJSONRPCInternalError(a2a.ErrorCodeText(a2a.ErrorCodeInternalError), err.Error())
}

// initMethodRegistry initializes the method registry with all supported A2A methods
func (h *Handler) initMethodRegistry() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.methodRegistry = make(map[string]methodDescriptor)

	h.registerJSONMethod(a2a.MethodSendTask, h.handleSendTask)
	h.registerJSONMethod(a2a.MethodGetTask, h.handleGetTask)
	h.registerJSONMethod(a2a.MethodListTasks, h.handleListTasks)
	h.registerJSONMethod(a2a.MethodCancelTask, h.handleCancelTask)
	h.registerJSONMethod(a2a.MethodSetTaskPushNotification, h.handleSetTaskPushNotification)
	h.registerJSONMethod(a2a.MethodGetTaskPushNotification, h.handleGetTaskPushNotification)

	h.registerStreamMethod(a2a.MethodSendTaskSubscribe, h.handleSendTaskSubscribe)
	h.registerStreamMethod(a2a.MethodTaskResubscription, h.handleTaskResubscribe)
}

// RegisterMethod registers an additional JSON-RPC method
func (h *Handler) RegisterMethod(method string, handler JSONRPCMethodHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.methodRegistry[method]; exists {
		panic(fmt.Sprintf("method %s already registered", method))
	}
	h.registerJSONMethod(method, handler)
}

// registerJSONMethod registers a JSON-RPC method (internal use)
func (h *Handler) registerJSONMethod(method string, handler JSONRPCMethodHandler) {
	wrappedHandler := func(ctx context.Context, params json.RawMessage, w http.ResponseWriter, id any) error {
		result, err := handler(ctx, params)
		if err != nil {
			return err
		}
		h.writeSuccessResponse(w, id, result)
		return nil
	}

	h.methodRegistry[method] = methodDescriptor{
		method:    method,
		mediaType: "application/json",
		handler:   wrappedHandler,
	}
}

// registerStreamMethod registers a streaming method (internal use only)
func (h *Handler) registerStreamMethod(method string, handler func(ctx context.Context, params json.RawMessage, w http.ResponseWriter, id any) error) {
	h.methodRegistry[method] = methodDescriptor{
		method:    method,
		mediaType: "text/event-stream",
		handler:   handler,
	}
}

// ServeHTTP implements http.Handler interface
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Agent card is served without authentication
	if r.Method == http.MethodGet && r.URL.Path == h.config.agentCardPath {
		h.config.logger.Debug("Handling agent card request", "path", r.URL.Path)
		h.handleWellKnownAgentCard(w, r)
		return
	}

	if r.URL.Path != h.config.rpcPath {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.config.authenticator != nil {
		newReq, err := h.config.authenticator.Authenticate(r.Context(), r)
		if err != nil {
			h.writeAuthError(w, err)
			return
		}
		r = newReq
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeErrorResponse(w, nil, a2a.NewJSONRPCError(a2a.ErrorCodeParseError, nil))
		return
	}

	var req a2a.JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.writeErrorResponse(w, nil, a2a.NewJSONRPCError(a2a.ErrorCodeParseError, err.Error()))
		return
	}
	if req.JSONRpc != "2.0" || req.Method == "" {
		h.writeErrorResponse(w, req.ID, a2a.NewJSONRPCError(a2a.ErrorCodeInvalidRequest, nil))
		return
	}

	ctx := WithHTTPHeaders(r.Context(), r.Header.Clone())
	h.routeMethodByRegistry(ctx, req, w, r.Header.Get("Accept"))
}

// clientAcceptsSSE determines if the client accepts Server-Sent Events.
// Broad media ranges count only for methods that stream.
func clientAcceptsSSE(acceptHeader string, forValidSSEMethod bool) bool {
	if strings.Contains(acceptHeader, "text/event-stream") {
		return true
	}
	if forValidSSEMethod {
		return acceptHeader == "" || strings.Contains(acceptHeader, "text/*") || strings.Contains(acceptHeader, "*/*")
	}
	return false
}

// routeMethodByRegistry routes the method using the method registry
func (h *Handler) routeMethodByRegistry(ctx context.Context, req a2a.JSONRPCRequest, w http.ResponseWriter, acceptHeader string) {
	h.mu.RLock()
	entity, exists := h.methodRegistry[req.Method]
	h.mu.RUnlock()

	if !exists {
		rpcErr := a2a.NewJSONRPCError(a2a.ErrorCodeMethodNotFound, nil)
		if clientAcceptsSSE(acceptHeader, false) {
			h.setupSSEHeaders(w)
			h.writeSSEError(w, req.ID, rpcErr)
		} else {
			h.writeErrorResponse(w, req.ID, rpcErr)
		}
		return
	}

	isSSEMethod := entity.mediaType == "text/event-stream"
	if isSSEMethod && !clientAcceptsSSE(acceptHeader, true) {
		h.writeErrorResponse(w, req.ID, a2a.NewJSONRPCErrorWithMessage(a2a.ErrorCodeInvalidRequest, "Streaming methods require Accept: text/event-stream", nil))
		return
	}

	paramsRaw, err := json.Marshal(req.Params)
	if err != nil {
		h.writeError(w, req.ID, isSSEMethod, a2a.NewJSONRPCError(a2a.ErrorCodeInvalidParams, err.Error()))
		return
	}

	if err := entity.handler(ctx, paramsRaw, w, req.ID); err != nil {
		h.writeError(w, req.ID, isSSEMethod, h.mapError(err, paramsRaw))
	}
}

// mapError converts err with the configured mapper, passing the task id found in params
func (h *Handler) mapError(err error, params json.RawMessage) *a2a.JSONRPCError {
	var ref struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(params, &ref)
	rpcErr := h.config.errorMapper(err, ref.ID)
	if rpcErr == nil {
		rpcErr = defaultErrorMapper(err, ref.ID)
	}
	if rpcErr.Code == a2a.ErrorCodeInternalError {
		h.config.logger.Error("Request failed", "error", err, "taskID", ref.ID)
	}
	return rpcErr
}

func (h *Handler) writeError(w http.ResponseWriter, id any, sse bool, rpcErr *a2a.JSONRPCError) {
	if sse {
		h.setupSSEHeaders(w)
		h.writeSSEError(w, id, rpcErr)
		return
	}
	h.writeErrorResponse(w, id, rpcErr)
}

func decodeParams(params json.RawMessage, v any, what string) error {
	if err := json.Unmarshal(params, v); err != nil {
		return a2a.NewJSONRPCInvalidParamsError(fmt.Sprintf("Failed to parse %s parameters", what))
	}
	return nil
}

// handleSendTask handles tasks/send
func (h *Handler) handleSendTask(ctx context.Context, params json.RawMessage) (any, error) {
	var req a2a.TaskSendParams
	if err := decodeParams(params, &req, "task send"); err != nil {
		return nil, err
	}
	return h.service.SendTask(ctx, req)
}

// handleGetTask handles tasks/get
func (h *Handler) handleGetTask(ctx context.Context, params json.RawMessage) (any, error) {
	var req a2a.TaskQueryParams
	if err := decodeParams(params, &req, "task query"); err != nil {
		return nil, err
	}
	return h.service.GetTask(ctx, req)
}

// handleListTasks handles tasks/list
func (h *Handler) handleListTasks(ctx context.Context, params json.RawMessage) (any, error) {
	var req a2a.TaskListParams
	if err := decodeParams(params, &req, "task list"); err != nil {
		return nil, err
	}
	return h.service.ListTasks(ctx, req)
}

// handleCancelTask handles tasks/cancel
func (h *Handler) handleCancelTask(ctx context.Context, params json.RawMessage) (any, error) {
	var req a2a.TaskIDParams
	if err := decodeParams(params, &req, "task ID"); err != nil {
		return nil, err
	}
	return h.service.CancelTask(ctx, req)
}

// handleSetTaskPushNotification handles tasks/pushNotification/set
func (h *Handler) handleSetTaskPushNotification(ctx context.Context, params json.RawMessage) (any, error) {
	var req a2a.TaskPushNotificationConfig
	if err := decodeParams(params, &req, "push notification config"); err != nil {
		return nil, err
	}
	return h.service.SetTaskPushNotification(ctx, req)
}

// handleGetTaskPushNotification handles tasks/pushNotification/get
func (h *Handler) handleGetTaskPushNotification(ctx context.Context, params json.RawMessage) (any, error) {
	var req a2a.TaskIDParams
	if err := decodeParams(params, &req, "task ID"); err != nil {
		return nil, err
	}
	return h.service.GetTaskPushNotification(ctx, req)
}

// handleSendTaskSubscribe handles tasks/sendSubscribe with SSE
func (h *Handler) handleSendTaskSubscribe(ctx context.Context, params json.RawMessage, w http.ResponseWriter, id any) error {
	var req a2a.TaskSendParams
	if err := decodeParams(params, &req, "task send"); err != nil {
		return err
	}
	streamChan, err := h.service.SendTaskStreaming(ctx, req)
	if err != nil {
		return err
	}
	h.setupSSEHeaders(w)
	return writeSSEStream(w, id, streamChan)
}

// handleTaskResubscribe handles tasks/resubscribe with SSE
func (h *Handler) handleTaskResubscribe(ctx context.Context, params json.RawMessage, w http.ResponseWriter, id any) error {
	var req a2a.TaskIDParams
	if err := decodeParams(params, &req, "task ID"); err != nil {
		return err
	}
	streamChan, err := h.service.ResubscribeToTask(ctx, req)
	if err != nil {
		return err
	}
	h.setupSSEHeaders(w)
	return writeSSEStream(w, id, streamChan)
}

// handleWellKnownAgentCard handles GET requests for agent card endpoint
func (h *Handler) handleWellKnownAgentCard(w http.ResponseWriter, r *http.Request) {
	agentCard, err := h.service.GetAgentCard(r.Context())
	if err != nil {
		h.config.logger.Error("Failed to get agent card", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	card := *agentCard

	if card.URL == "" || card.URL == PlaceholderURL {
		card.URL = h.buildRequestBaseEndpoint(r)
	}
	if finalURL, err := url.JoinPath(card.URL, h.config.rpcPath); err == nil {
		card.URL = finalURL
	}
	if h.config.authenticator != nil {
		card.Authentication = &a2a.AgentAuthentication{
			Schemes: h.config.authenticator.Schemes(),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if h.config.agentCardCacheMaxAge > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", h.config.agentCardCacheMaxAge))
	}
	if err := json.NewEncoder(w).Encode(card); err != nil {
		h.config.logger.Error("failed to write agent card", "error", err)
	}
}

// buildRequestBaseEndpoint constructs base endpoint from HTTP request considering proxies
func (h *Handler) buildRequestBaseEndpoint(r *http.Request) string {
	scheme := "http"
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	} else if r.TLS != nil {
		scheme = "https"
	}

	host := r.Host
	if forwarded := r.Header.Get("X-Forwarded-Host"); forwarded != "" {
		host = forwarded
	}
	return fmt.Sprintf("%s://%s/", scheme, host)
}

// writeSuccessResponse writes a successful JSON-RPC response
func (h *Handler) writeSuccessResponse(w http.ResponseWriter, id any, result any) {
	resp := a2a.NewJSONRPCResponse(result, id)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.config.logger.Error("failed to write response", "error", err)
	}
}

// writeErrorResponse writes an error JSON-RPC response
func (h *Handler) writeErrorResponse(w http.ResponseWriter, id any, rpcErr *a2a.JSONRPCError) {
	resp := a2a.NewJSONRPCErrorResponse(rpcErr.Code, rpcErr.Message, rpcErr.Data, id)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK) // JSON-RPC errors are still HTTP 200
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.config.logger.Error("failed to write response", "error", err)
	}
}

// setupSSEHeaders sets up Server-Sent Events headers
func (h *Handler) setupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

// writeSSEError writes an error as SSE event
func (h *Handler) writeSSEError(w http.ResponseWriter, id any, rpcErr *a2a.JSONRPCError) {
	resp := a2a.NewJSONRPCErrorResponse(rpcErr.Code, rpcErr.Message, rpcErr.Data, id)
	respBytes, err := json.Marshal(resp)
	if err != nil {
		h.config.logger.Error("failed to marshal SSE error response", "error", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", respBytes)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// canHandle checks if the handler can process the request
func (h *Handler) canHandle(r *http.Request) bool {
	return (r.Method == http.MethodGet && r.URL.Path == h.config.agentCardPath) ||
		(r.Method == http.MethodPost && r.URL.Path == h.config.rpcPath)
}

// A2AMiddleware creates middleware that handles A2A requests and passes others to next handler
func A2AMiddleware(service AgentService, options ...HandlerOption) func(http.Handler) http.Handler {
	a2aHandler := NewHandler(service, options...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a2aHandler.canHandle(r) {
				a2aHandler.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeSSEStream writes every event from the channel as a JSON-RPC response in its own SSE data frame
func writeSSEStream(w http.ResponseWriter, id any, streamChan <-chan a2a.TaskEvent) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return fmt.Errorf("streaming unsupported")
	}
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for event := range streamChan {
		respBytes, err := json.Marshal(a2a.NewJSONRPCResponse(event, id))
		if err != nil {
			errorBytes, err := json.Marshal(a2a.NewInternalError(id, err.Error()))
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "data: %s\n\n", errorBytes)
			flusher.Flush()
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", respBytes)
		flusher.Flush()
	}
	return nil
}

// writeAuthError writes an authentication error response
func (h *Handler) writeAuthError(w http.ResponseWriter, err error) {
	message := "Authentication required"
	var data any
	var authErr *AuthError
	if errors.As(err, &authErr) {
		message = authErr.Message
		data = map[string]any{
			"code":   authErr.Code,
			"scheme": authErr.Scheme,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	resp := a2a.NewJSONRPCErrorResponse(a2a.ErrorCodeUnauthorized, message, data, nil)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.config.logger.Error("failed to write response", "error", err)
	}
}
