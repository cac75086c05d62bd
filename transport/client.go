package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mashiike/tasklane/a2a"
)

// ClientOption defines configuration option for Client
type ClientOption func(*clientConfig)

// clientConfig holds internal configuration for Client
type clientConfig struct {
	httpClient    *http.Client
	rpcPath       string
	agentCardPath string
	logger        *slog.Logger
	userAgent     string
	headers       http.Header
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithClientRPCPath sets the JSON-RPC endpoint path (default: "/")
func WithClientRPCPath(path string) ClientOption {
	return func(c *clientConfig) {
		c.rpcPath = path
	}
}

// WithClientAgentCardPath sets the agent card endpoint path (default: "/.well-known/agent.json")
func WithClientAgentCardPath(path string) ClientOption {
	return func(c *clientConfig) {
		c.agentCardPath = path
	}
}

// WithClientLogger sets an optional logger for debug output
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(userAgent string) ClientOption {
	return func(c *clientConfig) {
		c.userAgent = userAgent
	}
}

// WithClientHeader adds a header sent with every request, such as credentials
func WithClientHeader(key, value string) ClientOption {
	return func(c *clientConfig) {
		c.headers.Add(key, value)
	}
}

// WithBearerToken sends Authorization: Bearer token with every request
func WithBearerToken(token string) ClientOption {
	return WithClientHeader("Authorization", "Bearer "+token)
}

// Client is an A2A JSON-RPC client. It implements AgentService against a remote agent.
type Client struct {
	baseURL string
	config  clientConfig
}

var _ AgentService = (*Client)(nil)

// NewClient creates a new A2A JSON-RPC client
func NewClient(baseURL string, options ...ClientOption) *Client {
	config := clientConfig{
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		rpcPath:       DefaultRPCPath,
		agentCardPath: DefaultAgentCardPath,
		logger:        slog.Default(),
		userAgent:     "tasklane-client/1.0",
		headers:       make(http.Header),
	}
	for _, option := range options {
		option(&config)
	}
	return &Client{
		baseURL: baseURL,
		config:  config,
	}
}

// buildURL constructs URL for specific endpoint
func (c *Client) buildURL(endpoint string) (string, error) {
	baseURL, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	baseURL.Path = path.Join(baseURL.Path, endpoint)
	return baseURL.String(), nil
}

func (c *Client) newRPCRequest(ctx context.Context, method string, params any, accept string) (*http.Request, error) {
	reqURL, err := c.buildURL(c.config.rpcPath)
	if err != nil {
		return nil, err
	}
	req := a2a.NewJSONRPCRequest(method, params, uuid.NewString())
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON-RPC request: %w", err)
	}

	c.config.logger.Debug("Sending JSON-RPC request", "method", method, "url", reqURL, "id", req.ID)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	for key, values := range c.config.headers {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	if c.config.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.userAgent)
	}
	return httpReq, nil
}

// call sends a JSON-RPC request and decodes its result into result
func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	httpReq, err := c.newRPCRequest(ctx, method, params, "application/json")
	if err != nil {
		return err
	}
	httpResp, err := c.config.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	c.config.logger.Debug("Received JSON-RPC response", "status", httpResp.StatusCode, "bodySize", len(respBody))

	var resp rawResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return fmt.Errorf("failed to parse JSON-RPC response (HTTP %d): %w", httpResp.StatusCode, err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if err := json.Unmarshal(resp.Result, result); err != nil {
		return fmt.Errorf("failed to parse %s result: %w", method, err)
	}
	return nil
}

// rawResponse is a JSON-RPC response whose result is decoded later
type rawResponse struct {
	JSONRpc string            `json:"jsonrpc"`
	Result  json.RawMessage   `json:"result,omitempty"`
	Error   *a2a.JSONRPCError `json:"error,omitempty"`
	ID      any               `json:"id"`
}

// SendTask sends a message using tasks/send
func (c *Client) SendTask(ctx context.Context, params a2a.TaskSendParams) (*a2a.Task, error) {
	var task a2a.Task
	if err := c.call(ctx, a2a.MethodSendTask, params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// GetTask retrieves a task using tasks/get
func (c *Client) GetTask(ctx context.Context, params a2a.TaskQueryParams) (*a2a.Task, error) {
	var task a2a.Task
	if err := c.call(ctx, a2a.MethodGetTask, params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTasks lists tasks using tasks/list
func (c *Client) ListTasks(ctx context.Context, params a2a.TaskListParams) (*a2a.TaskListResult, error) {
	var result a2a.TaskListResult
	if err := c.call(ctx, a2a.MethodListTasks, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelTask cancels a task using tasks/cancel
func (c *Client) CancelTask(ctx context.Context, params a2a.TaskIDParams) (*a2a.Task, error) {
	var task a2a.Task
	if err := c.call(ctx, a2a.MethodCancelTask, params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// SetTaskPushNotification sets the push notification config of a task
func (c *Client) SetTaskPushNotification(ctx context.Context, params a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	var result a2a.TaskPushNotificationConfig
	if err := c.call(ctx, a2a.MethodSetTaskPushNotification, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTaskPushNotification gets the push notification config of a task
func (c *Client) GetTaskPushNotification(ctx context.Context, params a2a.TaskIDParams) (*a2a.TaskPushNotificationConfig, error) {
	var result a2a.TaskPushNotificationConfig
	if err := c.call(ctx, a2a.MethodGetTaskPushNotification, params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SendTaskStreaming sends a message using tasks/sendSubscribe and streams the task events
func (c *Client) SendTaskStreaming(ctx context.Context, params a2a.TaskSendParams) (<-chan a2a.TaskEvent, error) {
	return c.stream(ctx, a2a.MethodSendTaskSubscribe, params)
}

// ResubscribeToTask attaches to a running task using tasks/resubscribe
func (c *Client) ResubscribeToTask(ctx context.Context, params a2a.TaskIDParams) (<-chan a2a.TaskEvent, error) {
	return c.stream(ctx, a2a.MethodTaskResubscription, params)
}

// stream opens an SSE request. An error sent before the first event is returned
// directly; later errors end the stream and are logged.
func (c *Client) stream(ctx context.Context, method string, params any) (<-chan a2a.TaskEvent, error) {
	httpReq, err := c.newRPCRequest(ctx, method, params, "text/event-stream")
	if err != nil {
		return nil, err
	}
	// the overall client timeout would cut long streams
	httpClient := *c.config.httpClient
	httpClient.Timeout = 0
	httpResp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	if !strings.HasPrefix(httpResp.Header.Get("Content-Type"), "text/event-stream") {
		defer httpResp.Body.Close()
		var resp rawResponse
		if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
			return nil, fmt.Errorf("unexpected %s response (HTTP %d): %w", method, httpResp.StatusCode, err)
		}
		if resp.Error != nil {
			return nil, resp.Error
		}
		return nil, fmt.Errorf("unexpected non-streaming %s response", method)
	}

	reader := newSSEReader(httpResp.Body)
	first, err := reader.next()
	if err != nil {
		httpResp.Body.Close()
		if err == io.EOF {
			ch := make(chan a2a.TaskEvent)
			close(ch)
			return ch, nil
		}
		return nil, err
	}

	ch := make(chan a2a.TaskEvent)
	go func() {
		defer close(ch)
		defer httpResp.Body.Close()
		event := first
		for {
			select {
			case ch <- event:
			case <-ctx.Done():
				return
			}
			if event.IsFinal() {
				return
			}
			event, err = reader.next()
			if err != nil {
				if err != io.EOF && ctx.Err() == nil {
					c.config.logger.Warn("Event stream ended with error", "error", err, "method", method)
				}
				return
			}
		}
	}()
	return ch, nil
}

// GetAgentCard retrieves the agent card
func (c *Client) GetAgentCard(ctx context.Context) (*a2a.AgentCard, error) {
	cardURL, err := c.buildURL(c.config.agentCardPath)
	if err != nil {
		return nil, err
	}
	c.config.logger.Debug("Fetching agent card", "url", cardURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, cardURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if c.config.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.config.userAgent)
	}

	httpResp, err := c.config.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent card request failed with status %d", httpResp.StatusCode)
	}
	var agentCard a2a.AgentCard
	if err := json.NewDecoder(httpResp.Body).Decode(&agentCard); err != nil {
		return nil, fmt.Errorf("failed to parse agent card: %w", err)
	}
	return &agentCard, nil
}

// sseReader decodes the data frames written by Handler
type sseReader struct {
	scanner *bufio.Scanner
}

func newSSEReader(r io.Reader) *sseReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &sseReader{scanner: scanner}
}

// next returns the next event, a *a2a.JSONRPCError sent by the server, or io.EOF
func (s *sseReader) next() (a2a.TaskEvent, error) {
	var data strings.Builder
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if line == "" {
			if data.Len() == 0 {
				continue
			}
			return decodeSSEData(data.String())
		}
		if payload, ok := strings.CutPrefix(line, "data:"); ok {
			data.WriteString(strings.TrimPrefix(payload, " "))
		}
	}
	if err := s.scanner.Err(); err != nil {
		return a2a.TaskEvent{}, fmt.Errorf("failed to read event stream: %w", err)
	}
	if data.Len() > 0 {
		return decodeSSEData(data.String())
	}
	return a2a.TaskEvent{}, io.EOF
}

func decodeSSEData(data string) (a2a.TaskEvent, error) {
	var resp rawResponse
	if err := json.Unmarshal([]byte(data), &resp); err != nil {
		return a2a.TaskEvent{}, fmt.Errorf("failed to parse event: %w", err)
	}
	if resp.Error != nil {
		return a2a.TaskEvent{}, resp.Error
	}
	var event a2a.TaskEvent
	if err := json.Unmarshal(resp.Result, &event); err != nil {
		return a2a.TaskEvent{}, fmt.Errorf("failed to parse event: %w", err)
	}
	return event, nil
}
