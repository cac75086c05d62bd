// Package a2a provides the task-oriented Agent-to-Agent (A2A) protocol types used by tasklane.
// It covers the task model and its state machine, the JSON-RPC 2.0 envelope and the streaming events.
package a2a

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// =============================================================================
// BASIC TYPES AND ENUMS
// =============================================================================

// Role represents the role of a message sender
type Role string

const (
	// Role field values
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// IsValid returns true if the role is valid.
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAgent:
		return true
	default:
		return false
	}
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// PartType represents the type of a message or artifact part
type PartType string

const (
	PartTypeText PartType = "text"
	PartTypeFile PartType = "file"
	PartTypeData PartType = "data"
)

// String returns the string representation of the part type.
func (p PartType) String() string {
	return string(p)
}

// TaskState represents the possible states of a Task
type TaskState string

const (
	// Task state values
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateFailed        TaskState = "failed"
)

// transitions lists the states reachable from each non-terminal state.
// Self transitions of non-terminal states are allowed separately.
var transitions = map[TaskState][]TaskState{
	TaskStateSubmitted:     {TaskStateWorking, TaskStateCanceled},
	TaskStateWorking:       {TaskStateInputRequired, TaskStateCompleted, TaskStateFailed, TaskStateCanceled},
	TaskStateInputRequired: {TaskStateWorking, TaskStateCanceled},
}

// IsValid returns true if the task state is valid.
func (state TaskState) IsValid() bool {
	switch state {
	case TaskStateSubmitted, TaskStateWorking, TaskStateInputRequired,
		TaskStateCompleted, TaskStateCanceled, TaskStateFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true if the task state is terminal (final).
func (state TaskState) IsTerminal() bool {
	switch state {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether a task in this state may move to next.
func (state TaskState) CanTransitionTo(next TaskState) bool {
	if state.IsTerminal() || !next.IsValid() {
		return false
	}
	if state == next {
		return true
	}
	return slices.Contains(transitions[state], next)
}

// String returns the string representation of the task state.
func (state TaskState) String() string {
	return string(state)
}

// A2A method names
const (
	MethodSendTask                = "tasks/send"
	MethodSendTaskSubscribe       = "tasks/sendSubscribe"
	MethodGetTask                 = "tasks/get"
	MethodCancelTask              = "tasks/cancel"
	MethodSetTaskPushNotification = "tasks/pushNotification/set"
	MethodGetTaskPushNotification = "tasks/pushNotification/get"
	MethodTaskResubscription      = "tasks/resubscribe"
	MethodListTasks               = "tasks/list"
)

// JSON-RPC error codes
const (
	// Standard JSON-RPC error codes
	ErrorCodeParseError     = -32700
	ErrorCodeInvalidRequest = -32600
	ErrorCodeMethodNotFound = -32601
	ErrorCodeInvalidParams  = -32602
	ErrorCodeInternalError  = -32603

	// A2A specific error codes.
	// -32003 covers both a missing task and a task owned by another caller.
	ErrorCodeTaskNotFound                 = -32003
	ErrorCodeUnsupportedOperation         = -32004
	ErrorCodePushNotificationNotSupported = -32005
	ErrorCodeInvalidStateTransition       = -32006
	ErrorCodeUnauthorized                 = -32007
)

// ErrorCodeText returns the text description for an error code.
func ErrorCodeText(code int) string {
	switch code {
	case ErrorCodeParseError:
		return "Invalid JSON payload"
	case ErrorCodeInvalidRequest:
		return "Request payload validation error"
	case ErrorCodeMethodNotFound:
		return "Method not found"
	case ErrorCodeInvalidParams:
		return "Invalid parameters"
	case ErrorCodeInternalError:
		return "Internal error"
	case ErrorCodeTaskNotFound:
		return "Task not found"
	case ErrorCodeUnsupportedOperation:
		return "This operation is not supported"
	case ErrorCodePushNotificationNotSupported:
		return "Push Notification is not supported"
	case ErrorCodeInvalidStateTransition:
		return "Invalid task state transition"
	case ErrorCodeUnauthorized:
		return "Authentication required"
	default:
		return "Unknown error"
	}
}

// =============================================================================
// JSON-RPC TYPES
// =============================================================================

// JSONRPCRequest represents a JSON-RPC 2.0 Request object.
type JSONRPCRequest struct {
	JSONRpc string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
	ID      interface{} `json:"id"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 Response object.
type JSONRPCResponse struct {
	JSONRpc string        `json:"jsonrpc"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *JSONRPCError `json:"error,omitempty"`
	ID      interface{}   `json:"id"`
}

// JSONRPCError represents a JSON-RPC 2.0 Error object.
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Error implements the error interface for JSONRPCError
func (e *JSONRPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("JSON-RPC error %d: %s (data: %v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("JSON-RPC error %d: %s", e.Code, e.Message)
}

// =============================================================================
// JSON-RPC PARAMETER TYPES
// =============================================================================

// TaskSendParams represents parameters for tasks/send and tasks/sendSubscribe.
type TaskSendParams struct {
	ID                  string                  `json:"id"`
	SessionID           string                  `json:"sessionId,omitempty"`
	Message             Message                 `json:"message"`
	AcceptedOutputModes []string                `json:"acceptedOutputModes,omitempty"`
	PushNotification    *PushNotificationConfig `json:"pushNotification,omitempty"`
	HistoryLength       *int                    `json:"historyLength,omitempty"` // Pointer to distinguish between unset and 0
	Metadata            map[string]any          `json:"metadata,omitempty"`
}

// TaskQueryParams represents parameters for querying a task.
type TaskQueryParams struct {
	ID            string         `json:"id"`
	HistoryLength *int           `json:"historyLength,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// TaskIDParams represents parameters containing only a task ID.
type TaskIDParams struct {
	ID       string         `json:"id"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TaskPushNotificationConfig binds a push notification config to a task.
type TaskPushNotificationConfig struct {
	ID                     string                 `json:"id"`
	PushNotificationConfig PushNotificationConfig `json:"pushNotificationConfig"`
}

// ListOrder is the creation-time ordering used by tasks/list.
type ListOrder string

const (
	ListOrderAsc  ListOrder = "asc"
	ListOrderDesc ListOrder = "desc"
)

// TaskListParams represents parameters for tasks/list.
// Page is 1-based.
type TaskListParams struct {
	Page     int       `json:"page,omitempty"`
	PageSize int       `json:"pageSize,omitempty"`
	Order    ListOrder `json:"order,omitempty"`
}

// Pagination describes the page returned by tasks/list.
type Pagination struct {
	Page     int  `json:"page"`
	PageSize int  `json:"pageSize"`
	Total    *int `json:"total,omitempty"`
}

// TaskListResult is the result of tasks/list.
type TaskListResult struct {
	Items      []Task     `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// =============================================================================
// CORE A2A TYPES
// =============================================================================

// Message represents a single message exchanged between user and agent.
type Message struct {
	Role     Role           `json:"role"`
	Parts    []Part         `json:"parts"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Part represents a part of a message, which can be text, a file, or structured data.
type Part struct {
	Type     PartType       `json:"type"`
	Text     string         `json:"text,omitempty"`
	File     *FileContent   `json:"file,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FileContent represents a file segment within parts.
type FileContent struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Bytes    string `json:"bytes,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// Task represents the state and execution context of a task.
type Task struct {
	ID        string         `json:"id"`
	SessionID string         `json:"sessionId,omitempty"`
	Status    TaskStatus     `json:"status"`
	Artifacts []Artifact     `json:"artifacts,omitempty"`
	History   []Message      `json:"history,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// TaskStatus represents the current state and accompanying message of a task.
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp *string   `json:"timestamp,omitempty"`
}

// Artifact represents an indexed piece of task output.
type Artifact struct {
	Name        string         `json:"name,omitempty"`
	Description string         `json:"description,omitempty"`
	Parts       []Part         `json:"parts"`
	Index       int            `json:"index"`
	Append      *bool          `json:"append,omitempty"`
	LastChunk   *bool          `json:"lastChunk,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// AgentCard conveys key information about an agent.
type AgentCard struct {
	Name               string               `json:"name"`
	Description        string               `json:"description,omitempty"`
	URL                string               `json:"url"`
	Version            string               `json:"version"`
	DocumentationURL   string               `json:"documentationUrl,omitempty"`
	Provider           *AgentProvider       `json:"provider,omitempty"`
	Capabilities       AgentCapabilities    `json:"capabilities"`
	Authentication     *AgentAuthentication `json:"authentication,omitempty"`
	DefaultInputModes  []string             `json:"defaultInputModes"`
	DefaultOutputModes []string             `json:"defaultOutputModes"`
	Skills             []AgentSkill         `json:"skills"`
}

// AgentSkill represents a unit of capability that an agent can perform.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
	InputModes  []string `json:"inputModes,omitempty"`
	OutputModes []string `json:"outputModes,omitempty"`
}

// AgentCapabilities defines optional capabilities supported by an agent.
type AgentCapabilities struct {
	Streaming              bool `json:"streaming,omitempty"`
	PushNotifications      bool `json:"pushNotifications,omitempty"`
	StateTransitionHistory bool `json:"stateTransitionHistory,omitempty"`
}

// AgentProvider represents the service provider of an agent.
type AgentProvider struct {
	Organization string `json:"organization"`
	URL          string `json:"url,omitempty"`
}

// AgentAuthentication lists the authentication schemes an agent accepts.
type AgentAuthentication struct {
	Schemes     []string `json:"schemes"`
	Credentials string   `json:"credentials,omitempty"`
}

// PushNotificationConfig represents configuration for setting up push notifications for task updates.
type PushNotificationConfig struct {
	URL            string                              `json:"url"`
	Token          string                              `json:"token,omitempty"`
	Authentication *PushNotificationAuthenticationInfo `json:"authentication,omitempty"`
}

// PushNotificationAuthenticationInfo defines authentication details for push notifications.
type PushNotificationAuthenticationInfo struct {
	Schemes     []string `json:"schemes"`
	Credentials string   `json:"credentials,omitempty"`
}

// TaskStatusUpdateEvent is sent by server during sendSubscribe or resubscribe requests.
type TaskStatusUpdateEvent struct {
	ID       string         `json:"id"`
	Status   TaskStatus     `json:"status"`
	Final    bool           `json:"final"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TaskArtifactUpdateEvent is sent by server during sendSubscribe or resubscribe requests.
type TaskArtifactUpdateEvent struct {
	ID       string         `json:"id"`
	Artifact Artifact       `json:"artifact"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// TaskEvent carries exactly one of a status update or an artifact update.
// Its JSON form is the carried event itself.
type TaskEvent struct {
	Status   *TaskStatusUpdateEvent
	Artifact *TaskArtifactUpdateEvent
}

// NewStatusEvent wraps a status update.
func NewStatusEvent(taskID string, status TaskStatus, final bool) TaskEvent {
	return TaskEvent{Status: &TaskStatusUpdateEvent{ID: taskID, Status: status, Final: final}}
}

// NewArtifactEvent wraps an artifact update.
func NewArtifactEvent(taskID string, artifact Artifact) TaskEvent {
	return TaskEvent{Artifact: &TaskArtifactUpdateEvent{ID: taskID, Artifact: artifact}}
}

// TaskID returns the id of the task the event belongs to.
func (e TaskEvent) TaskID() string {
	switch {
	case e.Status != nil:
		return e.Status.ID
	case e.Artifact != nil:
		return e.Artifact.ID
	default:
		return ""
	}
}

// IsFinal reports whether the event is a status update that ends the stream.
func (e TaskEvent) IsFinal() bool {
	return e.Status != nil && e.Status.Final
}

// MarshalJSON implements json.Marshaler.
func (e TaskEvent) MarshalJSON() ([]byte, error) {
	switch {
	case e.Status != nil && e.Artifact != nil:
		return nil, fmt.Errorf("task event carries both status and artifact")
	case e.Status != nil:
		return json.Marshal(e.Status)
	case e.Artifact != nil:
		return json.Marshal(e.Artifact)
	default:
		return nil, fmt.Errorf("task event is empty")
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (e *TaskEvent) UnmarshalJSON(data []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	*e = TaskEvent{}
	if _, ok := probe["artifact"]; ok {
		var ev TaskArtifactUpdateEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		e.Artifact = &ev
		return nil
	}
	if _, ok := probe["status"]; ok {
		var ev TaskStatusUpdateEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		e.Status = &ev
		return nil
	}
	return fmt.Errorf("unknown task event: neither status nor artifact present")
}

// =============================================================================
// ARTIFACT MERGE
// =============================================================================

// UpsertArtifacts merges artifacts into the task by index.
// An existing index is replaced, or extended when the update sets append.
// New indices are inserted so that artifacts stay ordered by index.
func (t *Task) UpsertArtifacts(artifacts ...Artifact) {
	for _, update := range artifacts {
		pos, found := slices.BinarySearchFunc(t.Artifacts, update.Index, func(a Artifact, index int) int {
			return a.Index - index
		})
		if !found {
			t.Artifacts = slices.Insert(t.Artifacts, pos, update)
			continue
		}
		if update.Append != nil && *update.Append {
			current := t.Artifacts[pos]
			current.Parts = append(slices.Clone(current.Parts), update.Parts...)
			current.LastChunk = update.LastChunk
			if update.Metadata != nil {
				current.Metadata = update.Metadata
			}
			t.Artifacts[pos] = current
			continue
		}
		t.Artifacts[pos] = update
	}
}

// TrimHistory keeps the last n messages of history.
// A negative n keeps everything.
func (t *Task) TrimHistory(n int) {
	if n < 0 || len(t.History) <= n {
		return
	}
	if n == 0 {
		t.History = nil
		return
	}
	t.History = slices.Clone(t.History[len(t.History)-n:])
}

// =============================================================================
// VALIDATION METHODS
// =============================================================================

// Validate validates a Message structure.
func (m *Message) Validate() error {
	if m.Role == "" {
		return fmt.Errorf("role is required")
	}

	if !m.Role.IsValid() {
		return fmt.Errorf("invalid role %q, must be one of: %s", m.Role, commasJoin(validRoles()))
	}

	if len(m.Parts) == 0 {
		return fmt.Errorf("parts is required and must not be empty")
	}

	for i, part := range m.Parts {
		if err := part.Validate(); err != nil {
			return fmt.Errorf("parts[%d]: %w", i, err)
		}
	}

	return nil
}

// Validate validates a Part structure.
func (p *Part) Validate() error {
	switch p.Type {
	case "":
		return fmt.Errorf("type is required")
	case PartTypeText:
		if p.File != nil || p.Data != nil {
			return fmt.Errorf("text part cannot have file or data fields")
		}
	case PartTypeFile:
		if p.File == nil {
			return fmt.Errorf("file is required for file part")
		}
		if err := p.File.Validate(); err != nil {
			return fmt.Errorf("file: %w", err)
		}
		if p.Text != "" || p.Data != nil {
			return fmt.Errorf("file part cannot have text or data fields")
		}
	case PartTypeData:
		if p.Data == nil {
			return fmt.Errorf("data is required for data part")
		}
		if p.Text != "" || p.File != nil {
			return fmt.Errorf("data part cannot have text or file fields")
		}
	default:
		return fmt.Errorf("invalid part type %q, must be one of: %s", p.Type, commasJoin(validPartTypes()))
	}

	return nil
}

// Validate validates a FileContent structure.
func (f *FileContent) Validate() error {
	hasURI := f.URI != ""
	hasBytes := f.Bytes != ""

	if hasURI && hasBytes {
		return fmt.Errorf("file cannot have both uri and bytes")
	}

	if !hasURI && !hasBytes {
		return fmt.Errorf("file must have either uri or bytes")
	}

	return nil
}

// Validate validates an Artifact structure.
func (a *Artifact) Validate() error {
	if a.Index < 0 {
		return fmt.Errorf("index must not be negative, got %d", a.Index)
	}

	if len(a.Parts) == 0 {
		return fmt.Errorf("parts is required and must not be empty")
	}

	for i, part := range a.Parts {
		if err := part.Validate(); err != nil {
			return fmt.Errorf("parts[%d]: %w", i, err)
		}
	}

	return nil
}

// Validate validates a TaskStatus structure.
func (ts *TaskStatus) Validate() error {
	if ts.State == "" {
		return fmt.Errorf("state is required")
	}

	if !ts.State.IsValid() {
		return fmt.Errorf("invalid task state %q, must be one of: %s", ts.State, commasJoin(validTaskStates()))
	}

	if ts.Message != nil {
		if err := ts.Message.Validate(); err != nil {
			return fmt.Errorf("message: %w", err)
		}
	}

	return nil
}

// Validate validates a PushNotificationConfig structure.
func (c *PushNotificationConfig) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	return nil
}

// Validate validates TaskSendParams.
func (p *TaskSendParams) Validate() error {
	if err := p.Message.Validate(); err != nil {
		return fmt.Errorf("message: %w", err)
	}

	if p.PushNotification != nil {
		if err := p.PushNotification.Validate(); err != nil {
			return fmt.Errorf("pushNotification: %w", err)
		}
	}

	if p.HistoryLength != nil && *p.HistoryLength < 0 {
		return fmt.Errorf("historyLength must not be negative")
	}

	return nil
}

// Validate validates a JSON-RPC request.
func (r *JSONRPCRequest) Validate() error {
	if r.JSONRpc != "2.0" {
		return fmt.Errorf("jsonrpc must be \"2.0\", got %q", r.JSONRpc)
	}

	if r.Method == "" {
		return fmt.Errorf("method is required")
	}

	if !isValidMethod(r.Method) {
		return fmt.Errorf("invalid A2A method %q, must be one of: %s", r.Method, strings.Join(validMethods(), ", "))
	}

	if r.ID == nil {
		return fmt.Errorf("id is required")
	}

	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func isValidMethod(method string) bool {
	return slices.Contains(validMethods(), method)
}

func validMethods() []string {
	return []string{
		MethodSendTask, MethodSendTaskSubscribe, MethodGetTask,
		MethodCancelTask, MethodTaskResubscription,
		MethodSetTaskPushNotification, MethodGetTaskPushNotification,
		MethodListTasks,
	}
}

func commasJoin[T fmt.Stringer](items []T) string {
	var parts []string
	for _, item := range items {
		parts = append(parts, item.String())
	}
	return strings.Join(parts, ", ")
}

func validRoles() []Role {
	return []Role{RoleUser, RoleAgent}
}

func validPartTypes() []PartType {
	return []PartType{PartTypeText, PartTypeFile, PartTypeData}
}

func validTaskStates() []TaskState {
	return []TaskState{
		TaskStateSubmitted, TaskStateWorking, TaskStateInputRequired,
		TaskStateCompleted, TaskStateCanceled, TaskStateFailed,
	}
}

// =============================================================================
// HELPER CONSTRUCTORS
// =============================================================================

// NewTextPart creates a new text part.
func NewTextPart(text string) Part {
	return Part{
		Type: PartTypeText,
		Text: text,
	}
}

// NewFilePart creates a new file part with URI.
func NewFilePart(uri, name, mimeType string) Part {
	return Part{
		Type: PartTypeFile,
		File: &FileContent{
			URI:      uri,
			Name:     name,
			MimeType: mimeType,
		},
	}
}

// NewDataPart creates a new data part.
func NewDataPart(data map[string]any) Part {
	return Part{
		Type: PartTypeData,
		Data: data,
	}
}

// NewMessage creates a new message.
func NewMessage(role Role, parts ...Part) Message {
	return Message{
		Role:  role,
		Parts: parts,
	}
}

// NewTextMessage creates a message with a single text part.
func NewTextMessage(role Role, text string) Message {
	return NewMessage(role, NewTextPart(text))
}

// NewTaskStatus creates a status stamped with t.
func NewTaskStatus(state TaskState, message *Message, t time.Time) TaskStatus {
	status := TaskStatus{
		State:   state,
		Message: message,
	}
	status.SetTimestamp(t)
	return status
}

// SetTimestamp sets the timestamp for task status.
func (ts *TaskStatus) SetTimestamp(t time.Time) {
	timestamp := t.Format(time.RFC3339)
	ts.Timestamp = &timestamp
}

// GetTimestamp parses and returns the timestamp.
func (ts *TaskStatus) GetTimestamp() (*time.Time, error) {
	if ts.Timestamp == nil {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *ts.Timestamp)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TextOf concatenates the text parts of a message.
func TextOf(m *Message) string {
	if m == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Type == PartTypeText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// =============================================================================
// JSON-RPC CONSTRUCTOR FUNCTIONS
// =============================================================================

// NewJSONRPCError creates a new JSON-RPC error with the specified code and optional data
func NewJSONRPCError(code int, data interface{}) *JSONRPCError {
	return &JSONRPCError{
		Code:    code,
		Message: ErrorCodeText(code),
		Data:    data,
	}
}

// NewJSONRPCErrorWithMessage creates a new JSON-RPC error with a custom message
func NewJSONRPCErrorWithMessage(code int, message string, data interface{}) *JSONRPCError {
	return &JSONRPCError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

func NewJSONRPCInternalError(message string, data interface{}) *JSONRPCError {
	return NewJSONRPCErrorWithMessage(ErrorCodeInternalError, message, data)
}

func NewJSONRPCInvalidParamsError(message string) *JSONRPCError {
	return NewJSONRPCErrorWithMessage(ErrorCodeInvalidParams, message, nil)
}

func NewJSONRPCTaskNotFoundError(taskID string) *JSONRPCError {
	return NewJSONRPCError(ErrorCodeTaskNotFound, map[string]string{"taskId": taskID})
}

// NewJSONRPCRequest creates a new JSON-RPC request.
func NewJSONRPCRequest(method string, params interface{}, id interface{}) JSONRPCRequest {
	return JSONRPCRequest{
		JSONRpc: "2.0",
		Method:  method,
		Params:  params,
		ID:      id,
	}
}

// NewJSONRPCResponse creates a new JSON-RPC success response.
func NewJSONRPCResponse(result interface{}, id interface{}) JSONRPCResponse {
	return JSONRPCResponse{
		JSONRpc: "2.0",
		Result:  result,
		ID:      id,
	}
}

// NewJSONRPCErrorResponse creates a new JSON-RPC error response.
func NewJSONRPCErrorResponse(code int, message string, data interface{}, id interface{}) JSONRPCResponse {
	return JSONRPCResponse{
		JSONRpc: "2.0",
		Error: &JSONRPCError{
			Code:    code,
			Message: message,
			Data:    data,
		},
		ID: id,
	}
}

// NewInternalError creates an internal error response.
func NewInternalError(id interface{}, data interface{}) JSONRPCResponse {
	return NewJSONRPCErrorResponse(ErrorCodeInternalError, ErrorCodeText(ErrorCodeInternalError), data, id)
}
