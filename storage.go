// Package tasklane provides a runtime for the A2A task lifecycle:
// persisting tasks, running handlers against them and streaming their progress to callers.
package tasklane

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/Songmu/flextime"
	"github.com/mashiike/tasklane/a2a"
)

//go:generate go tool mockgen -source=storage.go -destination=mock_storage_test.go -package=tasklane

// Storage constants
const (
	// HistoryLengthAll specifies that GetTask should return all history
	HistoryLengthAll = -1

	// DefaultPageSize is used by ListTasks when the page size is not positive
	DefaultPageSize = 20
)

// StoredTask is a task together with the bookkeeping a TaskStore keeps about it.
type StoredTask struct {
	ID               string                      `json:"id"`
	CallerID         *string                     `json:"callerId,omitempty"`
	Task             a2a.Task                    `json:"task"`
	PushNotification *a2a.PushNotificationConfig `json:"pushNotification,omitempty"`
	CreatedAt        time.Time                   `json:"createdAt"`
	UpdatedAt        time.Time                   `json:"updatedAt"`
}

// TaskPatch is a partial update applied atomically by TaskStore.UpdateTask.
//
//   - Status replaces the current status after the transition check
//   - Artifacts are merged by index
//   - Messages are appended to history
//   - PushNotification replaces the current config
//   - Metadata is merged key by key
type TaskPatch struct {
	Status           *a2a.TaskStatus
	Artifacts        []a2a.Artifact
	Messages         []a2a.Message
	PushNotification *a2a.PushNotificationConfig
	Metadata         map[string]any
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Status == nil && len(p.Artifacts) == 0 && len(p.Messages) == 0 &&
		p.PushNotification == nil && len(p.Metadata) == 0
}

// SortOrder is the creation-time ordering of ListTasks.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ListTasksParams selects a page of tasks.
type ListTasksParams struct {
	Page     int // 1-based
	PageSize int
	Order    SortOrder
	CallerID *string
}

// Pagination describes a returned page.
type Pagination struct {
	Page     int
	PageSize int
	Total    *int
}

// Page is one page of results.
type Page[T any] struct {
	Items      []T
	Pagination Pagination
}

// TaskStore persists tasks.
//
// Every operation takes the id of the calling principal. A nil callerID is a trusted
// internal caller and skips the ownership check. A task owned by someone else is
// reported as ErrTaskNotFound so that its existence is not revealed.
//
// Implementations should return well-defined errors for consistent handling:
//   - ErrTaskNotFound: when a task does not exist or is not visible to the caller
//   - ErrTaskConflict: when creating a task whose id already exists
//   - ErrInvalidStateTransition: when a patch violates the task state machine
//   - ErrConcurrentUpdate: when an optimistic update gives up after repeated conflicts
type TaskStore interface {
	CreateTask(ctx context.Context, task *a2a.Task, callerID *string) (*StoredTask, error)
	// UpsertTask returns the stored task unchanged when params.ID exists,
	// otherwise it creates a submitted task whose history is the params message.
	UpsertTask(ctx context.Context, params a2a.TaskSendParams, callerID *string) (*StoredTask, error)
	GetTask(ctx context.Context, taskID string, callerID *string, historyLength int) (*StoredTask, error)
	// UpdateTask applies patch atomically; nothing is written when it fails.
	UpdateTask(ctx context.Context, taskID string, callerID *string, patch TaskPatch) (*StoredTask, error)
	ListTasks(ctx context.Context, params ListTasksParams) (*Page[*StoredTask], error)
}

// NewStoredTask builds the envelope for a task that is about to be created.
func NewStoredTask(task *a2a.Task, callerID *string) (*StoredTask, error) {
	if task == nil || task.ID == "" {
		return nil, fmt.Errorf("task id is required")
	}
	now := flextime.Now()
	stored := &StoredTask{
		ID:        task.ID,
		CallerID:  cloneString(callerID),
		CreatedAt: now,
		UpdatedAt: now,
	}
	cloned, err := cloneValue(*task)
	if err != nil {
		return nil, err
	}
	stored.Task = cloned
	// stored artifacts stay ordered by index with one slot per index
	artifacts := stored.Task.Artifacts
	stored.Task.Artifacts = nil
	stored.Task.UpsertArtifacts(artifacts...)
	if stored.Task.Status.State == "" {
		stored.Task.Status = a2a.NewTaskStatus(a2a.TaskStateSubmitted, nil, now)
	}
	return stored, nil
}

// NewTaskFromParams builds the submitted task created by UpsertTask.
func NewTaskFromParams(params a2a.TaskSendParams) *a2a.Task {
	return &a2a.Task{
		ID:        params.ID,
		SessionID: params.SessionID,
		Status:    a2a.NewTaskStatus(a2a.TaskStateSubmitted, nil, flextime.Now()),
		History:   []a2a.Message{params.Message},
		Metadata:  maps.Clone(params.Metadata),
	}
}

// applyPatch mutates stored with patch, or returns an error leaving it partially modified.
// Callers apply patches to a private copy.
func applyPatch(stored *StoredTask, patch TaskPatch) error {
	if patch.Status != nil {
		from := stored.Task.Status.State
		if !from.CanTransitionTo(patch.Status.State) {
			return &StateTransitionError{From: from, To: patch.Status.State}
		}
		status := *patch.Status
		if status.Timestamp == nil {
			status.SetTimestamp(flextime.Now())
		}
		stored.Task.Status = status
	}
	if len(patch.Artifacts) > 0 {
		stored.Task.UpsertArtifacts(patch.Artifacts...)
	}
	if len(patch.Messages) > 0 {
		stored.Task.History = append(stored.Task.History, patch.Messages...)
	}
	if patch.PushNotification != nil {
		config := *patch.PushNotification
		stored.PushNotification = &config
	}
	if len(patch.Metadata) > 0 {
		if stored.Task.Metadata == nil {
			stored.Task.Metadata = make(map[string]any, len(patch.Metadata))
		}
		maps.Copy(stored.Task.Metadata, patch.Metadata)
	}
	stored.UpdatedAt = flextime.Now()
	return nil
}

// PatchStoredTask returns a patched copy of stored. stored itself is left untouched.
func PatchStoredTask(stored *StoredTask, patch TaskPatch) (*StoredTask, error) {
	next, err := cloneStoredTask(stored)
	if err != nil {
		return nil, err
	}
	patch, err = clonePatch(patch)
	if err != nil {
		return nil, err
	}
	if err := applyPatch(next, patch); err != nil {
		return nil, err
	}
	return next, nil
}

// VisibleTo reports whether the caller may see the stored task.
func VisibleTo(stored *StoredTask, callerID *string) bool {
	if callerID == nil {
		return true
	}
	return stored.CallerID != nil && *stored.CallerID == *callerID
}

// WithHistory returns a copy of stored with history trimmed to historyLength.
func WithHistory(stored *StoredTask, historyLength int) (*StoredTask, error) {
	result, err := cloneStoredTask(stored)
	if err != nil {
		return nil, err
	}
	result.Task.TrimHistory(historyLength)
	return result, nil
}

// CompareStoredTasks orders by creation time, then id.
func CompareStoredTasks(a, b *StoredTask) int {
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// NormalizeListParams fills defaults and validates params.
func NormalizeListParams(params ListTasksParams) (ListTasksParams, error) {
	if params.Page <= 0 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = DefaultPageSize
	}
	switch params.Order {
	case "":
		params.Order = SortAsc
	case SortAsc, SortDesc:
	default:
		return params, fmt.Errorf("invalid sort order %q", params.Order)
	}
	return params, nil
}

// Paginate sorts the visible tasks and cuts the requested page.
func Paginate(tasks []*StoredTask, params ListTasksParams) *Page[*StoredTask] {
	visible := make([]*StoredTask, 0, len(tasks))
	for _, t := range tasks {
		if VisibleTo(t, params.CallerID) {
			visible = append(visible, t)
		}
	}
	slices.SortFunc(visible, CompareStoredTasks)
	if params.Order == SortDesc {
		slices.Reverse(visible)
	}
	total := len(visible)
	start := min((params.Page-1)*params.PageSize, total)
	end := min(start+params.PageSize, total)
	return &Page[*StoredTask]{
		Items: visible[start:end],
		Pagination: Pagination{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    &total,
		},
	}
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// cloneValue deep copies v through its JSON form, the same form every backend persists.
func cloneValue[T any](v T) (T, error) {
	var out T
	data, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("failed to marshal: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("failed to unmarshal: %w", err)
	}
	return out, nil
}

func cloneStoredTask(stored *StoredTask) (*StoredTask, error) {
	cloned, err := cloneValue(*stored)
	if err != nil {
		return nil, err
	}
	return &cloned, nil
}

func clonePatch(patch TaskPatch) (TaskPatch, error) {
	type wire struct {
		Status           *a2a.TaskStatus             `json:"status,omitempty"`
		Artifacts        []a2a.Artifact              `json:"artifacts,omitempty"`
		Messages         []a2a.Message               `json:"messages,omitempty"`
		PushNotification *a2a.PushNotificationConfig `json:"pushNotification,omitempty"`
		Metadata         map[string]any              `json:"metadata,omitempty"`
	}
	cloned, err := cloneValue(wire(patch))
	if err != nil {
		return TaskPatch{}, err
	}
	return TaskPatch(cloned), nil
}

// EncodeStoredTask and DecodeStoredTask are the JSON envelope shared by the
// persistent backends.
func EncodeStoredTask(stored *StoredTask) ([]byte, error) {
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task: %w", err)
	}
	return data, nil
}

func DecodeStoredTask(data []byte) (*StoredTask, error) {
	var stored StoredTask
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task: %w", err)
	}
	return &stored, nil
}
