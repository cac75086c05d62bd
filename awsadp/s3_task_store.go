package awsadp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/mashiike/tasklane"
	"github.com/mashiike/tasklane/a2a"
)

// S3API is the subset of the S3 client used by S3TaskStore
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

var _ S3API = (*s3.Client)(nil)

// S3TaskStoreConfig provides configuration for S3TaskStore
type S3TaskStoreConfig struct {
	Client S3API
	Bucket string
	Prefix string // Optional prefix for all object keys (useful for testing isolation)

	// MaxAttempts bounds the optimistic retries of UpdateTask (default: 16)
	MaxAttempts int
	// ListPageSize is the MaxKeys of each ListObjectsV2 call (default: 1000)
	ListPageSize int32

	Logger *slog.Logger
}

// S3TaskStore implements tasklane.TaskStore with one JSON object per task.
//
// Writes use S3 conditional requests: creation is guarded by If-None-Match and
// updates by If-Match on the ETag that was read, retrying when another writer won.
type S3TaskStore struct {
	client       S3API
	bucket       string
	prefix       string
	maxAttempts  int
	listPageSize int32
	logger       *slog.Logger
}

var _ tasklane.TaskStore = (*S3TaskStore)(nil)

// NewS3TaskStore creates a new S3TaskStore instance
func NewS3TaskStore(config S3TaskStoreConfig) *S3TaskStore {
	store := &S3TaskStore{
		client:       config.Client,
		bucket:       config.Bucket,
		prefix:       config.Prefix,
		maxAttempts:  config.MaxAttempts,
		listPageSize: config.ListPageSize,
		logger:       config.Logger,
	}
	if store.maxAttempts <= 0 {
		store.maxAttempts = 16
	}
	if store.listPageSize <= 0 {
		store.listPageSize = 1000
	}
	if store.logger == nil {
		store.logger = slog.Default()
	}
	return store
}

func (s *S3TaskStore) CreateTask(ctx context.Context, task *a2a.Task, callerID *string) (*tasklane.StoredTask, error) {
	stored, err := tasklane.NewStoredTask(task, callerID)
	if err != nil {
		return nil, err
	}
	if err := s.putNew(ctx, stored); err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *S3TaskStore) UpsertTask(ctx context.Context, params a2a.TaskSendParams, callerID *string) (*tasklane.StoredTask, error) {
	if params.ID == "" {
		return nil, fmt.Errorf("task id is required")
	}
	existing, _, err := s.read(ctx, params.ID)
	switch {
	case err == nil:
		return visibleOrNotFound(existing, callerID)
	case !errors.Is(err, tasklane.ErrTaskNotFound):
		return nil, err
	}

	stored, err := tasklane.NewStoredTask(tasklane.NewTaskFromParams(params), callerID)
	if err != nil {
		return nil, err
	}
	if params.PushNotification != nil {
		config := *params.PushNotification
		stored.PushNotification = &config
	}
	err = s.putNew(ctx, stored)
	if errors.Is(err, tasklane.ErrTaskConflict) {
		// created concurrently by another request
		existing, _, err := s.read(ctx, params.ID)
		if err != nil {
			return nil, err
		}
		return visibleOrNotFound(existing, callerID)
	}
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *S3TaskStore) GetTask(ctx context.Context, taskID string, callerID *string, historyLength int) (*tasklane.StoredTask, error) {
	stored, _, err := s.read(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !tasklane.VisibleTo(stored, callerID) {
		return nil, tasklane.ErrTaskNotFound
	}
	stored.Task.TrimHistory(historyLength)
	return stored, nil
}

func (s *S3TaskStore) UpdateTask(ctx context.Context, taskID string, callerID *string, patch tasklane.TaskPatch) (*tasklane.StoredTask, error) {
	for attempt := range s.maxAttempts {
		stored, etag, err := s.read(ctx, taskID)
		if err != nil {
			return nil, err
		}
		if !tasklane.VisibleTo(stored, callerID) {
			return nil, tasklane.ErrTaskNotFound
		}
		next, err := tasklane.PatchStoredTask(stored, patch)
		if err != nil {
			return nil, err
		}

		err = s.put(ctx, next, func(input *s3.PutObjectInput) {
			input.IfMatch = aws.String(etag)
		})
		if err == nil {
			return next, nil
		}
		if !isPreconditionFailed(err) {
			return nil, err
		}
		s.logger.DebugContext(ctx, "Task changed concurrently, retrying update", "taskID", taskID, "attempt", attempt+1)
		if err := backoff(ctx, attempt); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to update task %s after %d attempts: %w", taskID, s.maxAttempts, tasklane.ErrConcurrentUpdate)
}

func (s *S3TaskStore) ListTasks(ctx context.Context, params tasklane.ListTasksParams) (*tasklane.Page[*tasklane.StoredTask], error) {
	params, err := tasklane.NormalizeListParams(params)
	if err != nil {
		return nil, err
	}

	tasksPrefix := s.key("tasks") + "/"
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.bucket),
		Prefix:  aws.String(tasksPrefix),
		MaxKeys: aws.Int32(s.listPageSize),
	})

	var tasks []*tasklane.StoredTask
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list tasks from S3: %w", err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), tasksPrefix)
			taskID, ok := strings.CutSuffix(name, ".json")
			if !ok || strings.Contains(taskID, "/") {
				continue
			}
			stored, _, err := s.read(ctx, taskID)
			if err != nil {
				if errors.Is(err, tasklane.ErrTaskNotFound) {
					continue
				}
				return nil, err
			}
			tasks = append(tasks, stored)
		}
	}
	return tasklane.Paginate(tasks, params), nil
}

// read returns the stored task and the ETag it was read at
func (s *S3TaskStore) read(ctx context.Context, taskID string) (*tasklane.StoredTask, string, error) {
	if !validTaskID(taskID) {
		return nil, "", tasklane.ErrTaskNotFound
	}
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.taskKey(taskID)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, "", tasklane.ErrTaskNotFound
		}
		return nil, "", fmt.Errorf("failed to get task from S3: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read task from S3: %w", err)
	}
	stored, err := tasklane.DecodeStoredTask(data)
	if err != nil {
		return nil, "", err
	}
	return stored, aws.ToString(result.ETag), nil
}

// putNew writes a task that must not exist yet
func (s *S3TaskStore) putNew(ctx context.Context, stored *tasklane.StoredTask) error {
	if !validTaskID(stored.ID) {
		return fmt.Errorf("invalid task id %q", stored.ID)
	}
	err := s.put(ctx, stored, func(input *s3.PutObjectInput) {
		input.IfNoneMatch = aws.String("*")
	})
	if isPreconditionFailed(err) {
		return fmt.Errorf("task %s: %w", stored.ID, tasklane.ErrTaskConflict)
	}
	return err
}

func (s *S3TaskStore) put(ctx context.Context, stored *tasklane.StoredTask, condition func(*s3.PutObjectInput)) error {
	data, err := tasklane.EncodeStoredTask(stored)
	if err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.taskKey(stored.ID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}
	condition(input)
	if _, err := s.client.PutObject(ctx, input); err != nil {
		if isPreconditionFailed(err) {
			return err
		}
		return fmt.Errorf("failed to put task to S3: %w", err)
	}
	return nil
}

func (s *S3TaskStore) key(elem ...string) string {
	if s.prefix == "" {
		return path.Join(elem...)
	}
	return path.Join(append([]string{s.prefix}, elem...)...)
}

func (s *S3TaskStore) taskKey(taskID string) string {
	return s.key("tasks", taskID+".json")
}

func visibleOrNotFound(stored *tasklane.StoredTask, callerID *string) (*tasklane.StoredTask, error) {
	if !tasklane.VisibleTo(stored, callerID) {
		return nil, tasklane.ErrTaskNotFound
	}
	return stored, nil
}

func validTaskID(taskID string) bool {
	return taskID != "" && !strings.ContainsAny(taskID, "/\\") && taskID != "." && taskID != ".."
}

func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// isPreconditionFailed reports a lost conditional write.
// S3 answers 412 PreconditionFailed, or 409 ConditionalRequestConflict while a
// competing conditional write is in flight.
func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "PreconditionFailed", "ConditionalRequestConflict":
		return true
	}
	return false
}

func backoff(ctx context.Context, attempt int) error {
	wait := min(time.Duration(1<<attempt)*time.Millisecond, 100*time.Millisecond)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
