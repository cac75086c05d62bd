package redisadp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mashiike/tasklane"
	"github.com/mashiike/tasklane/a2a"
	"github.com/redis/go-redis/v9"
)

// TaskStore implements tasklane.TaskStore on Redis.
//
// Each task is a JSON document under <prefix>:task:<id>. Sorted sets ordered by
// creation time index all tasks and the tasks of each caller. Writes run in
// WATCH/MULTI transactions and are retried when another writer touched the task.
type TaskStore struct {
	client redis.UniversalClient
	opts   options
}

var _ tasklane.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates a Redis-backed task store.
//
// Example:
//
//	store := redisadp.NewTaskStore(
//	    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    redisadp.WithPrefix("myagent"),
//	)
func NewTaskStore(client redis.UniversalClient, opts ...Option) *TaskStore {
	return &TaskStore{
		client: client,
		opts:   newOptions(opts),
	}
}

func (s *TaskStore) CreateTask(ctx context.Context, task *a2a.Task, callerID *string) (*tasklane.StoredTask, error) {
	stored, err := tasklane.NewStoredTask(task, callerID)
	if err != nil {
		return nil, err
	}
	key := s.taskKey(stored.ID)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("redis exists failed: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("task %s: %w", stored.ID, tasklane.ErrTaskConflict)
		}
		return s.insert(ctx, tx, stored)
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		// created concurrently by another writer
		return nil, fmt.Errorf("task %s: %w", stored.ID, tasklane.ErrTaskConflict)
	}
	if err != nil {
		return nil, err
	}
	return stored, nil
}

func (s *TaskStore) UpsertTask(ctx context.Context, params a2a.TaskSendParams, callerID *string) (*tasklane.StoredTask, error) {
	if params.ID == "" {
		return nil, fmt.Errorf("task id is required")
	}
	key := s.taskKey(params.ID)

	var result *tasklane.StoredTask
	err := s.retry(ctx, params.ID, func() error {
		return s.client.Watch(ctx, func(tx *redis.Tx) error {
			existing, err := s.read(ctx, tx, key)
			switch {
			case err == nil:
				if !tasklane.VisibleTo(existing, callerID) {
					return tasklane.ErrTaskNotFound
				}
				result = existing
				return nil
			case !errors.Is(err, tasklane.ErrTaskNotFound):
				return err
			}

			stored, err := tasklane.NewStoredTask(tasklane.NewTaskFromParams(params), callerID)
			if err != nil {
				return err
			}
			if params.PushNotification != nil {
				config := *params.PushNotification
				stored.PushNotification = &config
			}
			if err := s.insert(ctx, tx, stored); err != nil {
				return err
			}
			result = stored
			return nil
		}, key)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *TaskStore) GetTask(ctx context.Context, taskID string, callerID *string, historyLength int) (*tasklane.StoredTask, error) {
	stored, err := s.read(ctx, s.client, s.taskKey(taskID))
	if err != nil {
		return nil, err
	}
	if !tasklane.VisibleTo(stored, callerID) {
		return nil, tasklane.ErrTaskNotFound
	}
	stored.Task.TrimHistory(historyLength)
	return stored, nil
}

func (s *TaskStore) UpdateTask(ctx context.Context, taskID string, callerID *string, patch tasklane.TaskPatch) (*tasklane.StoredTask, error) {
	key := s.taskKey(taskID)

	var result *tasklane.StoredTask
	err := s.retry(ctx, taskID, func() error {
		return s.client.Watch(ctx, func(tx *redis.Tx) error {
			stored, err := s.read(ctx, tx, key)
			if err != nil {
				return err
			}
			if !tasklane.VisibleTo(stored, callerID) {
				return tasklane.ErrTaskNotFound
			}
			next, err := tasklane.PatchStoredTask(stored, patch)
			if err != nil {
				return err
			}
			data, err := tasklane.EncodeStoredTask(next)
			if err != nil {
				return err
			}
			if _, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				return nil
			}); err != nil {
				return err
			}
			result = next
			return nil
		}, key)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *TaskStore) ListTasks(ctx context.Context, params tasklane.ListTasksParams) (*tasklane.Page[*tasklane.StoredTask], error) {
	params, err := tasklane.NormalizeListParams(params)
	if err != nil {
		return nil, err
	}

	indexKey := s.indexKey()
	if params.CallerID != nil {
		indexKey = s.callerIndexKey(*params.CallerID)
	}
	ids, err := s.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis zrange failed: %w", err)
	}
	if len(ids) == 0 {
		return tasklane.Paginate(nil, params), nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.taskKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget failed: %w", err)
	}

	tasks := make([]*tasklane.StoredTask, 0, len(values))
	for i, value := range values {
		data, ok := value.(string)
		if !ok {
			s.opts.logger.WarnContext(ctx, "Indexed task is missing", "taskID", ids[i])
			continue
		}
		stored, err := tasklane.DecodeStoredTask([]byte(data))
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, stored)
	}
	return tasklane.Paginate(tasks, params), nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *TaskStore) read(ctx context.Context, client getter, key string) (*tasklane.StoredTask, error) {
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, tasklane.ErrTaskNotFound
		}
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	return tasklane.DecodeStoredTask(data)
}

// insert writes a new task and its index entries in one MULTI.
func (s *TaskStore) insert(ctx context.Context, tx *redis.Tx, stored *tasklane.StoredTask) error {
	data, err := tasklane.EncodeStoredTask(stored)
	if err != nil {
		return err
	}
	member := redis.Z{Score: float64(stored.CreatedAt.UnixMilli()), Member: stored.ID}
	_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.taskKey(stored.ID), data, 0)
		pipe.ZAdd(ctx, s.indexKey(), member)
		if stored.CallerID != nil {
			pipe.ZAdd(ctx, s.callerIndexKey(*stored.CallerID), member)
		}
		return nil
	})
	return err
}

// retry reruns fn while its transaction loses against a concurrent writer.
func (s *TaskStore) retry(ctx context.Context, taskID string, fn func() error) error {
	for attempt := range s.opts.maxRetries {
		err := fn()
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		s.opts.logger.DebugContext(ctx, "Task changed concurrently, retrying", "taskID", taskID, "attempt", attempt+1)

		timer := time.NewTimer(min(time.Duration(1<<attempt)*time.Millisecond, 50*time.Millisecond))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return fmt.Errorf("task %s changed during %d attempts: %w", taskID, s.opts.maxRetries, tasklane.ErrConcurrentUpdate)
}

func (s *TaskStore) taskKey(taskID string) string {
	return s.opts.prefix + ":task:" + taskID
}

func (s *TaskStore) indexKey() string {
	return s.opts.prefix + ":tasks"
}

func (s *TaskStore) callerIndexKey(callerID string) string {
	return s.opts.prefix + ":caller:" + callerID + ":tasks"
}
