package redisadp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mashiike/tasklane"
	"github.com/redis/go-redis/v9"
)

var (
	// refreshLockScript extends the lease only while the caller still owns it.
	refreshLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
return 0
`)

	releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)
)

// TaskLocker implements tasklane.TaskLocker with a leased Redis key per task.
//
// A holder owns <prefix>:lock:<id> through a random token. The lease is renewed
// in the background until unlock, so a crashed process frees its tasks once the
// lease runs out.
type TaskLocker struct {
	client redis.UniversalClient
	opts   options

	mu     sync.Mutex
	closed bool
	held   map[string]context.CancelFunc // token -> renewal stop
	wg     sync.WaitGroup
}

var _ tasklane.TaskLocker = (*TaskLocker)(nil)

// NewTaskLocker creates a Redis-backed task locker.
func NewTaskLocker(client redis.UniversalClient, opts ...Option) *TaskLocker {
	return &TaskLocker{
		client: client,
		opts:   newOptions(opts),
		held:   make(map[string]context.CancelFunc),
	}
}

func (l *TaskLocker) Lock(ctx context.Context, taskID string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	closed := l.closed
	l.mu.Unlock()
	if closed {
		return nil, tasklane.ErrTaskLockerClosed
	}

	key := l.lockKey(taskID)
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.opts.lockTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("redis setnx failed: %w", err)
	}
	if !ok {
		return nil, tasklane.ErrTaskLockAlreadyAcquired
	}

	renewCtx, stop := context.WithCancel(context.WithoutCancel(ctx))
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		stop()
		l.release(key, token)
		return nil, tasklane.ErrTaskLockerClosed
	}
	l.held[token] = stop
	l.wg.Add(1)
	l.mu.Unlock()
	go l.renew(renewCtx, key, token)

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, token)
			l.mu.Unlock()
			stop()
			l.release(key, token)
		})
	}, nil
}

func (l *TaskLocker) renew(ctx context.Context, key, token string) {
	defer l.wg.Done()
	ticker := time.NewTicker(l.opts.lockTTL / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		n, err := refreshLockScript.Run(ctx, l.client, []string{key}, token, l.opts.lockTTL.Milliseconds()).Int()
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			l.opts.logger.WarnContext(ctx, "Failed to renew task lock", "error", err, "key", key)
		case n == 0:
			l.opts.logger.WarnContext(ctx, "Task lock lease was lost", "key", key)
			return
		}
	}
}

func (l *TaskLocker) release(key, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := releaseLockScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.opts.logger.WarnContext(ctx, "Failed to release task lock", "error", err, "key", key)
	}
}

// Close stops renewing held leases and rejects further Lock calls.
// Leases still held expire on their own.
func (l *TaskLocker) Close() error {
	l.mu.Lock()
	l.closed = true
	for _, stop := range l.held {
		stop()
	}
	l.held = make(map[string]context.CancelFunc)
	l.mu.Unlock()
	l.wg.Wait()
	return nil
}

func (l *TaskLocker) lockKey(taskID string) string {
	return l.opts.prefix + ":lock:" + taskID
}
