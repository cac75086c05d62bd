package tasklane

import (
	"context"
	"errors"
	"sync"
)

// TaskLocker error variables
var (
	// ErrTaskLockAlreadyAcquired is returned when a task lock is already held
	ErrTaskLockAlreadyAcquired = errors.New("task lock already acquired")
	// ErrTaskLockerClosed is returned when attempting to use a closed task locker
	ErrTaskLockerClosed = errors.New("task locker is closed")
)

// TaskLocker keeps at most one handler running per task.
type TaskLocker interface {
	// Lock attempts to acquire the lock without waiting.
	// It returns ErrTaskLockAlreadyAcquired while another holder has the task.
	Lock(ctx context.Context, taskID string) (unlock func(), err error)
	// Close gracefully shuts down the task locker
	Close() error
}

// InMemoryTaskLocker is a process-local TaskLocker
type InMemoryTaskLocker struct {
	locks  map[string]uint64
	seq    uint64
	mu     sync.Mutex
	closed bool
}

// NewInMemoryTaskLocker creates a new in-memory task locker
func NewInMemoryTaskLocker() *InMemoryTaskLocker {
	return &InMemoryTaskLocker{
		locks: make(map[string]uint64),
	}
}

// Lock attempts to acquire a lock for the specified task
func (l *InMemoryTaskLocker) Lock(ctx context.Context, taskID string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil, ErrTaskLockerClosed
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if _, held := l.locks[taskID]; held {
		return nil, ErrTaskLockAlreadyAcquired
	}

	// each acquisition gets its own token so a stale unlock cannot release a newer holder
	l.seq++
	token := l.seq
	l.locks[taskID] = token

	var once sync.Once
	unlock := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.locks[taskID] == token {
				delete(l.locks, taskID)
			}
		})
	}

	return unlock, nil
}

// Close gracefully shuts down the task locker
func (l *InMemoryTaskLocker) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.closed {
		l.closed = true
		l.locks = make(map[string]uint64)
	}
	return nil
}
