package tasklane

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestInMemoryTaskLocker_OneHolderPerTask(t *testing.T) {
	locker := NewInMemoryTaskLocker()
	defer locker.Close()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
		unlocks = make(chan func(), 16)
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "task-1")
			switch {
			case err == nil:
				winners.Add(1)
				unlocks <- unlock
			case !errors.Is(err, ErrTaskLockAlreadyAcquired):
				t.Errorf("Unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	close(unlocks)
	if got := winners.Load(); got != 1 {
		t.Fatalf("Expected exactly one holder, got %d", got)
	}

	// other tasks are independent of the held one
	other, err := locker.Lock(ctx, "task-2")
	if err != nil {
		t.Fatalf("Failed to lock another task: %v", err)
	}
	other()

	for unlock := range unlocks {
		unlock()
	}
	again, err := locker.Lock(ctx, "task-1")
	if err != nil {
		t.Fatalf("Failed to lock after release: %v", err)
	}
	again()
}

func TestInMemoryTaskLocker_StaleUnlock(t *testing.T) {
	locker := NewInMemoryTaskLocker()
	defer locker.Close()
	ctx := context.Background()

	first, err := locker.Lock(ctx, "task-1")
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	first()

	second, err := locker.Lock(ctx, "task-1")
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	defer second()

	// a repeated unlock from the first holder must not release the second
	first()
	if _, err := locker.Lock(ctx, "task-1"); !errors.Is(err, ErrTaskLockAlreadyAcquired) {
		t.Errorf("Expected ErrTaskLockAlreadyAcquired, got %v", err)
	}
}

func TestInMemoryTaskLocker_CanceledContext(t *testing.T) {
	locker := NewInMemoryTaskLocker()
	defer locker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := locker.Lock(ctx, "task-1"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestInMemoryTaskLocker_Close(t *testing.T) {
	locker := NewInMemoryTaskLocker()
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "task-1")
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	if err := locker.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if _, err := locker.Lock(ctx, "task-2"); !errors.Is(err, ErrTaskLockerClosed) {
		t.Errorf("Expected ErrTaskLockerClosed, got %v", err)
	}
	// releasing a lock taken before Close is harmless
	unlock()
}
